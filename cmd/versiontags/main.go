package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/versiontags/cmd/versiontags/describe"
	serve_lsp "github.com/walteh/versiontags/cmd/versiontags/serve-lsp"
	logging "github.com/walteh/versiontags/pkg/debug"
)

func main() {
	logger := logging.NewLogger(os.Stderr, logging.LoggerOpts{Console: true, Color: true})

	if err := newRootCommand(buildVersion()).ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("versiontags failed")
		os.Exit(1)
	}
}

// buildVersion is the module version stamped by go install, or "unknown".
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "unknown"
	}
	return info.Main.Version
}

func newRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "versiontags",
		Short:         "Explain the ifversion blocks around a position in a docs file",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(&cobra.Command{
		Use:    "raw-version",
		Short:  "print the bare version",
		Hidden: true,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(root.Version)
		},
	})

	root.AddCommand(serve_lsp.NewServeLSPCommand(version))
	root.AddCommand(describe.NewDescribeCommand(afero.NewOsFs()))

	return root
}
