package serve_lsp

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/versiontags/pkg/config"
	"github.com/walteh/versiontags/pkg/debug"
	"github.com/walteh/versiontags/pkg/lsp"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	debug       bool
	configPath  string
	logToClient bool
	version     string
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdio",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.configPath, "config", "", "config file (.yaml, .hcl, .toml or .json), reloaded on change")
	cmd.Flags().BoolVar(&me.logToClient, "log-to-client", false, "forward logs to the editor as window/logMessage")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	level := zerolog.InfoLevel
	if me.debug {
		level = zerolog.DebugLevel
	}

	// stdout carries the protocol, local logs go to stderr
	stderr := debug.NewLogger(os.Stderr, debug.LoggerOpts{Level: level, Caller: me.debug})

	logger := stderr
	var forward *lsp.LSPWriter
	if me.logToClient {
		forward = lsp.NewLSPWriter(ctx, os.Stderr)
		logger = debug.NewLogger(forward, debug.LoggerOpts{Level: level})
	}
	ctx = logger.WithContext(ctx)

	opts := []lsp.ServerOpt{lsp.WithVersion(me.version)}

	fs := afero.NewOsFs()
	if me.configPath != "" {
		cfg, err := config.Load(fs, me.configPath)
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
		opts = append(opts, lsp.WithConfig(cfg))
	}

	server := lsp.NewServer(ctx, opts...)

	if me.configPath != "" {
		if err := config.Watch(ctx, me.configPath, server.SetConfig); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("config", me.configPath).Msg("config will not be reloaded")
		}
	}

	serveOpts := []lsp.ServeOpt{lsp.WithRPCLogger(&stderr)}
	if forward != nil {
		serveOpts = append(serveOpts, lsp.WithLogForwarding(forward))
	}

	if err := server.Serve(ctx, lsp.NewStdio(os.Stdin, os.Stdout), serveOpts...); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
