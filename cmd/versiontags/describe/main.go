package describe

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/versiontags/pkg/config"
	"github.com/walteh/versiontags/pkg/debug"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/message"
	"github.com/walteh/versiontags/pkg/nesting"
	"github.com/walteh/versiontags/pkg/position"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	fs  afero.Fs
	out io.Writer

	file       string
	offset     int
	line       int
	character  int
	configPath string
	showTags   bool
	noColor    bool
	debug      bool
}

func NewDescribeCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "print the versioning that applies at a position in a file",
	}

	cmd.Flags().IntVar(&me.offset, "offset", -1, "byte offset of the cursor")
	cmd.Flags().IntVar(&me.line, "line", 0, "1-based line of the cursor")
	cmd.Flags().IntVar(&me.character, "character", 1, "1-based character of the cursor, in UTF-16 code units")
	cmd.Flags().StringVar(&me.configPath, "config", "", "config file with the colour palette")
	cmd.Flags().BoolVar(&me.showTags, "tags", false, "also print every versioning tag of the file")
	cmd.Flags().BoolVar(&me.noColor, "no-color", false, "disable colours")
	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")

	cmd.MarkFlagsMutuallyExclusive("offset", "line")
	cmd.MarkFlagsOneRequired("offset", "line")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		me.out = cmd.OutOrStdout()

		level := zerolog.WarnLevel
		if me.debug {
			level = zerolog.TraceLevel
		}
		logger := debug.NewLogger(cmd.ErrOrStderr(), debug.LoggerOpts{Level: level, Console: true, Color: !me.noColor})

		return me.Run(logger.WithContext(cmd.Context()))
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	data, err := afero.ReadFile(me.fs, me.file)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.file, err)
	}
	text := string(data)

	cfg := config.Default()
	if me.configPath != "" {
		cfg, err = config.Load(me.fs, me.configPath)
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
	}

	if !cfg.Matches(me.file) {
		fmt.Fprintf(me.out, "%s is excluded by the files patterns of the config\n", me.file)
		return nil
	}

	idx := position.NewIndex(text)

	offset, err := me.cursor(idx)
	if err != nil {
		return err
	}

	res := nesting.Resolve(ctx, text, offset)

	fmt.Fprintln(me.out, message.Compose(res.Path, idx.PositionAt(offset)))

	if groups := highlight.Select(res, idx, cfg.Palette); len(groups) > 0 {
		fmt.Fprintln(me.out)

		dec := highlight.NewDecorator(highlight.NewTerminalRenderer(me.out, idx, me.noColor))
		defer dec.Clear(ctx)

		if err := dec.Replace(ctx, groups); err != nil {
			return errors.Errorf("printing tag-sets: %w", err)
		}
	}

	if me.showTags {
		fmt.Fprintln(me.out)
		if err := printTags(me.out, res, idx); err != nil {
			return errors.Errorf("printing tags: %w", err)
		}
	}

	return nil
}

// cursor converts the position flags to a byte offset.
func (me *Handler) cursor(idx *position.Index) (int, error) {
	if me.offset >= 0 {
		if me.offset > len(idx.Text()) {
			return 0, errors.Errorf("offset %d is past the end of %s (%d bytes)", me.offset, me.file, len(idx.Text()))
		}
		return me.offset, nil
	}

	if me.line < 1 || me.character < 1 {
		return 0, errors.Errorf("line and character are 1-based, got %d:%d", me.line, me.character)
	}
	if me.line > idx.LineCount() {
		return 0, errors.Errorf("line %d is past the end of %s (%d lines)", me.line, me.file, idx.LineCount())
	}

	return idx.OffsetAt(position.Place{Line: me.line - 1, Character: me.character - 1}), nil
}

func printTags(w io.Writer, res *nesting.Resolution, idx *position.Index) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "SEQ\tSET\tDEPTH\tKIND\tPOSITION\tCONDITION")
	for _, tag := range res.Tags {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n", tag.Seq, tag.SetID, tag.Depth, tag.Kind.Keyword(), displayPlace(idx.PositionAt(tag.Start)), tag.Condition)
	}
	for _, issue := range res.Issues {
		fmt.Fprintf(tw, "-\t-\t-\t%s\t%s\t%s\n", issue.Event.Kind.Keyword(), displayPlace(idx.PositionAt(issue.Event.Start)), issue.Kind)
	}

	return tw.Flush()
}

func displayPlace(p position.Place) string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}
