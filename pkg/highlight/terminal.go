package highlight

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/fatih/color"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/walteh/versiontags/pkg/position"
	"gitlab.com/tozd/go/errors"
)

var foregrounds = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var backgrounds = map[string]color.Attribute{
	"black":   color.BgBlack,
	"red":     color.BgRed,
	"green":   color.BgGreen,
	"yellow":  color.BgYellow,
	"blue":    color.BgBlue,
	"magenta": color.BgMagenta,
	"cyan":    color.BgCyan,
	"white":   color.BgWhite,
}

// TerminalColor builds a fatih/color value for a style. Unknown colour names
// are left unstyled.
func TerminalColor(style Style) *color.Color {
	c := color.New()

	if attr, ok := backgrounds[strings.ToLower(style.BackgroundColor)]; ok {
		c.Add(attr)
	} else if hex, err := colorful.Hex(style.BackgroundColor); err == nil {
		r, g, b := hex.RGB255()
		c.AddBgRGB(int(r), int(g), int(b))
	}

	if attr, ok := foregrounds[strings.ToLower(style.ForegroundColor)]; ok {
		c.Add(attr)
	} else if hex, err := colorful.Hex(style.ForegroundColor); err == nil {
		r, g, b := hex.RGB255()
		c.AddRGB(int(r), int(g), int(b))
	}

	return c
}

// TerminalRenderer prints every range as its source line with the directive
// painted and a caret line underneath.
type TerminalRenderer struct {
	w       io.Writer
	idx     *position.Index
	noColor bool
	applied int
}

func NewTerminalRenderer(w io.Writer, idx *position.Index, noColor bool) *TerminalRenderer {
	return &TerminalRenderer{w: w, idx: idx, noColor: noColor}
}

func (me *TerminalRenderer) Apply(ctx context.Context, style Style, ranges []position.Range) (Handle, error) {
	paint := TerminalColor(style)
	if me.noColor {
		paint.DisableColor()
	}

	for _, rng := range ranges {
		if err := me.printRange(paint, rng); err != nil {
			return nil, errors.Errorf("printing range %s: %w", rng, err)
		}
	}

	me.applied++
	return &terminalHandle{renderer: me}, nil
}

// Applied is the number of groups printed and not yet disposed.
func (me *TerminalRenderer) Applied() int {
	return me.applied
}

func (me *TerminalRenderer) printRange(paint *color.Color, rng position.Range) error {
	line := me.idx.Line(rng.Start.Line)
	lineStart := me.idx.OffsetAt(position.Place{Line: rng.Start.Line})

	from := me.idx.OffsetAt(rng.Start) - lineStart
	to := len(line)
	if rng.End.Line == rng.Start.Line {
		to = me.idx.OffsetAt(rng.End) - lineStart
	}
	from = min(max(from, 0), len(line))
	to = min(max(to, from), len(line))

	before, inside, after := line[:from], line[from:to], line[to:]

	gutter := fmt.Sprintf("%4d | ", rng.Start.Line+1)
	if _, err := fmt.Fprintf(me.w, "%s%s%s%s\n", gutter, before, paint.Sprint(inside), after); err != nil {
		return err
	}

	pad, err := textseg.TokenCount([]byte(before), textseg.ScanGraphemeClusters)
	if err != nil {
		return errors.Errorf("counting graphemes: %w", err)
	}
	width, err := textseg.TokenCount([]byte(inside), textseg.ScanGraphemeClusters)
	if err != nil {
		return errors.Errorf("counting graphemes: %w", err)
	}

	_, err = fmt.Fprintf(me.w, "%s%s%s\n", strings.Repeat(" ", len(gutter)), strings.Repeat(" ", pad), strings.Repeat("^", width))
	return err
}

type terminalHandle struct {
	renderer *TerminalRenderer
	disposed bool
}

// Dispose only updates the bookkeeping, printed output cannot be retracted.
func (h *terminalHandle) Dispose(ctx context.Context) error {
	if h.disposed {
		return errors.New("terminal decoration already disposed")
	}
	h.disposed = true
	h.renderer.applied--
	return nil
}
