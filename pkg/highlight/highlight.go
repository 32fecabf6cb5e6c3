// Package highlight selects the tags to decorate for an Active-Path and owns
// the lifecycle of the decorations a renderer puts on screen.
package highlight

import (
	"fmt"

	"github.com/walteh/versiontags/pkg/nesting"
	"github.com/walteh/versiontags/pkg/position"
)

// Style is one colour pair. Colours are whatever the renderer understands:
// CSS names or #rrggbb for editors, names or #rrggbb for terminals.
type Style struct {
	BackgroundColor string `json:"backgroundColor" yaml:"backgroundColor" toml:"backgroundColor" hcl:"background_color,optional"`
	ForegroundColor string `json:"color"           yaml:"color"           toml:"color"           hcl:"color,optional"`
}

func (s Style) IsZero() bool {
	return s.BackgroundColor == "" && s.ForegroundColor == ""
}

func (s Style) String() string {
	return fmt.Sprintf("%s/%s", s.BackgroundColor, s.ForegroundColor)
}

// Palette is cycled across nesting levels.
type Palette []Style

// DefaultPalette is used when nothing is configured.
func DefaultPalette() Palette {
	return Palette{
		{BackgroundColor: "red", ForegroundColor: "white"},
		{BackgroundColor: "blue", ForegroundColor: "yellow"},
		{BackgroundColor: "green", ForegroundColor: "black"},
	}
}

// At returns the style for a nesting level. An empty palette has no style for
// any level.
func (p Palette) At(level int) (Style, bool) {
	if len(p) == 0 || level < 0 {
		return Style{}, false
	}
	return p[level%len(p)], true
}

// Group is every tag of one tag-set on the Active-Path, in editor coordinates.
type Group struct {
	Level  int
	SetID  int
	Style  Style
	Ranges []position.Range
}

// Visible reports whether a renderer has anything to paint.
func (g Group) Visible() bool {
	return !g.Style.IsZero() && len(g.Ranges) > 0
}

// Select builds one group per Active-Path level, outermost first.
func Select(res *nesting.Resolution, idx *position.Index, palette Palette) []Group {
	if res == nil || len(res.Path) == 0 {
		return nil
	}

	text := idx.Text()
	groups := make([]Group, 0, len(res.Path))
	for _, lvl := range res.Path {
		style, _ := palette.At(lvl.Depth)

		members := res.TagsInSet(lvl.SetID)
		ranges := make([]position.Range, 0, len(members))
		for _, tag := range members {
			raw := position.NewBasicPosition(text[tag.Start:tag.End], tag.Start)
			ranges = append(ranges, raw.GetRange(idx))
		}

		groups = append(groups, Group{
			Level:  lvl.Depth,
			SetID:  lvl.SetID,
			Style:  style,
			Ranges: ranges,
		})
	}
	return groups
}

// Innermost returns the group of the deepest level.
func Innermost(groups []Group) (Group, bool) {
	if len(groups) == 0 {
		return Group{}, false
	}
	return groups[len(groups)-1], true
}
