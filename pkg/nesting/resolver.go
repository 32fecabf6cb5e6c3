package nesting

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/versiontags/pkg/tags"
)

// frame is one open tag-set. The frames slice is indexed by depth.
type frame struct {
	setID int
	open  tags.Event
	// clause is the condition of the branch holding the cursor; only
	// maintained while the cursor has not been reached.
	clause string
	// excluded holds the conditions of the branches seen so far, for a
	// following else.
	excluded []string
}

func (f *frame) branch(condition string) {
	f.clause = condition
	f.excluded = append(f.excluded, condition)
}

func (f *frame) otherwise() {
	negated := make([]string, len(f.excluded))
	for i, cond := range f.excluded {
		negated[i] = operand(cond)
	}
	f.clause = "NOT " + strings.Join(negated, " AND NOT ")
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// operand makes a condition safe to negate. A plain version name stays bare,
// anything else is parenthesized.
func operand(condition string) string {
	if plainIdentifier.MatchString(condition) {
		return condition
	}
	return "(" + condition + ")"
}

type resolver struct {
	offset  int
	seq     int
	frames  []frame
	reached bool
	res     *Resolution
}

// Resolve scans text once and returns its tags together with the Active-Path
// at offset. A tag only counts as before the cursor when offset is at or
// after the end of its closer.
func Resolve(ctx context.Context, text string, offset int) *Resolution {
	r := &resolver{
		offset: offset,
		res:    &Resolution{Offset: offset},
	}

	for ev := range tags.Scan(ctx, text) {
		r.step(ev)
	}

	r.finish()

	logger := zerolog.Ctx(ctx)
	for _, issue := range r.res.Issues {
		logger.Debug().Stringer("issue", issue).Msg("malformed version nesting")
	}
	logger.Trace().
		Int("offset", offset).
		Int("tags", len(r.res.Tags)).
		Int("depth", r.res.Depth()).
		Int("highlight_set", r.res.HighlightSet()).
		Msg("resolved version tags")

	return r.res
}

// ResolveAll returns the tags of text without looking at any cursor.
func ResolveAll(ctx context.Context, text string) []Tag {
	return Resolve(ctx, text, -1).Tags
}

func (r *resolver) step(ev tags.Event) {
	applies := !r.reached && r.offset >= ev.End
	if !r.reached && !applies {
		r.freeze()
	}

	switch ev.Kind {
	case tags.KindOpen:
		r.seq++
		r.frames = append(r.frames, frame{setID: r.seq, open: ev})
		top := &r.frames[len(r.frames)-1]
		if applies {
			top.branch(ev.Condition)
		}
		r.record(ev, top.setID)

	case tags.KindElseIf, tags.KindElse:
		if len(r.frames) == 0 {
			r.res.Issues = append(r.res.Issues, Issue{Kind: IssueOrphanBranch, Event: ev})
			return
		}
		r.seq++
		top := &r.frames[len(r.frames)-1]
		if applies {
			if ev.Kind == tags.KindElseIf {
				top.branch(ev.Condition)
			} else {
				top.otherwise()
			}
		}
		r.record(ev, top.setID)

	case tags.KindClose:
		if len(r.frames) == 0 {
			r.res.Issues = append(r.res.Issues, Issue{Kind: IssueStrayClose, Event: ev})
			return
		}
		r.seq++
		r.record(ev, r.frames[len(r.frames)-1].setID)
		r.frames = r.frames[:len(r.frames)-1]
	}
}

func (r *resolver) record(ev tags.Event, setID int) {
	r.res.Tags = append(r.res.Tags, Tag{
		Event: ev,
		Seq:   r.seq,
		SetID: setID,
		Depth: len(r.frames) - 1,
	})
}

// freeze snapshots the frames as the Active-Path.
func (r *resolver) freeze() {
	r.reached = true

	path := make([]Level, len(r.frames))
	for depth, f := range r.frames {
		desc := f.clause
		if depth > 0 {
			desc = "AND " + desc
		}
		path[depth] = Level{
			Depth:       depth,
			SetID:       f.setID,
			Clause:      f.clause,
			Description: desc,
		}
	}
	r.res.Path = path
}

func (r *resolver) finish() {
	if !r.reached {
		r.freeze()
	}
	for _, f := range r.frames {
		r.res.Issues = append(r.res.Issues, Issue{Kind: IssueUnclosed, Event: f.open})
	}
}
