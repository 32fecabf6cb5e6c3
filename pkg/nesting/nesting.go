/*
Package nesting matches versioning tags into tag-sets and works out which
conditions apply at a cursor offset.

Both jobs happen in one forward pass over the scanner output:

	tags.Scan ──> resolver ──> Tags (Seq, SetID, Depth)
	                 │
	                 └──> frames at the cursor ──> Path (one Level per tag-set)

A frame is pushed for every OPEN and popped at its CLOSE. While the cursor has
not been reached, the frames also carry the description of the branch the
cursor is in. The first tag that does not fully precede the cursor freezes the
frames into the Active-Path; the scan keeps going so later tags still get their
tag-set identity for highlighting.
*/
package nesting

import (
	"fmt"

	"github.com/walteh/versiontags/pkg/tags"
)

// Tag is a scanned directive with its nesting metadata.
type Tag struct {
	tags.Event
	// Seq is 1-based and unique per tag, in document order.
	Seq int
	// SetID is the Seq of the OPEN tag that starts this tag's tag-set.
	SetID int
	// Depth is 0 for the outermost tag-set.
	Depth int
}

func (t Tag) String() string {
	return fmt.Sprintf("#%d set=%d depth=%d %s", t.Seq, t.SetID, t.Depth, t.Event)
}

// Level is one entry of the Active-Path.
type Level struct {
	Depth int
	SetID int
	// Clause is this level's own condition: the raw condition of the branch,
	// or the negated prior conditions for an else branch.
	Clause string
	// Description is Clause joined to the enclosing levels ("AND " prefix
	// below the outermost level).
	Description string
}

// IssueKind classifies malformed nesting.
type IssueKind int

const (
	// IssueStrayClose is an endif with no open tag-set.
	IssueStrayClose IssueKind = iota + 1
	// IssueOrphanBranch is an elsif or else with no open tag-set.
	IssueOrphanBranch
	// IssueUnclosed is an ifversion still open at the end of the document.
	IssueUnclosed
)

func (k IssueKind) String() string {
	switch k {
	case IssueStrayClose:
		return "stray endif"
	case IssueOrphanBranch:
		return "branch outside ifversion"
	case IssueUnclosed:
		return "unclosed ifversion"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue records a directive that could not be matched. Issues never stop
// resolution, documents are routinely in a half-edited state.
type Issue struct {
	Kind  IssueKind
	Event tags.Event
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %d", i.Kind, i.Event.Start)
}

// Resolution is the result of resolving one document at one offset.
type Resolution struct {
	Offset int
	Tags   []Tag
	Path   []Level
	Issues []Issue
}

// Depth is the number of tag-sets enclosing the offset.
func (r *Resolution) Depth() int {
	return len(r.Path)
}

// Innermost returns the deepest level of the Active-Path.
func (r *Resolution) Innermost() (Level, bool) {
	if len(r.Path) == 0 {
		return Level{}, false
	}
	return r.Path[len(r.Path)-1], true
}

// HighlightSet returns the SetID of the innermost tag-set at the offset, or 0
// when there is no versioning at the offset.
func (r *Resolution) HighlightSet() int {
	lvl, ok := r.Innermost()
	if !ok {
		return 0
	}
	return lvl.SetID
}

// TagsInSet returns every tag that belongs to the given tag-set.
func (r *Resolution) TagsInSet(setID int) []Tag {
	if setID == 0 {
		return nil
	}
	var out []Tag
	for _, t := range r.Tags {
		if t.SetID == setID {
			out = append(out, t)
		}
	}
	return out
}

// Descriptions returns the Active-Path descriptions, outermost first.
func (r *Resolution) Descriptions() []string {
	out := make([]string, len(r.Path))
	for i, lvl := range r.Path {
		out[i] = lvl.Description
	}
	return out
}
