package tags

import (
	"fmt"
)

// Kind identifies which versioning directive a tag is.
type Kind int

const (
	KindOpen   Kind = iota + 1 // {% ifversion ... %}
	KindElseIf                 // {% elsif ... %}
	KindElse                   // {% else %}
	KindClose                  // {% endif %}
)

var keywords = map[string]Kind{
	"ifversion": KindOpen,
	"elsif":     KindElseIf,
	"else":      KindElse,
	"endif":     KindClose,
}

// KindFromKeyword maps a directive keyword to its Kind.
func KindFromKeyword(keyword string) (Kind, bool) {
	k, ok := keywords[keyword]
	return k, ok
}

// Keyword returns the directive keyword for the kind.
func (k Kind) Keyword() string {
	switch k {
	case KindOpen:
		return "ifversion"
	case KindElseIf:
		return "elsif"
	case KindElse:
		return "else"
	case KindClose:
		return "endif"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "OPEN"
	case KindElseIf:
		return "ELSE_IF"
	case KindElse:
		return "ELSE"
	case KindClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// HasCondition reports whether directives of this kind carry a condition.
func (k Kind) HasCondition() bool {
	return k == KindOpen || k == KindElseIf
}

// Event is one versioning directive found in the text.
type Event struct {
	Kind Kind
	// Condition is the trimmed condition text, empty for KindElse and KindClose.
	Condition string
	// Start is the byte offset of the "{%" opener.
	Start int
	// End is the byte offset just past the "%}" closer.
	End int
}

// Source returns the directive text as it appears in the document.
func (e Event) Source(text string) string {
	if e.Start < 0 || e.End > len(text) || e.Start > e.End {
		return ""
	}
	return text[e.Start:e.End]
}

func (e Event) String() string {
	if e.Kind.HasCondition() {
		return fmt.Sprintf("%s(%s)@%d-%d", e.Kind, e.Condition, e.Start, e.End)
	}
	return fmt.Sprintf("%s@%d-%d", e.Kind, e.Start, e.End)
}
