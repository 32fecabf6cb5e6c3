// Package message turns an Active-Path into the text shown to the user.
package message

import (
	"fmt"
	"strings"

	"github.com/walteh/versiontags/pkg/nesting"
	"github.com/walteh/versiontags/pkg/position"
)

// Mode selects how the caller presents a message.
type Mode int

const (
	ModeToast Mode = iota
	ModeModal
)

func (m Mode) String() string {
	switch m {
	case ModeToast:
		return "toast"
	case ModeModal:
		return "modal"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toast", "":
		return ModeToast, true
	case "modal":
		return ModeModal, true
	default:
		return ModeToast, false
	}
}

// Compose describes path for a cursor at place. Line and character are shown
// 1-based.
func Compose(path []nesting.Level, place position.Place) string {
	where := fmt.Sprintf("(line %d, character %d)", place.Line+1, place.Character+1)

	if len(path) == 0 {
		return "There is no inline versioning at the cursor position " + where + "."
	}

	var sb strings.Builder
	sb.WriteString("The inline versioning at the cursor position ")
	sb.WriteString(where)
	sb.WriteString(" is:\n")
	for _, lvl := range path {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(lvl.Description))
	}
	return sb.String()
}

// Markdown renders the same content as Compose for hover popups.
func Markdown(path []nesting.Level) string {
	if len(path) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("**ifversion**\n\n```\n")
	for _, lvl := range path {
		sb.WriteString(strings.TrimSpace(lvl.Description))
		sb.WriteString("\n")
	}
	sb.WriteString("```")
	return sb.String()
}
