// Package diff renders readable differences between values for test failures.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

func printer() *pp.PrettyPrinter {
	p := pp.New()
	p.SetExportedOnly(true)
	p.SetColoringEnabled(false)
	return p
}

// Exported pretty prints both values (exported fields only) and returns a
// line diff, or "" when they print the same.
func Exported[T any](want T, got T) string {
	p := printer()
	d := diff.Diff(p.Sprint(got), p.Sprint(want))
	if d == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nto turn GOT into WANT:\n\n")
	b.WriteString("add:    ➕\nremove: ➖\n\n")
	b.WriteString(strings.NewReplacer("\n-", "\n➖", "\n+", "\n➕").Replace("\n" + d))
	return b.String()
}
