// Package tags finds the ifversion/elsif/else/endif directives in a document.
package tags

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// LexerRules splits a document into plain text and `{% ... %}` directives.
	// Inside a directive everything is tokenized, so the scanner can tell the
	// versioning keywords apart from any other liquid tag.
	LexerRules = lexer.Rules{
		"Root": {
			{Name: "DirectiveOpen", Pattern: `\{%-?`, Action: lexer.Push("Directive")},
			{Name: "Text", Pattern: `[^{]+`, Action: nil},
			{Name: "Brace", Pattern: `\{`, Action: nil},
		},
		"Directive": {
			{Name: "Whitespace", Pattern: `\s+`, Action: nil},
			{Name: "Keyword", Pattern: `(?:ifversion|elsif|else|endif)\b`, Action: nil},
			{Name: "DirectiveClose", Pattern: `-?%\}`, Action: lexer.Pop()},
			// an opener before the closer means the previous directive was never finished
			{Name: "DirectiveOpen", Pattern: `\{%-?`, Action: nil},
			{Name: "Word", Pattern: `[^%\s{-]+`, Action: nil},
			{Name: "Punct", Pattern: `[%{-]`, Action: nil},
		},
	}

	// DirectiveLexer is the stateful lexer used by Scan.
	DirectiveLexer = lexer.MustStateful(LexerRules)
)

var (
	symbols = DirectiveLexer.Symbols()

	tokenDirectiveOpen  = symbols["DirectiveOpen"]
	tokenDirectiveClose = symbols["DirectiveClose"]
	tokenWhitespace     = symbols["Whitespace"]
	tokenKeyword        = symbols["Keyword"]
	tokenWord           = symbols["Word"]
	tokenPunct          = symbols["Punct"]
)
