package tags

import (
	"context"
	"iter"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/rs/zerolog"
)

// directive accumulates the tokens of one `{% ... %}` while it is being lexed.
type directive struct {
	start     int
	kind      Kind
	rejected  bool
	condStart int
	condEnd   int
}

func newDirective(start int) *directive {
	return &directive{start: start, condStart: -1, condEnd: -1}
}

// add feeds one token from inside the directive.
func (d *directive) add(tok lexer.Token) {
	if d.rejected {
		return
	}

	if d.kind == 0 {
		if tok.Type != tokenKeyword {
			// some other liquid tag, like {% if %} or {% data %}
			d.rejected = true
			return
		}
		d.kind, _ = KindFromKeyword(tok.Value)
		return
	}

	if d.condStart < 0 {
		d.condStart = tok.Pos.Offset
	}
	d.condEnd = tok.Pos.Offset + len(tok.Value)
}

// finish turns the directive into an Event once its closer has been read.
func (d *directive) finish(text string, end int) (Event, bool) {
	if d.rejected || d.kind == 0 {
		return Event{}, false
	}

	ev := Event{Kind: d.kind, Start: d.start, End: end}

	if d.kind.HasCondition() {
		if d.condStart < 0 {
			return Event{}, false
		}
		ev.Condition = text[d.condStart:d.condEnd]
	}

	return ev, true
}

// Scan returns the versioning directives of text in document order.
//
// The sequence is lazy and restartable: every range over it lexes the text
// again from the start.
//
//	for ev := range tags.Scan(ctx, text) {
//	    fmt.Println(ev.Kind, ev.Condition)
//	}
func Scan(ctx context.Context, text string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		lex, err := DirectiveLexer.LexString("", text)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("creating directive lexer")
			return
		}

		var cur *directive

		for {
			tok, err := lex.Next()
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Msg("lexing directives")
				return
			}
			if tok.EOF() {
				return
			}

			switch tok.Type {
			case tokenDirectiveOpen:
				cur = newDirective(tok.Pos.Offset)
			case tokenDirectiveClose:
				if cur == nil {
					continue
				}
				ev, ok := cur.finish(text, tok.Pos.Offset+len(tok.Value))
				cur = nil
				if ok && !yield(ev) {
					return
				}
			case tokenWhitespace:
				continue
			case tokenKeyword, tokenWord, tokenPunct:
				if cur != nil {
					cur.add(tok)
				}
			}
		}
	}
}

// ScanAll collects the whole of Scan into a slice.
func ScanAll(ctx context.Context, text string) []Event {
	var out []Event
	for ev := range Scan(ctx, text) {
		out = append(out, ev)
	}
	return out
}
