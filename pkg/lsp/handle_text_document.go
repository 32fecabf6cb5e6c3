package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/message"
	"github.com/walteh/versiontags/pkg/nesting"
	"github.com/walteh/versiontags/pkg/position"
	"go.lsp.dev/protocol"
)

func (me *Server) handleTextDocumentDidOpen(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DidOpenTextDocumentParams](protocol.MethodTextDocumentDidOpen, raw)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document opened")

	me.documents.Store(params.TextDocument.URI, &Document{
		URI:        params.TextDocument.URI,
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	})
	return nil, nil
}

// handleTextDocumentDidChange expects full document sync. Any edit clears the
// decorations of the document, their ranges are stale.
func (me *Server) handleTextDocumentDidChange(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DidChangeTextDocumentParams](protocol.MethodTextDocumentDidChange, raw)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)

	doc, ok := me.documents.Get(params.TextDocument.URI)
	if !ok {
		logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("change for unknown document")
		return nil, nil
	}
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	updated := *doc
	updated.Version = params.TextDocument.Version
	updated.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
	me.documents.Store(params.TextDocument.URI, &updated)

	me.decorator(params.TextDocument.URI).Clear(ctx)

	logger.Trace().Str("uri", string(params.TextDocument.URI)).Int32("version", updated.Version).Msg("document changed")
	return nil, nil
}

func (me *Server) handleTextDocumentDidClose(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DidCloseTextDocumentParams](protocol.MethodTextDocumentDidClose, raw)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")

	me.forgetDecorator(ctx, params.TextDocument.URI)
	me.documents.Delete(params.TextDocument.URI)
	return nil, nil
}

func (me *Server) handleTextDocumentDidSave(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DidSaveTextDocumentParams](protocol.MethodTextDocumentDidSave, raw)
	if err != nil {
		return nil, err
	}

	doc, ok := me.documents.Get(params.TextDocument.URI)
	if !ok || params.Text == "" || params.Text == doc.Content {
		return nil, nil
	}

	updated := *doc
	updated.Content = params.Text
	me.documents.Store(params.TextDocument.URI, &updated)
	me.decorator(params.TextDocument.URI).Clear(ctx)

	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document saved with new content")
	return nil, nil
}

// lookup is the resolver run shared by hover, highlights and commands.
type lookup struct {
	doc   *Document
	index *position.Index
	place position.Place
	res   *nesting.Resolution
}

// resolveAt returns false when there is no active document: unknown, or
// filtered out by the config.
func (me *Server) resolveAt(ctx context.Context, params protocol.TextDocumentPositionParams) (*lookup, bool) {
	logger := zerolog.Ctx(ctx)
	_, cfg := me.state()

	doc, ok := me.documents.Get(params.TextDocument.URI)
	if !ok {
		logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("no such document")
		return nil, false
	}
	if !cfg.Matches(doc.Path()) {
		logger.Debug().Str("path", doc.Path()).Msg("document excluded by config")
		return nil, false
	}

	idx := position.NewIndex(doc.Content)
	place := position.NewPlaceFromLSP(params.Position)

	return &lookup{
		doc:   doc,
		index: idx,
		place: place,
		res:   nesting.Resolve(ctx, doc.Content, idx.OffsetAt(place)),
	}, true
}

func (me *Server) handleTextDocumentHover(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.HoverParams](protocol.MethodTextDocumentHover, raw)
	if err != nil {
		return nil, err
	}

	lk, ok := me.resolveAt(ctx, params.TextDocumentPositionParams)
	if !ok || len(lk.res.Path) == 0 {
		return nil, nil
	}

	hover := &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: message.Markdown(lk.res.Path),
		},
	}

	// anchor the popup on the open tag of the innermost tag-set
	if members := lk.res.TagsInSet(lk.res.HighlightSet()); len(members) > 0 {
		open := members[0]
		rng := position.NewBasicPosition(lk.doc.Content[open.Start:open.End], open.Start).GetRange(lk.index).ToLSP()
		hover.Range = &rng
	}

	return hover, nil
}

// handleTextDocumentDocumentHighlight returns the tags of the innermost
// tag-set around the cursor.
func (me *Server) handleTextDocumentDocumentHighlight(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DocumentHighlightParams](protocol.MethodTextDocumentDocumentHighlight, raw)
	if err != nil {
		return nil, err
	}

	lk, ok := me.resolveAt(ctx, params.TextDocumentPositionParams)
	if !ok {
		return nil, nil
	}

	_, cfg := me.state()
	inner, ok := highlight.Innermost(highlight.Select(lk.res, lk.index, cfg.Palette))
	if !ok {
		return []protocol.DocumentHighlight{}, nil
	}

	out := make([]protocol.DocumentHighlight, len(inner.Ranges))
	for i, rng := range inner.Ranges {
		out[i] = protocol.DocumentHighlight{
			Range: rng.ToLSP(),
			Kind:  protocol.DocumentHighlightKindText,
		}
	}
	return out, nil
}
