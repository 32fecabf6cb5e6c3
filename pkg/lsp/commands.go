package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/message"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

// Report is the result of a run command.
type Report struct {
	Message    string      `json:"message"`
	Path       []string    `json:"path"`
	Highlights []Highlight `json:"highlights"`
}

// Highlight is one tag-set painted by a run.
type Highlight struct {
	Level  int              `json:"level"`
	SetID  int              `json:"setId"`
	Style  highlight.Style  `json:"style"`
	Ranges []protocol.Range `json:"ranges"`
}

// RemoveDecorationsParams is the argument of versionTags.removeDecorations.
type RemoveDecorationsParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
}

func (me *Server) handleExecuteCommand(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.ExecuteCommandParams](protocol.MethodWorkspaceExecuteCommand, raw)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("command", params.Command).Int("args", len(params.Arguments)).Msg("executing command")

	switch params.Command {
	case CommandRunModal, CommandRunToast, CommandRun:
		var pos protocol.TextDocumentPositionParams
		if err := commandArgument(params, &pos); err != nil {
			return nil, err
		}

		mode := message.ModeToast
		switch params.Command {
		case CommandRunModal:
			mode = message.ModeModal
		case CommandRun:
			_, cfg := me.state()
			mode = cfg.PresentationMode()
		}

		return me.run(ctx, mode, pos)

	case CommandRemoveDecorations:
		var rm RemoveDecorationsParams
		if err := commandArgument(params, &rm); err != nil {
			return nil, err
		}
		if _, ok := me.documents.Get(rm.TextDocument.URI); !ok {
			return nil, nil
		}
		me.decorator(rm.TextDocument.URI).Clear(ctx)
		return nil, nil

	default:
		return nil, invalidParams(protocol.MethodWorkspaceExecuteCommand, errors.Errorf("unknown command %q", params.Command))
	}
}

// commandArgument decodes the first command argument into v. Arguments arrive
// as generic JSON values.
func commandArgument(params *protocol.ExecuteCommandParams, v any) error {
	if len(params.Arguments) == 0 {
		return invalidParams(params.Command, errors.New("missing argument"))
	}
	data, err := json.Marshal(params.Arguments[0])
	if err != nil {
		return invalidParams(params.Command, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalidParams(params.Command, err)
	}
	return nil
}

// run describes the versioning at a cursor: it highlights the tag-sets on the
// Active-Path and shows the message. Without an active document it does
// nothing and returns nil.
func (me *Server) run(ctx context.Context, mode message.Mode, params protocol.TextDocumentPositionParams) (*Report, error) {
	logger := zerolog.Ctx(ctx)

	lk, ok := me.resolveAt(ctx, params)
	if !ok {
		return nil, nil
	}

	_, cfg := me.state()
	groups := highlight.Select(lk.res, lk.index, cfg.Palette)

	if err := me.decorator(params.TextDocument.URI).Replace(ctx, groups); err != nil {
		logger.Warn().Err(err).Str("uri", string(params.TextDocument.URI)).Msg("decorating tag-sets")
	}

	report := &Report{
		Message:    message.Compose(lk.res.Path, lk.place),
		Path:       lk.res.Descriptions(),
		Highlights: make([]Highlight, len(groups)),
	}
	for i, g := range groups {
		h := Highlight{Level: g.Level, SetID: g.SetID, Style: g.Style, Ranges: make([]protocol.Range, len(g.Ranges))}
		for j, rng := range g.Ranges {
			h.Ranges[j] = rng.ToLSP()
		}
		report.Highlights[i] = h
	}

	if err := me.show(ctx, mode, report.Message); err != nil {
		logger.Warn().Err(err).Stringer("mode", mode).Msg("showing message")
	}

	return report, nil
}

// show presents msg to the user. A modal message waits for the user, so the
// request is made off the read loop.
func (me *Server) show(ctx context.Context, mode message.Mode, msg string) error {
	client, _ := me.state()
	if client == nil {
		return errors.New("no client connected")
	}

	if mode != message.ModeModal {
		if err := client.Notify(ctx, protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
			Type:    protocol.MessageTypeInfo,
			Message: msg,
		}); err != nil {
			return errors.Errorf("sending %s: %w", protocol.MethodWindowShowMessage, err)
		}
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	me.pending.Add(1)
	go func() {
		defer me.pending.Done()

		var picked *protocol.MessageActionItem
		err := client.Call(ctx, protocol.MethodWindowShowMessageRequest, &protocol.ShowMessageRequestParams{
			Type:    protocol.MessageTypeInfo,
			Message: msg,
			Actions: []protocol.MessageActionItem{{Title: "OK"}},
		}, &picked)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("modal message failed")
			return
		}
		if picked != nil {
			zerolog.Ctx(ctx).Trace().Str("action", picked.Title).Msg("modal message answered")
		}
	}()
	return nil
}

