package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/versiontags/pkg/config"
	"github.com/walteh/versiontags/pkg/highlight"
	"go.lsp.dev/protocol"
)

func (me *Server) handleInitialize(ctx context.Context, raw json.RawMessage) (any, error) {
	logger := zerolog.Ctx(ctx)

	params, err := decodeParams[protocol.InitializeParams](protocol.MethodInitialize, raw)
	if err != nil {
		return nil, err
	}

	if params.InitializationOptions != nil {
		cfg, err := config.FromSettings(params.InitializationOptions)
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring initialization options")
		} else {
			me.SetConfig(cfg)
		}
	}

	if params.ClientInfo != nil {
		logger.Info().Str("client", params.ClientInfo.Name).Str("client_version", params.ClientInfo.Version).Msg("initializing")
	}

	me.mu.Lock()
	me.initialized = true
	me.mu.Unlock()

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			HoverProvider:             true,
			DocumentHighlightProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: Commands(),
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "versiontags",
			Version: me.version,
		},
	}, nil
}

func (me *Server) handleInitialized(ctx context.Context, _ json.RawMessage) (any, error) {
	zerolog.Ctx(ctx).Debug().Str("server_id", me.id).Msg("server initialized")
	return nil, nil
}

func (me *Server) handleShutdown(ctx context.Context, _ json.RawMessage) (any, error) {
	me.mu.Lock()
	me.shutdown = true
	decorators := me.decorators
	me.decorators = map[string]*highlight.Decorator{}
	me.mu.Unlock()

	for _, dec := range decorators {
		dec.Clear(ctx)
	}

	zerolog.Ctx(ctx).Debug().Msg("server shut down")
	return nil, nil
}

func (me *Server) handleExit(ctx context.Context, _ json.RawMessage) (any, error) {
	me.exitOnce.Do(func() {
		close(me.exited)
	})
	return nil, nil
}

// Every request finishes before the next one is read, so by the time a
// cancellation arrives there is nothing left to cancel.
func (me *Server) handleCancelRequest(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.CancelParams](protocol.MethodCancelRequest, raw)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Trace().Interface("id", params.ID).Msg("cancel request ignored")
	return nil, nil
}

func (me *Server) handleDidChangeConfiguration(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[protocol.DidChangeConfigurationParams](protocol.MethodWorkspaceDidChangeConfiguration, raw)
	if err != nil {
		return nil, err
	}

	cfg, err := config.FromSettings(params.Settings)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ignoring configuration change")
		return nil, nil
	}

	me.SetConfig(cfg)
	zerolog.Ctx(ctx).Debug().Int("palette", len(cfg.Palette)).Strs("files", cfg.Files).Msg("configuration changed")
	return nil, nil
}
