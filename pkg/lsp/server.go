// Package lsp is the language server that exposes version-tag resolution to
// editors: commands that describe the versioning at the cursor, decorations
// for the matching tag-sets, hover and document highlights.
package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/versiontags/pkg/config"
	"github.com/walteh/versiontags/pkg/highlight"
	"go.lsp.dev/protocol"
)

// codeServerNotInitialized is the LSP error for requests before initialize.
const codeServerNotInitialized = -32002

// Server is an LSP server instance.
type Server struct {
	documents *DocumentManager

	// mu guards the fields below, the config watcher writes from its own
	// goroutine.
	mu          sync.Mutex
	cfg         *config.Config
	decorators  map[string]*highlight.Decorator
	client      Client
	initialized bool
	shutdown    bool

	exited   chan struct{}
	exitOnce sync.Once

	// pending tracks modal requests waiting on the editor.
	pending sync.WaitGroup

	id      string
	version string
}

type ServerOpt func(*Server)

func WithConfig(cfg *config.Config) ServerOpt {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

func WithVersion(version string) ServerOpt {
	return func(s *Server) {
		s.version = version
	}
}

func NewServer(ctx context.Context, opts ...ServerOpt) *Server {
	me := &Server{
		id:         xid.New().String(),
		documents:  NewDocumentManager(),
		cfg:        config.Default(),
		decorators: map[string]*highlight.Decorator{},
		exited:     make(chan struct{}),
		version:    "devel",
	}
	for _, opt := range opts {
		opt(me)
	}

	zerolog.Ctx(ctx).Debug().Str("server_id", me.id).Msg("language server created")

	return me
}

func (me *Server) ID() string {
	return me.id
}

func (me *Server) Documents() *DocumentManager {
	return me.documents
}

func (me *Server) SetClient(client Client) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.client = client
}

func (me *Server) Config() *config.Config {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.cfg
}

// SetConfig swaps the config. Decorations painted with the old palette stay
// until the next run.
func (me *Server) SetConfig(cfg *config.Config) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.cfg = cfg
}

// Exited is closed once the client sent exit.
func (me *Server) Exited() <-chan struct{} {
	return me.exited
}

// Wait blocks until every modal message has been answered.
func (me *Server) Wait() {
	me.pending.Wait()
}

func (me *Server) currentClient() Client {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.client
}

func (me *Server) state() (Client, *config.Config) {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.client, me.cfg
}

// decorator returns the decorator owning the decorations of one document.
func (me *Server) decorator(u protocol.DocumentURI) *highlight.Decorator {
	me.mu.Lock()
	defer me.mu.Unlock()

	key := normalizeURI(u)
	if dec, ok := me.decorators[key]; ok {
		return dec
	}
	dec := highlight.NewDecorator(&clientRenderer{client: me.currentClient, uri: u})
	me.decorators[key] = dec
	return dec
}

// forgetDecorator clears and drops the decorator of a document, if any.
func (me *Server) forgetDecorator(ctx context.Context, u protocol.DocumentURI) {
	me.mu.Lock()
	key := normalizeURI(u)
	dec, ok := me.decorators[key]
	delete(me.decorators, key)
	me.mu.Unlock()

	if ok {
		dec.Clear(ctx)
	}
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

func (me *Server) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.MethodInitialize:                      me.handleInitialize,
		protocol.MethodInitialized:                     me.handleInitialized,
		protocol.MethodShutdown:                        me.handleShutdown,
		protocol.MethodExit:                            me.handleExit,
		protocol.MethodCancelRequest:                   me.handleCancelRequest,
		protocol.MethodWorkspaceDidChangeConfiguration: me.handleDidChangeConfiguration,
		protocol.MethodTextDocumentDidOpen:             me.handleTextDocumentDidOpen,
		protocol.MethodTextDocumentDidChange:           me.handleTextDocumentDidChange,
		protocol.MethodTextDocumentDidClose:            me.handleTextDocumentDidClose,
		protocol.MethodTextDocumentDidSave:             me.handleTextDocumentDidSave,
		protocol.MethodTextDocumentHover:               me.handleTextDocumentHover,
		protocol.MethodTextDocumentDocumentHighlight:   me.handleTextDocumentDocumentHighlight,
		protocol.MethodWorkspaceExecuteCommand:         me.handleExecuteCommand,
	}
}

// Dispatch runs one request or notification. Protocol errors are returned as
// *jsonrpc2.Error so they reach the client with their code.
func (me *Server) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	logger := zerolog.Ctx(ctx)
	logger.Trace().Str("method", method).RawJSON("params", rawOrNull(params)).Msg("client message")

	handler, ok := me.handlers()[method]
	if !ok {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + method}
	}

	me.mu.Lock()
	initialized, shutdown := me.initialized, me.shutdown
	me.mu.Unlock()

	switch {
	case method == protocol.MethodInitialize || method == protocol.MethodExit:
	case !initialized:
		return nil, &jsonrpc2.Error{Code: codeServerNotInitialized, Message: "server not initialized"}
	case shutdown:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	result, err := handler(ctx, params)
	if err != nil {
		logger.Debug().Err(err).Str("method", method).Msg("handler failed")
	}
	return result, err
}

// Handler adapts the server to a jsonrpc2 connection. Requests are handled
// one at a time, in order.
func (me *Server) Handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return me.Dispatch(ctx, req.Method, params)
	}).SuppressErrClosed()
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

func invalidParams(method string, err error) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: method + ": " + err.Error()}
}

func decodeParams[T any](method string, raw json.RawMessage) (*T, error) {
	var params T
	if len(raw) == 0 {
		return &params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(method, err)
	}
	return &params, nil
}
