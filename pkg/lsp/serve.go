package lsp

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"gitlab.com/tozd/go/errors"
)

type serveOptions struct {
	logWriter *LSPWriter
	rpcLogger jsonrpc2.Logger
}

type ServeOpt func(*serveOptions)

// WithLogForwarding attaches the connection to w once it is up, so log lines
// reach the editor as window/logMessage.
func WithLogForwarding(w *LSPWriter) ServeOpt {
	return func(o *serveOptions) {
		o.logWriter = w
	}
}

// WithRPCLogger logs connection level problems. It must not write to the
// connection itself.
func WithRPCLogger(logger jsonrpc2.Logger) ServeOpt {
	return func(o *serveOptions) {
		o.rpcLogger = logger
	}
}

// Serve runs the server on rwc until the client exits, disconnects or ctx is
// done. It returns after every pending modal request has finished.
func (me *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser, opts ...ServeOpt) error {
	o := &serveOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.Ctx(ctx)

	var connOpts []jsonrpc2.ConnOpt
	if o.rpcLogger != nil {
		connOpts = append(connOpts, jsonrpc2.SetLogger(o.rpcLogger))
	}

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, me.Handler(), connOpts...)

	me.SetClient(conn)
	if o.logWriter != nil {
		o.logWriter.SetClient(conn)
	}

	logger.Info().Str("server_id", me.id).Str("version", me.version).Msg("language server listening")

	var reason string
	select {
	case <-ctx.Done():
		reason = "context done"
	case <-conn.DisconnectNotify():
		reason = "client disconnected"
	case <-me.Exited():
		reason = "client exited"
	}

	if o.logWriter != nil {
		o.logWriter.SetClient(nil)
	}
	me.SetClient(nil)

	err := conn.Close()
	me.Wait()

	logger.Info().Str("reason", reason).Msg("language server stopped")

	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		return errors.Errorf("closing connection: %w", err)
	}
	return nil
}
