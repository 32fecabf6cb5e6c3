package lsp

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
)

// Client is the editor side of the connection. *jsonrpc2.Conn satisfies it.
type Client interface {
	Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error
	Call(ctx context.Context, method string, params, result any, opts ...jsonrpc2.CallOption) error
}

var _ Client = (*jsonrpc2.Conn)(nil)

// Methods the server sends that are not part of LSP. Editors paint and
// retract decorations when they receive them.
const (
	MethodDecorate = "versionTags/decorate"
	MethodDispose  = "versionTags/dispose"
)

// Commands registered through workspace/executeCommand. Editors call
// CommandRemoveDecorations when the selection moves, LSP has no notification
// for it.
const (
	CommandRunModal          = "versionTags.runModal"
	CommandRunToast          = "versionTags.runToast"
	CommandRun               = "versionTags.run"
	CommandRemoveDecorations = "versionTags.removeDecorations"
)

// Commands lists every command the server advertises.
func Commands() []string {
	return []string{CommandRunModal, CommandRunToast, CommandRun, CommandRemoveDecorations}
}
