package lsp

import (
	"context"

	"github.com/google/uuid"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/position"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

// DecorateParams is the payload of versionTags/decorate.
type DecorateParams struct {
	URI    protocol.DocumentURI `json:"uri"`
	ID     string               `json:"id"`
	Style  highlight.Style      `json:"style"`
	Ranges []protocol.Range     `json:"ranges"`
}

// DisposeParams is the payload of versionTags/dispose.
type DisposeParams struct {
	URI protocol.DocumentURI `json:"uri"`
	ID  string               `json:"id"`
}

// clientRenderer asks the editor to paint decorations in one document. The
// client is looked up per call, decorators outlive reconnects.
type clientRenderer struct {
	client func() Client
	uri    protocol.DocumentURI
}

func (r *clientRenderer) Apply(ctx context.Context, style highlight.Style, ranges []position.Range) (highlight.Handle, error) {
	client := r.client()
	if client == nil {
		return nil, errors.New("no client connected")
	}

	params := &DecorateParams{
		URI:    r.uri,
		ID:     uuid.NewString(),
		Style:  style,
		Ranges: make([]protocol.Range, len(ranges)),
	}
	for i, rng := range ranges {
		params.Ranges[i] = rng.ToLSP()
	}

	if err := client.Notify(ctx, MethodDecorate, params); err != nil {
		return nil, errors.Errorf("sending %s: %w", MethodDecorate, err)
	}

	return &clientHandle{client: client, uri: r.uri, id: params.ID}, nil
}

type clientHandle struct {
	client Client
	uri    protocol.DocumentURI
	id     string
}

func (h *clientHandle) Dispose(ctx context.Context) error {
	if err := h.client.Notify(ctx, MethodDispose, &DisposeParams{URI: h.uri, ID: h.id}); err != nil {
		return errors.Errorf("sending %s for %s: %w", MethodDispose, h.id, err)
	}
	return nil
}
