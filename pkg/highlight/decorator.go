package highlight

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/walteh/versiontags/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Renderer paints ranges with a style.
type Renderer interface {
	Apply(ctx context.Context, style Style, ranges []position.Range) (Handle, error)
}

// Handle retracts what one Apply call painted.
type Handle interface {
	Dispose(ctx context.Context) error
}

// Decorator owns the decorations of one document. Every Replace retracts the
// previous decorations before painting new ones, nothing accumulates.
type Decorator struct {
	mu       sync.Mutex
	renderer Renderer
	handles  []Handle
}

func NewDecorator(renderer Renderer) *Decorator {
	return &Decorator{renderer: renderer}
}

// Replace disposes everything applied so far, then applies groups. Groups
// without a visible style are skipped.
func (me *Decorator) Replace(ctx context.Context, groups []Group) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.clear(ctx)

	for _, g := range groups {
		if !g.Visible() {
			continue
		}
		h, err := me.renderer.Apply(ctx, g.Style, g.Ranges)
		if err != nil {
			return errors.Errorf("applying style %s for tag-set %d: %w", g.Style, g.SetID, err)
		}
		me.handles = append(me.handles, h)
	}

	zerolog.Ctx(ctx).Trace().Int("groups", len(groups)).Int("applied", len(me.handles)).Msg("decorations replaced")

	return nil
}

// Clear disposes every decoration.
func (me *Decorator) Clear(ctx context.Context) {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.clear(ctx)
}

// Active is the number of applied decorations.
func (me *Decorator) Active() int {
	me.mu.Lock()
	defer me.mu.Unlock()

	return len(me.handles)
}

func (me *Decorator) clear(ctx context.Context) {
	var result *multierror.Error
	for _, h := range me.handles {
		if err := h.Dispose(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	me.handles = nil

	if err := result.ErrorOrNil(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("disposing decorations")
	}
}
