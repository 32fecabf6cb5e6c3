package highlight_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/position"
)

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Apply(ctx context.Context, style highlight.Style, ranges []position.Range) (highlight.Handle, error) {
	args := m.Called(ctx, style, ranges)
	if h := args.Get(0); h != nil {
		return h.(highlight.Handle), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockHandle struct {
	mock.Mock
}

func (m *MockHandle) Dispose(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
