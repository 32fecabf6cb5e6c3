package lsp_test

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error {
	args := m.Called(ctx, method, params)
	return args.Error(0)
}

func (m *MockClient) Call(ctx context.Context, method string, params, result any, opts ...jsonrpc2.CallOption) error {
	args := m.Called(ctx, method, params, result)
	return args.Error(0)
}
