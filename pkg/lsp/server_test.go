package lsp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/versiontags/pkg/config"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/lsp"
	"go.lsp.dev/protocol"
)

const testURI = protocol.DocumentURI("file:///docs/content/page.md")

const testDocument = "{% ifversion fpt %}\nhello\n{% endif %}\n"

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.TestWriter{T: t}).With().Str("test", t.Name()).Logger().WithContext(context.Background())
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func dispatch(t *testing.T, ctx context.Context, s *lsp.Server, method string, params any) any {
	t.Helper()
	result, err := s.Dispatch(ctx, method, mustJSON(t, params))
	require.NoError(t, err, "dispatching %s", method)
	return result
}

func requireRPCError(t *testing.T, err error, code int64) {
	t.Helper()
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, code, rpcErr.Code)
}

// setup returns an initialized server with testDocument open.
func setup(t *testing.T) (context.Context, *lsp.Server, *MockClient) {
	ctx := testContext(t)
	client := &MockClient{}
	s := lsp.NewServer(ctx, lsp.WithVersion("test"))
	s.SetClient(client)

	dispatch(t, ctx, s, protocol.MethodInitialize, &protocol.InitializeParams{})
	dispatch(t, ctx, s, protocol.MethodInitialized, &protocol.InitializedParams{})
	openDocument(t, ctx, s, testURI, testDocument)

	return ctx, s, client
}

func openDocument(t *testing.T, ctx context.Context, s *lsp.Server, uri protocol.DocumentURI, text string) {
	dispatch(t, ctx, s, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "markdown",
			Version:    1,
			Text:       text,
		},
	})
}

func runCommand(t *testing.T, ctx context.Context, s *lsp.Server, command string, uri protocol.DocumentURI, line, character uint32) *lsp.Report {
	t.Helper()
	result := dispatch(t, ctx, s, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{
		Command: command,
		Arguments: []any{
			protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: line, Character: character},
			},
		},
	})
	report, _ := result.(*lsp.Report)
	return report
}

func rng(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}

func isDecorate(style highlight.Style, ranges ...protocol.Range) any {
	return mock.MatchedBy(func(p *lsp.DecorateParams) bool {
		return p.URI == testURI && p.ID != "" && p.Style == style && assert.ObjectsAreEqual(ranges, p.Ranges)
	})
}

func isMessage(text string) any {
	return mock.MatchedBy(func(p *protocol.ShowMessageParams) bool {
		return p.Type == protocol.MessageTypeInfo && p.Message == text
	})
}

func TestDispatchLifecycle(t *testing.T) {
	ctx := testContext(t)
	s := lsp.NewServer(ctx)

	_, err := s.Dispatch(ctx, protocol.MethodTextDocumentHover, nil)
	requireRPCError(t, err, -32002)

	_, err = s.Dispatch(ctx, "textDocument/formatting", nil)
	requireRPCError(t, err, jsonrpc2.CodeMethodNotFound)

	result := dispatch(t, ctx, s, protocol.MethodInitialize, &protocol.InitializeParams{
		ClientInfo: &protocol.ClientInfo{Name: "editor", Version: "1.0"},
	})
	initResult, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, initResult.ServerInfo)
	assert.Equal(t, "versiontags", initResult.ServerInfo.Name)
	assert.Equal(t, true, initResult.Capabilities.HoverProvider)
	assert.Equal(t, true, initResult.Capabilities.DocumentHighlightProvider)
	require.NotNil(t, initResult.Capabilities.ExecuteCommandProvider)
	assert.Equal(t, lsp.Commands(), initResult.Capabilities.ExecuteCommandProvider.Commands)

	_, err = s.Dispatch(ctx, protocol.MethodTextDocumentHover, mustJSON(t, &protocol.HoverParams{}))
	require.NoError(t, err)

	dispatch(t, ctx, s, protocol.MethodShutdown, nil)

	_, err = s.Dispatch(ctx, protocol.MethodTextDocumentHover, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidRequest)

	select {
	case <-s.Exited():
		t.Fatal("exited before exit")
	default:
	}

	dispatch(t, ctx, s, protocol.MethodExit, nil)
	dispatch(t, ctx, s, protocol.MethodExit, nil)
	<-s.Exited()
}

func TestDispatchInvalidParams(t *testing.T) {
	ctx, s, _ := setup(t)

	_, err := s.Dispatch(ctx, protocol.MethodTextDocumentDidOpen, json.RawMessage(`{"textDocument": 12}`))
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)
}

func TestInitializeOptions(t *testing.T) {
	ctx := testContext(t)
	s := lsp.NewServer(ctx)

	dispatch(t, ctx, s, protocol.MethodInitialize, &protocol.InitializeParams{
		InitializationOptions: map[string]any{
			"versionTags": map[string]any{
				"colorPairs": []any{map[string]any{"backgroundColor": "pink", "color": "black"}},
				"mode":       "modal",
			},
		},
	})

	assert.Equal(t, highlight.Palette{{BackgroundColor: "pink", ForegroundColor: "black"}}, s.Config().Palette)
	assert.Equal(t, "modal", s.Config().Mode)
}

func TestRunToast(t *testing.T) {
	ctx, s, client := setup(t)

	want := "The inline versioning at the cursor position (line 2, character 3) is:\n\nfpt"

	client.On("Notify", mock.Anything, lsp.MethodDecorate, isDecorate(
		highlight.Style{BackgroundColor: "red", ForegroundColor: "white"},
		rng(0, 0, 0, 19), rng(2, 0, 2, 11),
	)).Return(nil).Once()
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, isMessage(want)).Return(nil).Once()

	report := runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 2)
	require.NotNil(t, report)

	assert.Equal(t, want, report.Message)
	assert.Equal(t, []string{"fpt"}, report.Path)
	require.Len(t, report.Highlights, 1)
	assert.Equal(t, 1, report.Highlights[0].SetID)
	assert.Equal(t, 0, report.Highlights[0].Level)
	assert.Equal(t, []protocol.Range{rng(0, 0, 0, 19), rng(2, 0, 2, 11)}, report.Highlights[0].Ranges)

	client.AssertExpectations(t)
}

func TestRunNoVersioning(t *testing.T) {
	ctx, s, client := setup(t)

	want := "There is no inline versioning at the cursor position (line 4, character 1)."
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, isMessage(want)).Return(nil).Once()

	report := runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 3, 0)
	require.NotNil(t, report)
	assert.Empty(t, report.Path)
	assert.Empty(t, report.Highlights)

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "Notify", mock.Anything, lsp.MethodDecorate, mock.Anything)
}

func TestRunModal(t *testing.T) {
	ctx, s, client := setup(t)

	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Return(nil).Once()
	client.On("Call", mock.Anything, protocol.MethodWindowShowMessageRequest, mock.MatchedBy(func(p *protocol.ShowMessageRequestParams) bool {
		return p.Message == "The inline versioning at the cursor position (line 2, character 1) is:\n\nfpt" &&
			len(p.Actions) == 1 && p.Actions[0].Title == "OK"
	}), mock.Anything).Return(nil).Once()

	report := runCommand(t, ctx, s, lsp.CommandRunModal, testURI, 1, 0)
	require.NotNil(t, report)

	s.Wait()
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "Notify", mock.Anything, protocol.MethodWindowShowMessage, mock.Anything)
}

func TestRunUsesConfiguredMode(t *testing.T) {
	ctx, s, client := setup(t)

	cfg := config.Default()
	cfg.Mode = "modal"
	s.SetConfig(cfg)

	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Return(nil).Once()
	client.On("Call", mock.Anything, protocol.MethodWindowShowMessageRequest, mock.Anything, mock.Anything).Return(nil).Once()

	runCommand(t, ctx, s, lsp.CommandRun, testURI, 1, 0)

	s.Wait()
	client.AssertExpectations(t)
}

func TestRunReplacesDecorations(t *testing.T) {
	ctx, s, client := setup(t)

	var first string
	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Run(func(args mock.Arguments) {
		if first == "" {
			first = args.Get(2).(*lsp.DecorateParams).ID
		}
	}).Return(nil).Twice()
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, mock.Anything).Return(nil).Twice()
	client.On("Notify", mock.Anything, lsp.MethodDispose, mock.MatchedBy(func(p *lsp.DisposeParams) bool {
		return p.ID == first && p.URI == testURI
	})).Return(nil).Once()

	runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 0)
	runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 3)

	client.AssertExpectations(t)
}

func TestRunWithoutActiveDocument(t *testing.T) {
	t.Run("unknown document", func(t *testing.T) {
		ctx, s, client := setup(t)

		report := runCommand(t, ctx, s, lsp.CommandRunToast, "file:///docs/other.md", 1, 0)
		assert.Nil(t, report)
		client.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("document excluded by config", func(t *testing.T) {
		ctx, s, client := setup(t)

		cfg := config.Default()
		cfg.Files = []string{"**/*.yml"}
		s.SetConfig(cfg)

		report := runCommand(t, ctx, s, lsp.CommandRunModal, testURI, 1, 0)
		assert.Nil(t, report)
		s.Wait()
		client.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunWithFailingClient(t *testing.T) {
	ctx, s, client := setup(t)

	client.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	report := runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 0)
	require.NotNil(t, report, "client failures are logged, the run still reports")
	assert.Equal(t, []string{"fpt"}, report.Path)
}

func TestEditClearsDecorations(t *testing.T) {
	ctx, s, client := setup(t)

	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, lsp.MethodDispose, mock.Anything).Return(nil).Once()

	runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 0)

	dispatch(t, ctx, s, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "plain text"}},
	})

	client.AssertExpectations(t)

	doc, ok := s.Documents().Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "plain text", doc.Content)
	assert.Equal(t, int32(2), doc.Version)
}

func TestSaveWithText(t *testing.T) {
	ctx, s, _ := setup(t)

	dispatch(t, ctx, s, protocol.MethodTextDocumentDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Text:         "saved",
	})

	doc, ok := s.Documents().Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "saved", doc.Content)
}

func TestCloseForgetsDocument(t *testing.T) {
	ctx, s, client := setup(t)

	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, lsp.MethodDispose, mock.Anything).Return(nil).Once()

	runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 0)

	dispatch(t, ctx, s, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})

	client.AssertExpectations(t)
	assert.Equal(t, 0, s.Documents().Len())
}

func TestRemoveDecorations(t *testing.T) {
	ctx, s, client := setup(t)

	client.On("Notify", mock.Anything, lsp.MethodDecorate, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, protocol.MethodWindowShowMessage, mock.Anything).Return(nil).Once()
	client.On("Notify", mock.Anything, lsp.MethodDispose, mock.Anything).Return(nil).Once()

	runCommand(t, ctx, s, lsp.CommandRunToast, testURI, 1, 0)

	dispatch(t, ctx, s, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{
		Command:   lsp.CommandRemoveDecorations,
		Arguments: []any{lsp.RemoveDecorationsParams{TextDocument: protocol.TextDocumentIdentifier{URI: testURI}}},
	})

	// nothing left to dispose
	dispatch(t, ctx, s, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{
		Command:   lsp.CommandRemoveDecorations,
		Arguments: []any{lsp.RemoveDecorationsParams{TextDocument: protocol.TextDocumentIdentifier{URI: testURI}}},
	})

	client.AssertExpectations(t)
}

func TestExecuteCommandErrors(t *testing.T) {
	ctx, s, _ := setup(t)

	tests := []struct {
		name   string
		params *protocol.ExecuteCommandParams
	}{
		{
			name:   "missing argument",
			params: &protocol.ExecuteCommandParams{Command: lsp.CommandRunToast},
		},
		{
			name:   "argument of the wrong shape",
			params: &protocol.ExecuteCommandParams{Command: lsp.CommandRunModal, Arguments: []any{"page.md"}},
		},
		{
			name:   "unknown command",
			params: &protocol.ExecuteCommandParams{Command: "versionTags.unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Dispatch(ctx, protocol.MethodWorkspaceExecuteCommand, mustJSON(t, tt.params))
			requireRPCError(t, err, jsonrpc2.CodeInvalidParams)
		})
	}
}

func TestHover(t *testing.T) {
	ctx, s, _ := setup(t)

	hoverAt := func(line, character uint32) any {
		return dispatch(t, ctx, s, protocol.MethodTextDocumentHover, &protocol.HoverParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
				Position:     protocol.Position{Line: line, Character: character},
			},
		})
	}

	hover, ok := hoverAt(1, 1).(*protocol.Hover)
	require.True(t, ok)
	assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
	assert.Equal(t, "**ifversion**\n\n```\nfpt\n```", hover.Contents.Value)
	require.NotNil(t, hover.Range)
	assert.Equal(t, rng(0, 0, 0, 19), *hover.Range)

	assert.Nil(t, hoverAt(3, 0))
	assert.Nil(t, hoverAt(0, 4), "inside the open tag is outside the tag-set")
}

func TestDocumentHighlight(t *testing.T) {
	ctx, s, _ := setup(t)

	nested := "{% ifversion fpt %}\n{% ifversion ghes %}\nx\n{% else %}\ny\n{% endif %}\n{% endif %}"
	uri := protocol.DocumentURI("file:///docs/nested.md")
	openDocument(t, ctx, s, uri, nested)

	result := dispatch(t, ctx, s, protocol.MethodTextDocumentDocumentHighlight, &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 4, Character: 0},
		},
	})

	highlights, ok := result.([]protocol.DocumentHighlight)
	require.True(t, ok)
	require.Len(t, highlights, 3, "open, else and close of the inner tag-set")
	assert.Equal(t, rng(1, 0, 1, 20), highlights[0].Range)
	assert.Equal(t, rng(3, 0, 3, 10), highlights[1].Range)
	assert.Equal(t, rng(5, 0, 5, 11), highlights[2].Range)
	for _, h := range highlights {
		assert.Equal(t, protocol.DocumentHighlightKindText, h.Kind)
	}

	outside := dispatch(t, ctx, s, protocol.MethodTextDocumentDocumentHighlight, &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	assert.Empty(t, outside)
}

func TestDidChangeConfiguration(t *testing.T) {
	ctx, s, _ := setup(t)

	dispatch(t, ctx, s, protocol.MethodWorkspaceDidChangeConfiguration, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"versionTags": map[string]any{
				"files": []any{"content/**/*.md"},
			},
		},
	})
	assert.Equal(t, []string{"content/**/*.md"}, s.Config().Files)
	assert.Equal(t, highlight.DefaultPalette(), s.Config().Palette)

	// invalid settings keep the current config
	dispatch(t, ctx, s, protocol.MethodWorkspaceDidChangeConfiguration, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"versionTags": map[string]any{
				"mode": "popup",
			},
		},
	})
	assert.Equal(t, []string{"content/**/*.md"}, s.Config().Files)
}
