package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	documents []commonModels.DocumentRecord
	askErr    error
	fetchErr  error
}

func (f *fakeBackend) Put(_ context.Context, destination, _ string, _ []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append([]commonModels.DocumentRecord{{ID: "new", Name: filepath.Base(destination), URL: destination}}, f.documents...)
	return 201, nil
}

func (f *fakeBackend) FetchDocuments(context.Context, string) ([]commonModels.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]commonModels.DocumentRecord(nil), f.documents...), nil
}

func (f *fakeBackend) Ask(_ context.Context, question, _ string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	return "answer to " + question + " (week1.pdf)", nil
}

func connect(t *testing.T, backend *fakeBackend) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	orchestrator := session.New(session.Config{UserID: "u1", UploadURL: "http://store/uploads"}, backend)
	t.Cleanup(orchestrator.Close)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := New(orchestrator, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func TestToolsAreListed(t *testing.T) {
	cs := connect(t, &fakeBackend{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ask_question", "list_documents", "open_document", "session_view", "upload_pdf"}, names)
}

func TestListAndOpen(t *testing.T) {
	backend := &fakeBackend{documents: []commonModels.DocumentRecord{
		{ID: "1", Name: "week1.pdf", URL: "http://files/u1/week1.pdf"},
	}}
	cs := connect(t, backend)

	var listed ListDocumentsOutput
	call(t, cs, "list_documents", map[string]any{}, &listed)
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, "week1.pdf", listed.Documents[0].Name)

	var opened OpenDocumentOutput
	res := call(t, cs, "open_document", map[string]any{"document": "week1.pdf"}, &opened)
	require.False(t, res.IsError)
	assert.Equal(t, "http://files/u1/week1.pdf", opened.Document.URL)

	res = call(t, cs, "open_document", map[string]any{"document": "missing.pdf"}, nil)
	assert.True(t, res.IsError)

	var view SessionViewOutput
	call(t, cs, "session_view", map[string]any{}, &view)
	assert.Equal(t, "viewer", view.ActivePane)
	assert.Equal(t, "missing.pdf", view.Selection, "a dangling selection is kept")
}

func TestCatalogFailureShowsGenericMessage(t *testing.T) {
	backend := &fakeBackend{fetchErr: &sessionModel.ServiceError{
		Operation: "documents", StatusCode: 500, Message: "redis: dial tcp 10.1.2.3:6379: i/o timeout",
	}}
	cs := connect(t, backend)

	for _, tc := range []struct {
		tool string
		args map[string]any
	}{
		{"list_documents", map[string]any{}},
		{"open_document", map[string]any{"document": "week1.pdf"}},
	} {
		res := call(t, cs, tc.tool, tc.args, nil)
		require.True(t, res.IsError, tc.tool)
		require.NotEmpty(t, res.Content)
		text := res.Content[0].(*mcp.TextContent).Text
		assert.Contains(t, text, config.CatalogFailedMessage, tc.tool)
		assert.NotContains(t, text, "redis", tc.tool)
	}

	var view SessionViewOutput
	call(t, cs, "session_view", map[string]any{}, &view)
	assert.Equal(t, config.CatalogFailedMessage, view.CatalogError)
}

func TestAskQuestion(t *testing.T) {
	backend := &fakeBackend{}
	cs := connect(t, backend)

	var answer AskQuestionOutput
	res := call(t, cs, "ask_question", map[string]any{"question": "what is osmosis?"}, &answer)
	require.False(t, res.IsError)
	assert.Equal(t, "answer to what is osmosis? (week1.pdf)", answer.Answer)

	res = call(t, cs, "ask_question", map[string]any{"question": "   "}, nil)
	assert.True(t, res.IsError)

	backend.askErr = errors.New("connection refused")
	res = call(t, cs, "ask_question", map[string]any{"question": "again?"}, nil)
	assert.True(t, res.IsError)

	var view SessionViewOutput
	call(t, cs, "session_view", map[string]any{}, &view)
	require.Len(t, view.Transcript, 4)
	assert.Equal(t, "error", view.Transcript[3].Role)
}

func TestUploadPDF(t *testing.T) {
	backend := &fakeBackend{}
	cs := connect(t, backend)

	var uploaded UploadPDFOutput
	res := call(t, cs, "upload_pdf", map[string]any{
		"name":           "week2.pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
	}, &uploaded)
	require.False(t, res.IsError)
	assert.Equal(t, "Succeeded", uploaded.Status)
	assert.Equal(t, "http://store/uploads/u1/week2.pdf", uploaded.Location)

	var listed ListDocumentsOutput
	call(t, cs, "list_documents", map[string]any{}, &listed)
	require.Len(t, listed.Documents, 1)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o600))
	res = call(t, cs, "upload_pdf", map[string]any{"path": path}, nil)
	assert.True(t, res.IsError, "non-pdf files are refused")

	res = call(t, cs, "upload_pdf", map[string]any{}, nil)
	assert.True(t, res.IsError)
}
