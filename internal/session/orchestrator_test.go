package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBackend is an in-memory storage, catalog and chat service.
type MockBackend struct {
	mu        sync.Mutex
	documents []commonModels.DocumentRecord
	fetches   int

	OnPut   func(destination string) (int, error)
	OnFetch func() error
	OnAsk   func(question string) (string, error)
}

func (m *MockBackend) Put(_ context.Context, destination, _ string, _ []byte) (int, error) {
	status, err := 201, error(nil)
	if m.OnPut != nil {
		status, err = m.OnPut(destination)
	}
	if err == nil {
		m.mu.Lock()
		m.documents = append([]commonModels.DocumentRecord{{ID: destination, URL: destination}}, m.documents...)
		m.mu.Unlock()
	}
	return status, err
}

func (m *MockBackend) FetchDocuments(context.Context, string) ([]commonModels.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.OnFetch != nil {
		if err := m.OnFetch(); err != nil {
			return nil, err
		}
	}
	out := make([]commonModels.DocumentRecord, len(m.documents))
	copy(out, m.documents)
	return out, nil
}

func (m *MockBackend) Ask(_ context.Context, question, _ string) (string, error) {
	if m.OnAsk != nil {
		return m.OnAsk(question)
	}
	return "answer to " + question, nil
}

func (m *MockBackend) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func newOrchestrator(t *testing.T, backend *MockBackend) *Orchestrator {
	t.Helper()
	o := New(Config{UserID: "u1", ThemeMode: "light", UploadURL: "http://store/uploads"}, backend)
	t.Cleanup(o.Close)
	return o
}

func pdf(name string) *sessionModel.LocalFile {
	return &sessionModel.LocalFile{Name: name, ContentType: config.PDFContentType, Data: []byte("%PDF-1.7")}
}

func TestStartLoadsCatalog(t *testing.T) {
	backend := &MockBackend{documents: []commonModels.DocumentRecord{{ID: "1", Name: "a.pdf", URL: "http://files/u1/a.pdf"}}}
	o := newOrchestrator(t, backend)

	require.NoError(t, o.Start(context.Background()))

	view := o.View()
	assert.Equal(t, sessionModel.PaneDocuments, view.ActivePane)
	assert.Equal(t, ThemeLight, view.Theme)
	assert.Len(t, view.Documents, 1)
	assert.False(t, view.CatalogLoading)
	assert.Empty(t, view.CatalogError)
	assert.False(t, view.HasSelection)
}

func TestStartWithoutUserDoesNothing(t *testing.T) {
	backend := &MockBackend{}
	o := New(Config{UploadURL: "http://store/uploads"}, backend)
	defer o.Close()

	assert.ErrorIs(t, o.Start(context.Background()), sessionModel.ErrMissingInput)
	assert.Zero(t, backend.fetchCount())
}

func TestStartFailureIsCatalogState(t *testing.T) {
	backend := &MockBackend{OnFetch: func() error { return errors.New("offline") }}
	o := newOrchestrator(t, backend)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, config.CatalogFailedMessage, o.View().CatalogError)

	backend.mu.Lock()
	backend.OnFetch = nil
	backend.mu.Unlock()
	require.NoError(t, o.Refresh(context.Background()))
	assert.Empty(t, o.View().CatalogError)
}

func TestRefreshFailureIsCatalogState(t *testing.T) {
	backend := &MockBackend{OnFetch: func() error {
		return &sessionModel.ServiceError{Operation: "documents", StatusCode: 500, Message: "redis: dial tcp 10.1.2.3:6379: i/o timeout"}
	}}
	o := newOrchestrator(t, backend)

	require.NoError(t, o.Refresh(context.Background()))
	assert.Equal(t, config.CatalogFailedMessage, o.View().CatalogError)

	withoutUser := New(Config{UploadURL: "http://store/uploads"}, backend)
	defer withoutUser.Close()
	assert.ErrorIs(t, withoutUser.Refresh(context.Background()), sessionModel.ErrMissingInput)
}

func TestSetPaneIgnoresUnknownPane(t *testing.T) {
	o := newOrchestrator(t, &MockBackend{})
	ch, cancel := o.Subscribe()
	defer cancel()

	o.SetPane(sessionModel.Pane("settings"))
	assert.Equal(t, sessionModel.PaneDocuments, o.View().ActivePane)
	assert.Zero(t, len(ch))

	o.SetPane(sessionModel.PaneChat)
	assert.Equal(t, sessionModel.PaneChat, o.View().ActivePane)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	o := New(Config{UserID: "u1", UploadURL: "http://store/uploads"}, &MockBackend{})
	ch, cancel := o.Subscribe()
	defer cancel()

	o.Close()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscription still open after Close")
	}
}

func TestUploadSuccessRefreshesCatalog(t *testing.T) {
	backend := &MockBackend{}
	o := newOrchestrator(t, backend)
	require.NoError(t, o.Start(context.Background()))
	require.Equal(t, 1, backend.fetchCount())

	o.SelectFile(pdf("notes.pdf"))
	_, err := o.Upload(context.Background())
	require.NoError(t, err)
	o.Wait()

	assert.Equal(t, 2, backend.fetchCount())
	view := o.View()
	require.Len(t, view.Documents, 1)
	assert.Equal(t, "http://store/uploads/u1/notes.pdf", view.Documents[0].URL)
	assert.Equal(t, sessionModel.UploadSucceeded, view.Upload.Status())
}

func TestUploadFailureDoesNotRefresh(t *testing.T) {
	backend := &MockBackend{OnPut: func(string) (int, error) {
		return 500, &sessionModel.ServiceError{Operation: "upload", StatusCode: 500}
	}}
	o := newOrchestrator(t, backend)
	require.NoError(t, o.Start(context.Background()))

	o.SelectFile(pdf("notes.pdf"))
	_, err := o.Upload(context.Background())
	require.Error(t, err)
	o.Wait()

	assert.Equal(t, 1, backend.fetchCount())
	assert.Equal(t, config.UploadFailedMessage, o.View().Upload.Message())
}

func TestSelectionSwitchesToViewer(t *testing.T) {
	o := newOrchestrator(t, &MockBackend{})
	ch, cancel := o.Subscribe()
	defer cancel()

	o.SetPane(sessionModel.PaneChat)
	o.Select("http://files/u1/a.pdf")

	view := o.View()
	assert.Equal(t, sessionModel.PaneViewer, view.ActivePane)
	assert.True(t, view.HasSelection)
	assert.Equal(t, sessionModel.DocumentRef("http://files/u1/a.pdf"), view.Selection)

	var types []events.EventType
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	assert.Equal(t, []events.EventType{events.EventPane, events.EventSelection, events.EventPane}, types)
}

func TestSelectionSurvivesRefresh(t *testing.T) {
	backend := &MockBackend{documents: []commonModels.DocumentRecord{{ID: "1", URL: "http://files/u1/a.pdf"}}}
	o := newOrchestrator(t, backend)
	require.NoError(t, o.Start(context.Background()))
	o.Select("http://files/u1/a.pdf")
	_, found := o.Lookup()
	require.True(t, found)

	backend.mu.Lock()
	backend.documents = nil
	backend.mu.Unlock()
	require.NoError(t, o.Refresh(context.Background()))

	view := o.View()
	assert.True(t, view.HasSelection)
	assert.Empty(t, view.Documents)
	_, found = o.Lookup()
	assert.False(t, found)
}

func TestChatIndependentOfUploads(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	backend := &MockBackend{OnPut: func(string) (int, error) {
		close(started)
		<-release
		return 201, nil
	}}
	o := newOrchestrator(t, backend)

	o.SelectFile(pdf("slow.pdf"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Upload(context.Background())
	}()
	<-started

	o.SetInput("what is entropy?")
	handled, err := o.HandleKey(context.Background(), sessionModel.KeyPress{Key: sessionModel.KeyEnter})
	require.NoError(t, err)
	require.True(t, handled)

	view := o.View()
	assert.Equal(t, sessionModel.UploadUploading, view.Upload.Status())
	assert.Equal(t, []sessionModel.ChatTurn{
		sessionModel.UserTurn("what is entropy?"),
		sessionModel.AssistantTurn("answer to what is entropy?"),
	}, view.Transcript)
	assert.False(t, view.Pending)

	close(release)
	<-done
	o.Wait()
}

func TestUploadStatusClears(t *testing.T) {
	o := newOrchestrator(t, &MockBackend{})

	o.SelectFile(pdf("a.pdf"))
	_, err := o.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.UploadSuccessMessage, o.View().Upload.Message())
	assert.Eventually(t, func() bool {
		return o.View().Upload.Status() == sessionModel.UploadIdle
	}, config.UploadStatusClearDelay+2*time.Second, 50*time.Millisecond)
}
