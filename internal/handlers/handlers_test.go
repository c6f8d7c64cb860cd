package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/akolanti/StudyHelper/internal/api"
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/data/store"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/job"
	"github.com/akolanti/StudyHelper/internal/rag"
	"github.com/go-chi/chi/v5"
)

type mockRag struct {
	OnAnswer func(ctx context.Context, question, userId string) (rag.Answer, error)
}

func (m *mockRag) Answer(ctx context.Context, question, userId string) (rag.Answer, error) {
	if m.OnAnswer != nil {
		return m.OnAnswer(ctx, question, userId)
	}
	return rag.Answer{Text: "default answer"}, nil
}

func (m *mockRag) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	return j
}

type fixture struct {
	router  *chi.Mux
	service *job.Service
	rag     *mockRag
}

// setup swaps in a fresh handler so tests do not share stores.
func setup(t *testing.T) *fixture {
	t.Helper()
	blobs, err := blobStore.NewFileStorage(t.TempDir(), "http://test")
	if err != nil {
		t.Fatal(err)
	}
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		DocumentStore:     store.InitInMemoryDocumentStore(),
		BlobStore:         blobs,
	})
	mock := &mockRag{}
	previous := handlerInstance
	handlerInstance = &JobHandler{service: service, ragService: mock}
	t.Cleanup(func() { handlerInstance = previous })

	r := chi.NewRouter()
	r.Get("/health", GetHandler)
	r.Put("/uploads/{userId}/{fileName}", UploadHandler)
	r.Get("/files/{userId}/{fileName}", FileHandler)
	r.Get("/documents", DocumentsHandler)
	r.Post("/chat", ChatHandler)
	r.Get("/status/{id}", GetStatusHandler)
	return &fixture{router: r, service: service, rag: mock}
}

func (f *fixture) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(method, target, body))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not json: %v", err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	f := setup(t)
	rr := f.do(http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rr.Code, rr.Body.String())
	}
}

func TestUploadHandler(t *testing.T) {
	t.Run("stores the file and queues ingestion", func(t *testing.T) {
		f := setup(t)
		rr := f.do(http.MethodPut, "/uploads/u1/week1.pdf", strings.NewReader("%PDF-1.4 notes"))
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d; body %s", rr.Code, rr.Body.String())
		}
		var resp api.InitJobResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Id == "" || resp.DocumentId == "" || resp.StatusURL != "status/"+resp.Id {
			t.Errorf("response = %+v", resp)
		}

		select {
		case queued := <-f.service.JobChannel:
			if queued.JobType != jobModel.JobTypeIngest || queued.JobPayload.StorageKey != "u1/week1.pdf" {
				t.Errorf("queued job = %+v", queued)
			}
			if queued.JobPayload.DocumentId != resp.DocumentId || queued.JobPayload.UserId != "u1" {
				t.Errorf("payload = %+v", queued.JobPayload)
			}
		default:
			t.Fatal("no job queued")
		}

		saved, found := f.service.JobStore.GetJob(context.Background(), resp.Id)
		if !found || saved.Status != jobModel.JobStatusQueued {
			t.Errorf("stored job = %+v, %v", saved, found)
		}
		doc, found := f.service.DocumentStore.GetDocument(context.Background(), resp.DocumentId)
		if !found || doc.Name != "week1.pdf" || doc.UserId != "u1" {
			t.Errorf("document = %+v, %v", doc, found)
		}
	})

	t.Run("re-upload keeps the document id", func(t *testing.T) {
		f := setup(t)
		var ids []string
		for _, body := range []string{"%PDF first", "%PDF second"} {
			rr := f.do(http.MethodPut, "/uploads/u1/week1.pdf", strings.NewReader(body))
			var resp api.InitJobResponse
			_ = json.NewDecoder(rr.Body).Decode(&resp)
			ids = append(ids, resp.DocumentId)
			<-f.service.JobChannel
		}
		if ids[0] == "" || ids[0] != ids[1] {
			t.Errorf("document ids = %v", ids)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := setup(t)
		rr := f.do(http.MethodPut, "/uploads/u1/photo.png", strings.NewReader("png"))
		if rr.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d; want 415", rr.Code)
		}
	})

	t.Run("empty body keeps the stored file", func(t *testing.T) {
		f := setup(t)
		f.do(http.MethodPut, "/uploads/u1/week1.pdf", strings.NewReader("%PDF kept"))
		<-f.service.JobChannel

		rr := f.do(http.MethodPut, "/uploads/u1/week1.pdf", strings.NewReader(""))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want 400", rr.Code)
		}
		rc, err := f.service.BlobStore.Download(context.Background(), "u1/week1.pdf")
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		if body, _ := io.ReadAll(rc); string(body) != "%PDF kept" {
			t.Errorf("stored body = %q", body)
		}
	})

	t.Run("too large", func(t *testing.T) {
		f := setup(t)
		rr := f.do(http.MethodPut, "/uploads/u1/big.pdf", bytes.NewReader(make([]byte, config.MaxUploadSize+1)))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d; want 413", rr.Code)
		}
	})

	t.Run("dot segment user id", func(t *testing.T) {
		f := setup(t)
		rr := f.do(http.MethodPut, "/uploads/../week1.pdf", strings.NewReader("%PDF"))
		if rr.Code == http.StatusCreated {
			t.Error("traversal path was accepted")
		}
	})
}

func TestEscapedPathSegmentsRoundTrip(t *testing.T) {
	f := setup(t)
	uploads := []struct {
		target, userId, name, url string
	}{
		{"/uploads/u1/notes%2C%20week1.pdf", "u1", "notes, week1.pdf", "http://test/files/u1/notes%2C%20week1.pdf"},
		{"/uploads/u1/lab%3B%20part%202.pdf", "u1", "lab; part 2.pdf", "http://test/files/u1/lab%3B%20part%202.pdf"},
		{"/uploads/org%2Fu2/a.pdf", "org/u2", "a.pdf", "http://test/files/org%2Fu2/a.pdf"},
	}
	for _, u := range uploads {
		if rr := f.do(http.MethodPut, u.target, strings.NewReader("%PDF "+u.name)); rr.Code != http.StatusCreated {
			t.Fatalf("PUT %s = %d %s", u.target, rr.Code, rr.Body.String())
		}
	}

	for _, u := range uploads {
		rr := f.do(http.MethodGet, "/documents?user_id="+url.QueryEscape(u.userId), nil)
		var docs []api.DocumentResponse
		if err := json.NewDecoder(rr.Body).Decode(&docs); err != nil {
			t.Fatal(err)
		}
		found := false
		for _, doc := range docs {
			if doc.Name == u.name {
				found = true
				if doc.URL != u.url {
					t.Errorf("url for %q = %q; want %q", u.name, doc.URL, u.url)
				}
			}
		}
		if !found {
			t.Errorf("catalog for %q = %+v; missing %q", u.userId, docs, u.name)
			continue
		}

		file := f.do(http.MethodGet, strings.TrimPrefix(u.url, "http://test"), nil)
		if file.Code != http.StatusOK || file.Body.String() != "%PDF "+u.name {
			t.Errorf("GET %s = %d %q", u.url, file.Code, file.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/uploads/u1/placeholder.pdf", strings.NewReader("%PDF"))
	req.URL.RawPath = "/uploads/u1/bad%ZZname.pdf"
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("undecodable name status = %d; want 400", rr.Code)
	}
}

func TestFileHandler(t *testing.T) {
	f := setup(t)
	if _, err := f.service.BlobStore.Upload(context.Background(), "u1/week1.pdf", strings.NewReader("%PDF-1.4 notes")); err != nil {
		t.Fatal(err)
	}

	rr := f.do(http.MethodGet, "/files/u1/week1.pdf", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "%PDF-1.4 notes" {
		t.Errorf("file = %d %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != config.PDFContentType {
		t.Errorf("content type = %q", ct)
	}

	if rr = f.do(http.MethodGet, "/files/u1/missing.pdf", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d", rr.Code)
	}
}

func TestDocumentsHandler(t *testing.T) {
	f := setup(t)
	rr := f.do(http.MethodGet, "/documents", nil)
	if rr.Code != http.StatusBadRequest || decodeError(t, rr) != "Missing user_id parameter" {
		t.Errorf("missing user = %d", rr.Code)
	}

	f.do(http.MethodPut, "/uploads/u1/week1.pdf", strings.NewReader("%PDF one"))
	f.do(http.MethodPut, "/uploads/u2/other.pdf", strings.NewReader("%PDF two"))

	rr = f.do(http.MethodGet, "/documents?user_id=u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var docs []api.DocumentResponse
	if err := json.NewDecoder(rr.Body).Decode(&docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "week1.pdf" || docs[0].URL != "http://test/files/u1/week1.pdf" {
		t.Errorf("documents = %+v", docs)
	}

	rr = f.do(http.MethodGet, "/documents?user_id=nobody", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty catalog body = %s", rr.Body.String())
	}
}

func TestChatHandler(t *testing.T) {
	f := setup(t)
	f.rag.OnAnswer = func(ctx context.Context, question, userId string) (rag.Answer, error) {
		switch {
		case strings.TrimSpace(question) == "":
			return rag.Answer{}, rag.ErrEmptyQuestion
		case userId == "":
			return rag.Answer{}, rag.ErrMissingUser
		case question == "boom":
			return rag.Answer{}, &rag.StepError{Step: jobModel.LLMCall, Err: errors.New("quota")}
		}
		return rag.Answer{Text: "Osmosis (week1.pdf)", Sources: []string{"week1.pdf"}}, nil
	}

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "Invalid request body"},
		{"no question", `{"question":"  ","user_id":"u1"}`, http.StatusBadRequest, "No question provided"},
		{"no user", `{"question":"what?"}`, http.StatusBadRequest, "User ID is required"},
		{"failure hides details", `{"question":"boom","user_id":"u1"}`, http.StatusInternalServerError, "Failed to generate answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, "/chat", strings.NewReader(tt.body))
			if rr.Code != tt.code {
				t.Fatalf("status = %d; want %d", rr.Code, tt.code)
			}
			if got := decodeError(t, rr); got != tt.message {
				t.Errorf("error = %q; want %q", got, tt.message)
			}
		})
	}

	t.Run("answer", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/chat", strings.NewReader(`{"question":"what is osmosis?","user_id":"u1"}`))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var resp api.ChatResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Answer != "Osmosis (week1.pdf)" || len(resp.Sources) != 1 {
			t.Errorf("response = %+v", resp)
		}
	})
}

func TestGetStatusHandler(t *testing.T) {
	f := setup(t)
	rr := f.do(http.MethodGet, "/status/nope", nil)
	if rr.Code != http.StatusNotFound || decodeError(t, rr) != "Job not found" {
		t.Errorf("missing job = %d", rr.Code)
	}

	stored := jobModel.Job{
		Id:          "job-1",
		JobType:     jobModel.JobTypeIngest,
		Status:      jobModel.JobStatusError,
		CurrentStep: jobModel.Error,
		JobPayload:  jobModel.JobPayload{DocumentId: "doc-1"},
		Error:       jobModel.JobError{Code: 422, Message: "PDF is empty or scanned image"},
	}
	_ = f.service.JobStore.SaveJob(context.Background(), stored)

	rr = f.do(http.MethodGet, "/status/job-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp api.JobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.DocumentId != "doc-1" || resp.Error == nil || resp.Error.Code != 422 {
		t.Errorf("response = %+v", resp)
	}
}
