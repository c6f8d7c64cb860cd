package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(config.ClientSettings{
		DocumentsURL: srv.URL + "/documents",
		ChatURL:      srv.URL + "/chat",
	}, WithHTTPClient(srv.Client()), WithAuthToken("secret"))
}

func TestUploadDestinationEscapesSegments(t *testing.T) {
	got := UploadDestination("http://store/uploads/", "user/1", "my notes.pdf")
	assert.Equal(t, "http://store/uploads/user%2F1/my%20notes.pdf", got)
}

func TestPutSendsRawBody(t *testing.T) {
	var gotBody []byte
	var gotType, gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotBody, _ = io.ReadAll(r.Body)
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	status, err := c.Put(context.Background(), UploadDestination(srv.URL+"/uploads", "u1", "a b.pdf"), "application/pdf", []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "%PDF-1.4", string(gotBody))
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/uploads/u1/a%20b.pdf", gotPath)
}

func TestPutNon2xxIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"denied"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Put(context.Background(), srv.URL+"/x", "application/pdf", nil)

	var svcErr *sessionModel.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	assert.Equal(t, "denied", svcErr.Message)
}

func TestFetchDocumentsQueriesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u 1", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`[
			{"id": 7, "name": "b.pdf", "url": "http://f/b.pdf", "created_at": "2024-05-01 10:00:00.123456"},
			"garbage",
			{"id": "a1", "name": "a.pdf", "url": "http://f/a.pdf", "created_at": null}
		]`))
	}))
	defer srv.Close()

	docs, err := newTestClient(srv).FetchDocuments(context.Background(), "u 1")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "7", docs[0].ID)
	assert.Equal(t, "b.pdf", docs[0].Name)
	require.NotNil(t, docs[0].CreatedAt)
	assert.Equal(t, 2024, docs[0].CreatedAt.Year())
	assert.Equal(t, "a1", docs[1].ID)
	assert.Nil(t, docs[1].CreatedAt)
}

func TestFetchDocumentsNonArrayIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	docs, err := newTestClient(srv).FetchDocuments(context.Background(), "u1")

	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFetchDocumentsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchDocuments(context.Background(), "u1")

	var svcErr *sessionModel.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "boom", svcErr.Message)
}

func TestServiceMessageIgnoresErrorField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"message", `{"message":"User ID is required"}`, "User ID is required"},
		{"error only", `{"error":"qdrant: connection refused"}`, ""},
		{"both", `{"error":"detail","message":"shown"}`, "shown"},
		{"blank message", `{"message":"  ","error":"detail"}`, ""},
		{"not json", `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serviceMessage([]byte(tt.raw)))
		})
	}
}

func TestAskPostsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is osmosis?", req["question"])
		assert.Equal(t, "u1", req["user_id"])
		_, _ = w.Write([]byte(`{"answer":"water moving"}`))
	}))
	defer srv.Close()

	answer, err := newTestClient(srv).Ask(context.Background(), "what is osmosis?", "u1")

	require.NoError(t, err)
	assert.Equal(t, "water moving", answer)
}

func TestExtractAnswerFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"answer", `{"answer":"A","body":"B"}`, "A"},
		{"body when answer empty", `{"answer":"","body":"B","message":"M"}`, "B"},
		{"message", `{"message":"M"}`, "M"},
		{"whole object", `{"result": 42}`, `{"result":42}`},
		{"non string answer", `{"answer": {"text":"x"}}`, `{"answer":{"text":"x"}}`},
		{"not json", `plain text`, `plain text`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswer([]byte(tt.raw)))
		})
	}
}

func TestAskTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(config.ClientSettings{ChatURL: url + "/chat"})
	_, err := c.Ask(context.Background(), "q", "u1")

	var svcErr *sessionModel.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Zero(t, svcErr.StatusCode)
	assert.Empty(t, svcErr.Message)
}
