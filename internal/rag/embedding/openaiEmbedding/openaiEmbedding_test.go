package openaiEmbedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
)

func TestBatchEmbeddingKeepsInputOrder(t *testing.T) {
	var gotInput []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Input

		data := make([]map[string]any, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": []float64{float64(i), 0.5}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	e := GetOpenAIEmbeddingClient(context.Background(), "text-embedding-3-small", "test-key",
		option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if e == nil {
		t.Fatal("client was not created")
	}

	vectors, err := e.BatchEmbedding(context.Background(), []string{"first", "second", "third"}, false)
	if err != nil {
		t.Fatalf("BatchEmbedding: %v", err)
	}
	if len(gotInput) != 3 {
		t.Fatalf("server saw %d inputs", len(gotInput))
	}
	for i, v := range vectors {
		if len(v) != 2 || v[0] != float32(i) {
			t.Errorf("vector %d = %v", i, v)
		}
	}

	single, err := e.GetEmbedding(context.Background(), "query")
	if err != nil || len(single) != 2 {
		t.Errorf("GetEmbedding = %v, %v", single, err)
	}
}
