package rag_test

import (
	"context"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnSearch               func(ctx context.Context, userId string, vectorVal []float32) ([]string, []string, error)
	OnGetCachedAnswer      func(ctx context.Context, userId string, queryVector []float32) (string, bool, error)
	OnSaveToCache          func(ctx context.Context, userId string, id string, vector []float32, answer string) error
	OnClearCache           func(ctx context.Context, userId string) error
	OnCreateCollection     func(ctx context.Context, name string) error
	OnDeleteDocumentChunks func(ctx context.Context, name string, documentId string) error
	OnUpsertBatch          func(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error
}

func (m *MockVectorDB) Search(ctx context.Context, userId string, v []float32) ([]string, []string, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, userId, v)
	}
	return []string{"Source: default.pdf\nContent: default context"}, []string{"default.pdf"}, nil
}

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, userId string, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, userId, v)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, userId string, id string, v []float32, a string) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, userId, id, v, a)
	}
	return nil
}

func (m *MockVectorDB) ClearCache(ctx context.Context, userId string) error {
	if m.OnClearCache != nil {
		return m.OnClearCache(ctx, userId)
	}
	return nil
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string) error {
	if m.OnCreateCollection != nil {
		return m.OnCreateCollection(ctx, name)
	}
	return nil
}

func (m *MockVectorDB) DeleteDocumentChunks(ctx context.Context, name string, documentId string) error {
	if m.OnDeleteDocumentChunks != nil {
		return m.OnDeleteDocumentChunks(ctx, name, documentId)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, name, chunks, vectors)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) ModelName() string {
	return "mock-embedding"
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, query string, matches []string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, q string, mth []string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, mth)
	}
	return "mocked llm response", nil
}
