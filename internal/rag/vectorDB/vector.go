package vectorDB

import (
	"context"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
)

// DataProcessor reads and writes note chunks and cached answers. Every read is
// scoped to one user.
type DataProcessor interface {
	// Search returns the formatted context blocks and the source document names.
	Search(ctx context.Context, userId string, vectorVal []float32) ([]string, []string, error)
	GetCachedAnswer(ctx context.Context, userId string, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, userId string, id string, vector []float32, answer string) error
	ClearCache(ctx context.Context, userId string) error

	// CreateCollection Ingest document call
	CreateCollection(ctx context.Context, collectionName string) error
	DeleteDocumentChunks(ctx context.Context, collectionName string, documentId string) error
	UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error
}
