package qdrantDB

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

var semanticCacheDBName = config.SemanticCacheDBName

func initCacheCollection(ctx context.Context, client *qdrant.Client) {
	err := createCollection(ctx, client, semanticCacheDBName)
	if err != nil {
		logger.Error("Semantic cache collection creation failed", "error", err)
	}
}

// GetCachedAnswer only looks at answers given to the same user; users never
// share notes.
func (db *ClientHolder) GetCachedAnswer(ctx context.Context, userId string, queryVector []float32) (string, bool, error) {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("userId", userId)

	loggr.Debug("Searching for cached answer")
	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: semanticCacheDBName,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         userFilter(userId),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Closest cached answer", "semantic similarity score", searchResult[0].Score)
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	loggr.Info("cache hit")
	answer := searchResult[0].Payload["answer"].GetStringValue()
	return answer, answer != "", nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, userId string, id string, vector []float32, answer string) error {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	loggr.Debug("Saving answer to cache")
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: semanticCacheDBName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"user_id":   userId,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// ClearCache forgets a user's cached answers. Called after their notes change.
func (db *ClientHolder) ClearCache(ctx context.Context, userId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: semanticCacheDBName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(userFilter(userId)),
	})
	if err != nil {
		return fmt.Errorf("clear semantic cache: %w", err)
	}
	return nil
}
