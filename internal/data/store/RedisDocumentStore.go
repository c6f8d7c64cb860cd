package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/redisStore"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/google/uuid"
)

// RedisDocumentStore keeps each document as json under document:{id}, a
// storage_key:{key} -> id reference and a per-user sorted set scored by
// creation time.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisDocumentStore returns nil when redis is offline.
func GetRedisDocumentStore(ctx context.Context, settings config.RedisSettings) *RedisDocumentStore {
	internal := redisStore.GetRedisStore(ctx, settings, config.RedisDocumentStore)
	if internal == nil {
		return nil
	}
	return &RedisDocumentStore{
		store:  internal,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func TestDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) (commonModels.Document, error) {
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("storageKey", doc.StorageKey)

	if existing, found := s.FindByStorageKey(ctx, doc.StorageKey); found {
		doc.Id = existing.Id
		doc.CreatedAt = existing.CreatedAt
		log.Debug("replacing existing document", "documentId", doc.Id)
	}
	if doc.Id == "" {
		doc.Id = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return doc, err
	}
	err = s.store.SetAll(ctx, map[string]interface{}{
		config.RedisDocumentKey + doc.Id:            data,
		config.RedisStorageKeyRef + doc.StorageKey: doc.Id,
	}, 0)
	if err != nil {
		log.Error("error saving document", "error", err)
		return doc, fmt.Errorf("save document: %w", err)
	}

	score := float64(doc.CreatedAt.UnixMilli())
	if err = s.store.SortedAdd(ctx, config.RedisDocumentIndex+doc.UserId, score, doc.Id); err != nil {
		log.Error("error indexing document", "error", err)
		return doc, fmt.Errorf("index document: %w", err)
	}
	log.Debug("Saved document", "documentId", doc.Id)
	return doc, nil
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	var doc commonModels.Document
	val, err := s.store.Get(ctx, config.RedisDocumentKey+id)
	if s.store.IsNil(err) {
		return doc, false
	} else if err != nil {
		s.logger.WithTrace(ctx, config.TRACE_ID_KEY).Error("error reading document", "documentId", id, "error", err)
		return doc, false
	}
	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, false
	}
	return doc, true
}

func (s *RedisDocumentStore) FindByStorageKey(ctx context.Context, storageKey string) (commonModels.Document, bool) {
	id, err := s.store.Get(ctx, config.RedisStorageKeyRef+storageKey)
	if err != nil {
		return commonModels.Document{}, false
	}
	return s.GetDocument(ctx, id)
}

// ListDocuments returns the user's documents, newest first.
func (s *RedisDocumentStore) ListDocuments(ctx context.Context, userId string) ([]commonModels.Document, error) {
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("userId", userId)
	ids, err := s.store.SortedNewestFirst(ctx, config.RedisDocumentIndex+userId)
	if err != nil {
		log.Error("error reading document index", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = config.RedisDocumentKey + id
	}
	values, err := s.store.GetMany(ctx, keys...)
	if err != nil {
		log.Error("error reading documents", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]commonModels.Document, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			log.Warn("document missing for index entry", "documentId", ids[i])
			continue
		}
		var doc commonModels.Document
		if err = json.Unmarshal([]byte(raw), &doc); err != nil {
			log.Warn("stored document is not valid json", "documentId", ids[i], "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisDocumentStore) MarkIngested(ctx context.Context, id string, at time.Time) error {
	doc, found := s.GetDocument(ctx, id)
	if !found {
		return fmt.Errorf("document %s not found", id)
	}
	doc.LastIngestTimestamp = at
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, config.RedisDocumentKey+id, data, 0)
}
