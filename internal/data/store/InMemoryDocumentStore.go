package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/google/uuid"
)

type InMemoryDocumentStore struct {
	docLock   *sync.RWMutex
	docMap    map[string]commonModels.Document
	keyToId   map[string]string
	userIndex map[string][]string
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docLock:   new(sync.RWMutex),
		docMap:    make(map[string]commonModels.Document),
		keyToId:   make(map[string]string),
		userIndex: make(map[string][]string),
	}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) (commonModels.Document, error) {
	store.docLock.Lock()
	defer store.docLock.Unlock()

	if id, ok := store.keyToId[doc.StorageKey]; ok {
		existing := store.docMap[id]
		doc.Id = existing.Id
		doc.CreatedAt = existing.CreatedAt
	} else {
		if doc.Id == "" {
			doc.Id = uuid.New().String()
		}
		store.userIndex[doc.UserId] = append(store.userIndex[doc.UserId], doc.Id)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	store.docMap[doc.Id] = doc
	store.keyToId[doc.StorageKey] = doc.Id
	inMemLogger.Debug("Saved document to store", "documentId", doc.Id)
	return doc, nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	store.docLock.RLock()
	defer store.docLock.RUnlock()
	doc, ok := store.docMap[id]
	return doc, ok
}

func (store *InMemoryDocumentStore) FindByStorageKey(ctx context.Context, storageKey string) (commonModels.Document, bool) {
	store.docLock.RLock()
	defer store.docLock.RUnlock()
	id, ok := store.keyToId[storageKey]
	if !ok {
		return commonModels.Document{}, false
	}
	doc, ok := store.docMap[id]
	return doc, ok
}

func (store *InMemoryDocumentStore) ListDocuments(ctx context.Context, userId string) ([]commonModels.Document, error) {
	store.docLock.RLock()
	defer store.docLock.RUnlock()
	ids := store.userIndex[userId]
	docs := make([]commonModels.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, store.docMap[id])
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (store *InMemoryDocumentStore) MarkIngested(ctx context.Context, id string, at time.Time) error {
	store.docLock.Lock()
	defer store.docLock.Unlock()
	doc, ok := store.docMap[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	doc.LastIngestTimestamp = at
	store.docMap[id] = doc
	return nil
}
