package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem Store")

type storedJob struct {
	job     jobModel.Job
	savedAt time.Time
}

// InMemoryJobStore stands in for redis. Jobs expire after the same TTL the
// redis store sets, checked on read.
type InMemoryJobStore struct {
	jobMutex *sync.Mutex
	jobMap   map[string]storedJob
	ttl      time.Duration
	now      func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return InitInMemoryJobStoreWithTTL(config.RedisJobStoreTTL)
}

func InitInMemoryJobStoreWithTTL(ttl time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.Mutex),
		jobMap:   make(map[string]storedJob),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStore jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	store.jobMap[jobToStore.Id] = storedJob{job: jobToStore, savedAt: store.now()}
	inMemLogger.Debug("Saved job to store", "jobId", jobToStore.Id, "status", jobToStore.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	entry, found := store.jobMap[jobId]
	if found && store.ttl > 0 && store.now().Sub(entry.savedAt) > store.ttl {
		delete(store.jobMap, jobId)
		inMemLogger.Debug("Job expired", "jobId", jobId)
		return jobModel.Job{}, false
	}
	return entry.job, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}
