package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/redisStore"
	"github.com/akolanti/StudyHelper/internal/data/store"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	internalStore := redisStore.NewTestStore(client)
	jobStore := store.TestJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		JobType: jobModel.JobTypeIngest,
		Status:  jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentId:     "doc-1",
			UserId:         "u1",
			IngestFileName: "week1.pdf",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		err := jobStore.SaveJob(ctx, testJob)
		if err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if retrievedJob.JobPayload.IngestFileName != testJob.JobPayload.IngestFileName {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.IngestFileName, testJob.JobPayload.IngestFileName)
		}
		if ttl := mr.TTL("ingest_job:" + jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("ttl = %v; want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Get Without Trace", func(t *testing.T) {
		if _, found := jobStore.GetJob(context.Background(), jobID); !found {
			t.Error("lookup without a trace id should still work")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)

		if mr.Exists("ingest_job:" + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.TestJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("job missing after concurrent saves")
	}
}

func TestInMemoryJobStore(t *testing.T) {
	jobStore := store.InitInMemoryJobStore()
	ctx := context.Background()

	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	job, found := jobStore.GetJob(ctx, "j1")
	if !found || job.Status != jobModel.JobStatusQueued {
		t.Fatalf("got %+v, %v", job, found)
	}
	jobStore.DeleteJob(ctx, "j1")
	if _, found = jobStore.GetJob(ctx, "j1"); found {
		t.Error("job still present after delete")
	}
}

func TestInMemoryJobStore_Expiry(t *testing.T) {
	jobStore := store.InitInMemoryJobStoreWithTTL(20 * time.Millisecond)
	ctx := context.Background()

	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusComplete})
	if _, found := jobStore.GetJob(ctx, "j1"); !found {
		t.Fatal("fresh job missing")
	}
	time.Sleep(40 * time.Millisecond)
	if _, found := jobStore.GetJob(ctx, "j1"); found {
		t.Error("job outlived its ttl")
	}

	// saving again restarts the clock
	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusComplete})
	if _, found := jobStore.GetJob(ctx, "j1"); !found {
		t.Error("resaved job missing")
	}
}
