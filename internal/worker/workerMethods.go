package worker

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	jobmodel "github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobTimeout)
	defer cancel()
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("jobId", job.Id)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	if job.JobType != jobmodel.JobTypeIngest {
		log.Error("Unknown job type", "jobType", job.JobType)
		job.Status = jobmodel.JobStatusError
		job.Error = jobmodel.JobError{Code: http.StatusBadRequest, Message: "Unknown job type"}
	} else {
		job = _ragService.IngestDocument(ctx, job)
	}

	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
		markIngested(ctx, job)
	}
	job.EndTime = time.Now()
	saveJobState(ctx, job)
	log.Info("Job finished", "status", job.Status, "chunks", job.JobPayload.ChunkCount)
}

// removeWorker expects currentWorkerCount to be decremented already.
func removeWorker(reason string) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

func markIngested(ctx context.Context, job jobmodel.Job) {
	if _jobService.DocumentStore == nil || job.JobPayload.DocumentId == "" {
		return
	}
	if err := _jobService.DocumentStore.MarkIngested(ctx, job.JobPayload.DocumentId, time.Now().UTC()); err != nil {
		logger.WithTrace(ctx, config.TRACE_ID_KEY).Error("Failed to mark document ingested", "documentId", job.JobPayload.DocumentId, "err", err)
	}
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.WithTrace(ctx, config.TRACE_ID_KEY).Error("Failed to update job status", "jobId", job.Id, "err", err)
	}
}
