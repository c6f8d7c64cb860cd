package handlers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/job"
	"github.com/akolanti/StudyHelper/internal/metrics"
	"github.com/akolanti/StudyHelper/internal/rag"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

var errNotInitialized = errors.New("job handler is not initialized")

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

// CreateIngestJob queues ingestion of a stored document.
func CreateIngestJob(ctx context.Context, newJob newJobData) error {
	if handlerInstance == nil {
		return errNotInitialized
	}
	logJH.WithTrace(ctx, config.TRACE_ID_KEY).Info("Creating ingest job", "jobId", newJob.id, "documentId", newJob.document.Id)
	return handlerInstance.pushToJobChannel(ctx, newJob)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData) error {
	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		JobType:     jobModel.JobTypeIngest,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload:  payloadFor(newJob.document),
	}

	// the status endpoint can see the job before a worker picks it up
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Error saving queued job", "jobId", _job.Id, "error", err)
	}

	// blocking send so a flood of uploads backs up here instead of in memory
	select {
	case h.service.JobChannel <- _job:
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()
	logJH.Debug("Queued job", "jobId", _job.Id)

	//ingestion is slow external work so every ingest job asks for a worker;
	//idle workers retire on their own
	atomic.AddInt64(&h.service.RequestCount, 1)
	select {
	case h.service.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
		// a signal is already pending
	}
	return nil
}

func payloadFor(doc commonModels.Document) jobModel.JobPayload {
	return jobModel.JobPayload{
		DocumentId:     doc.Id,
		UserId:         doc.UserId,
		IngestFileName: doc.Name,
		StorageKey:     doc.StorageKey,
	}
}
