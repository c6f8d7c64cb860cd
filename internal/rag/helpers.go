package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/StudyHelper/internal/adapter/utils"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/metrics"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

const cacheSaveTimeout = 10 * time.Second

func (s *service) stepError(log *logger_i.Logger, step jobModel.InternalStatus, err error) (Answer, error) {
	log.Error("answer pipeline failed", "step", step, "error", err)
	metrics.CountAnswer("error")
	return Answer{}, &StepError{Step: step, Err: err}
}

// jobError marks the job failed and keeps any message ingest already set.
func (s *service) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	if job.Error.Code == 0 {
		job.Error.Code = http.StatusInternalServerError
	}
	if job.Error.Message == "" {
		job.Error.Message = "Internal Server Error"
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string) ([]float32, error) {
	log.Debug("answer step", "step", jobModel.EmbeddingAPICall)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, userId string, emb []float32) (string, bool) {
	log.Debug("answer step", "step", jobModel.CacheCall)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.vectorDB.GetCachedAnswer(ctx, userId, emb)
	if err != nil {
		log.Warn("cache lookup failed, answering without it", "error", err)
		return "", false
	}
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, userId string, emb []float32) ([]string, []string, error) {
	log.Debug("answer step", "step", jobModel.VectorDBCall)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.vectorDB.Search(ctx, userId, emb)
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, question string, matches []string) (string, error) {
	log.Debug("answer step", "step", jobModel.LLMCall, "matches", len(matches))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, question, matches)
}

// saveToCacheAsync outlives the request; the answer is already on its way back.
func (s *service) saveToCacheAsync(ctx context.Context, log *logger_i.Logger, userId string, emb []float32, answer string) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheSaveTimeout)
	go func() {
		defer cancel()
		if err := s.vectorDB.SaveToCache(saveCtx, userId, utils.GetNewUUID(), emb, answer); err != nil {
			log.Error("Failed to save to cache", "error", err)
		}
	}()
}
