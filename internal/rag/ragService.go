package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/metrics"
	"github.com/akolanti/StudyHelper/internal/rag/embedding"
	"github.com/akolanti/StudyHelper/internal/rag/ingest"
	"github.com/akolanti/StudyHelper/internal/rag/llm"
	"github.com/akolanti/StudyHelper/internal/rag/vectorDB"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

/*
The worker and the chat handler only see Service. The private service struct
holds the vector store, the providers and the blob store; NewService is the one
place they are wired, which is also where tests swap in mocks.
*/

var ErrEmptyQuestion = errors.New("question is empty")
var ErrMissingUser = errors.New("user id is empty")

// Service Worker will only call this service - it doesn't need to know the llm or the vector
type Service interface {
	Answer(ctx context.Context, question string, userId string) (Answer, error)
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

// Answer is what the chat endpoint returns.
type Answer struct {
	Text    string
	Sources []string
	Cached  bool
}

// StepError names the stage of the answer pipeline that failed.
type StepError struct {
	Step jobModel.InternalStatus
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	blobs       blobStore.Storage
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder, blobs blobStore.Storage) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		blobs:       blobs,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Answer(ctx context.Context, question string, userId string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if userId == "" {
		return Answer{}, ErrMissingUser
	}
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("userId", userId)

	processContext, cancel := context.WithTimeout(ctx, config.ChatTimeout)
	defer cancel()

	embeddingStep, err := s.executeEmbeddingStep(processContext, log, question)
	if err != nil {
		return s.stepError(log, jobModel.EmbeddingAPICall, err)
	}

	if cachedAnswer, found := s.executeCacheCheckStep(processContext, log, userId, embeddingStep); found {
		metrics.CountAnswer("cache")
		return Answer{Text: cachedAnswer, Cached: true}, nil
	}

	matches, sources, err := s.executeVectorSearchStep(processContext, log, userId, embeddingStep)
	if err != nil {
		return s.stepError(log, jobModel.VectorDBCall, err)
	}

	answer, err := s.executeLLMStep(processContext, log, question, matches)
	if err != nil {
		return s.stepError(log, jobModel.LLMCall, err)
	}

	// answers without notes behind them are not worth reusing
	if len(matches) > 0 {
		s.saveToCacheAsync(ctx, log, userId, embeddingStep, answer)
	}

	metrics.CountAnswer("llm")
	return Answer{Text: answer, Sources: sources}, nil
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	j := ingest.ProcessDocumentIngestion(ctx, job, s.blobs, s.embedder, s.vectorDB)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New(j.Error.Message), "INGESTION_FAILURE")
	}
	return j
}
