package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtracting InternalStatus = "Extracting"
	IngestChunking   InternalStatus = "Chunking"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	VectorDBCall     InternalStatus = "VectorDB"
	RedisCall        InternalStatus = "Redis"
	CacheCall        InternalStatus = "CacheCall"
	LLMCall          InternalStatus = "LLMCall"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	DocumentId     string `json:"document_id"`
	UserId         string `json:"user_id"`
	IngestFileName string `json:"ingest_file_name,omitempty"`
	StorageKey     string `json:"storage_key,omitempty"`
	ChunkCount     int    `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// DocumentStore is the catalog of uploaded files. Saving a document whose
// storage key is already known keeps the existing id and created time.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc commonModels.Document) (commonModels.Document, error)
	GetDocument(ctx context.Context, id string) (commonModels.Document, bool)
	FindByStorageKey(ctx context.Context, storageKey string) (commonModels.Document, bool)
	ListDocuments(ctx context.Context, userId string) ([]commonModels.Document, error)
	MarkIngested(ctx context.Context, id string, at time.Time) error
}
