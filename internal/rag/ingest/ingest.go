package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/rag/embedding"
	"github.com/akolanti/StudyHelper/internal/rag/vectorDB"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

const EmptyDocumentMessage = "PDF is empty or scanned image"

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// ProcessDocumentIngestion turns a stored upload into embedded chunks. Any
// chunks left from an earlier upload of the same document are replaced.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, source blobStore.Storage, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor) jobModel.Job {
	payload := job.JobPayload
	log := logger_i.NewLogger("Document Ingestion").WithTrace(ctx, config.TRACE_ID_KEY).
		With("jobId", job.Id, "documentId", payload.DocumentId, "userId", payload.UserId)

	log.Debug("Processing document", "filename", payload.IngestFileName, "storageKey", payload.StorageKey)

	job.CurrentStep = jobModel.IngestInit
	err := vectorDatabase.CreateCollection(ctx, config.EmbeddingDBName)
	if err != nil {
		log.Error("Error creating collection", "error", err)
		return failJob(job, http.StatusServiceUnavailable, "Vector store unavailable", true)
	}

	docType := GetDocType(payload.IngestFileName)
	if docType == commonModels.ERR {
		log.Error("Unsupported document type", "filename", payload.IngestFileName)
		return failJob(job, http.StatusUnsupportedMediaType, "Unsupported document type", false)
	}

	doc := commonModels.Document{
		Id:                  payload.DocumentId,
		UserId:              payload.UserId,
		Name:                payload.IngestFileName,
		StorageKey:          payload.StorageKey,
		LastIngestTimestamp: time.Now().UTC(),
		ContentType:         docType,
	}

	job.CurrentStep = jobModel.IngestExtracting
	data, err := readObject(ctx, source, payload.StorageKey)
	if err != nil {
		log.Error("Error reading stored document", "error", err)
		return failJob(job, http.StatusNotFound, "Stored document could not be read", false)
	}

	rawPages, err := extractText(data, doc.Name, doc.ContentType, log)
	if err != nil {
		log.Error("Error extracting document", "error", err)
		return failJob(job, http.StatusUnprocessableEntity, "Error extracting document content", false)
	}
	if textLength(rawPages) < config.MinDocumentText {
		log.Error("Document has no extractable text", "pages", len(rawPages))
		return failJob(job, http.StatusUnprocessableEntity, EmptyDocumentMessage, false)
	}

	job.CurrentStep = jobModel.IngestChunking
	chunks := PrepareChunks(rawPages, doc, e.ModelName())
	log.Debug("Prepared chunks", "pages", len(rawPages), "chunks", len(chunks))

	job.CurrentStep = jobModel.VectorDBCall
	if err = vectorDatabase.DeleteDocumentChunks(ctx, config.EmbeddingDBName, doc.Id); err != nil {
		log.Error("Error removing previous chunks", "error", err)
		return failJob(job, http.StatusServiceUnavailable, "Vector store unavailable", true)
	}

	job.CurrentStep = jobModel.EmbeddingAPICall
	stored, err := BatchIngest(ctx, chunks, vectorDatabase, e)
	job.JobPayload.ChunkCount = stored
	if err != nil {
		log.Error("Error embedding document", "error", err, "stored", stored)
		return failJob(job, http.StatusBadGateway, "Error embedding document", true)
	}

	// answers cached before this upload may be missing the new notes
	if err = vectorDatabase.ClearCache(ctx, doc.UserId); err != nil {
		log.Warn("Could not clear semantic cache", "error", err)
	}

	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	log.Info("Document ingested", "chunks", stored)
	return job
}

func readObject(ctx context.Context, source blobStore.Storage, key string) ([]byte, error) {
	rc, err := source.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, config.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if len(data) > config.MaxUploadSize {
		return nil, errors.New("object is larger than the upload limit")
	}
	return data, nil
}

func failJob(job jobModel.Job, code int, message string, retry bool) jobModel.Job {
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.Error = jobModel.JobError{
		Code:    code,
		Message: message,
		Retry:   retry,
	}
	return job
}
