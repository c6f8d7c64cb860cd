package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/StudyHelper/internal/adapter"
	"github.com/akolanti/StudyHelper/internal/adapter/utils"
	"github.com/akolanti/StudyHelper/internal/api"
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/metrics"
	"github.com/akolanti/StudyHelper/internal/rag"
	"github.com/akolanti/StudyHelper/internal/rag/ingest"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type newJobData struct {
	id       string
	traceId  string
	document commonModels.Document
}

// GetHandler godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// UploadHandler godoc
// @Summary      Upload a document
// @Description  Stores the request body as {userId}/{fileName}, records it in the user's catalog and queues ingestion. Uploading the same name again replaces the file and keeps its document id.
// @Tags         Documents
// @Accept       application/pdf
// @Produce      json
// @Param        userId    path  string  true  "User ID"
// @Param        fileName  path  string  true  "File name"
// @Success      201  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      413  {object}  api.ErrorResponse
// @Failure      415  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Security     BearerAuth
// @Router       /uploads/{userId}/{fileName} [put]
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) || handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	ctx := r.Context()
	log := logRH.WithTrace(ctx, config.TRACE_ID_KEY)

	userId, fileName, err := pathParams(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid upload path")
		return
	}
	key, err := blobStore.Key(userId, fileName)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid upload path")
		return
	}
	docType := ingest.GetDocType(fileName)
	if docType == commonModels.ERR {
		WriteErrorResponse(w, http.StatusUnsupportedMediaType, "Unsupported document type")
		return
	}

	body := http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	defer body.Close()

	// an empty body must not replace an existing object
	data := bufio.NewReader(body)
	if _, err = data.Peek(1); errors.Is(err, io.EOF) {
		WriteErrorResponse(w, http.StatusBadRequest, "Empty upload")
		return
	}

	written, err := handlerInstance.service.BlobStore.Upload(ctx, key, data)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		log.Error("Storing upload failed", "key", key, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}
	metrics.AddUploadedBytes(written)

	doc, err := handlerInstance.service.DocumentStore.SaveDocument(ctx, commonModels.Document{
		UserId:      userId,
		Name:        fileName,
		StorageKey:  key,
		ContentType: docType,
	})
	if err != nil {
		log.Error("Recording document failed", "key", key, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	newJob := newJobData{
		id:       utils.GetNewUUID(),
		traceId:  traceId(ctx),
		document: doc,
	}
	if err = CreateIngestJob(ctx, newJob); err != nil {
		log.Error("Queueing ingest job failed", "documentId", doc.Id, "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Could not queue document for processing")
		return
	}
	log.Info("Upload stored", "documentId", doc.Id, "bytes", written)
	writeJsonResponse(w, http.StatusCreated, adapter.ToInitJobResponse(newJob.id, doc.Id))
}

// FileHandler godoc
// @Summary      Download a stored document
// @Tags         Documents
// @Produce      application/pdf
// @Param        userId    path  string  true  "User ID"
// @Param        fileName  path  string  true  "File name"
// @Success      200
// @Failure      404  {object}  api.ErrorResponse
// @Router       /files/{userId}/{fileName} [get]
func FileHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) || handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	userId, fileName, err := pathParams(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid file path")
		return
	}
	key, err := blobStore.Key(userId, fileName)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "File not found")
		return
	}

	rc, err := handlerInstance.service.BlobStore.Download(r.Context(), key)
	if errors.Is(err, blobStore.ErrNotFound) {
		WriteErrorResponse(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Error("Reading stored file failed", "key", key, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}
	defer rc.Close()

	if seeker, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, fileName, time.Time{}, seeker)
		return
	}
	w.Header().Set("Content-Type", config.PDFContentType)
	if _, err = io.Copy(w, rc); err != nil {
		logRH.Warn("Streaming file interrupted", "key", key, "error", err)
	}
}

// DocumentsHandler godoc
// @Summary      List a user's documents
// @Description  Newest first.
// @Tags         Documents
// @Produce      json
// @Param        user_id  query  string  true  "User ID"
// @Success      200  {array}   api.DocumentResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Security     BearerAuth
// @Router       /documents [get]
func DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) || handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Missing user_id parameter")
		return
	}

	docs, err := handlerInstance.service.DocumentStore.ListDocuments(r.Context(), userId)
	if err != nil {
		logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Error("Listing documents failed", "userId", userId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, config.CatalogFailedMessage)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponses(docs, handlerInstance.service.BlobStore.GetPublicURL))
}

// ChatHandler godoc
// @Summary      Ask a question about your notes
// @Description  Answers from the user's five closest note chunks and cites the source file names.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest   true  "Question and user ID"
// @Success      200      {object}  api.ChatResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Security     BearerAuth
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) || handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	log := logRH.WithTrace(request.Context(), config.TRACE_ID_KEY)

	var requestData api.ChatRequest
	defer request.Body.Close()
	if err := json.NewDecoder(io.LimitReader(request.Body, 1<<20)).Decode(&requestData); err != nil {
		log.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := handlerInstance.ragService.Answer(request.Context(), requestData.Question, requestData.UserId)
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		WriteErrorResponse(w, http.StatusBadRequest, "No question provided")
	case errors.Is(err, rag.ErrMissingUser):
		WriteErrorResponse(w, http.StatusBadRequest, "User ID is required")
	case err != nil:
		log.Error("Answering failed", "userId", requestData.UserId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate answer")
	default:
		writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(answer.Text, answer.Sources))
	}
}

// GetStatusHandler godoc
// @Summary      Get ingest job status
// @Description  Retrieves the current status of a document ingestion job.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse
// @Security     BearerAuth
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(r.Context(), idString)

	logRH.Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

func traceId(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}
