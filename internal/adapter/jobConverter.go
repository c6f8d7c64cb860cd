package adapter

import (
	"fmt"

	"github.com/akolanti/StudyHelper/internal/api"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
)

func ToInitJobResponse(id string, documentId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:         id,
		DocumentId: documentId,
		StatusURL:  fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	return api.JobResponse{
		Id:         job.Id,
		DocumentId: job.JobPayload.DocumentId,
		StartTime:  job.CreatedTime,
		EndTime:    job.EndTime,
		Error:      errorPtr,
		Result: api.Result{
			Status:     string(job.Status),
			Step:       string(job.CurrentStep),
			ChunkCount: job.JobPayload.ChunkCount,
		},
	}
}

// ToDocumentResponses keeps the store's order. url maps a storage key to the
// address clients fetch the file from.
func ToDocumentResponses(docs []commonModels.Document, url func(storageKey string) string) []api.DocumentResponse {
	out := make([]api.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, api.DocumentResponse{
			Id:        doc.Id,
			Name:      doc.Name,
			URL:       url(doc.StorageKey),
			CreatedAt: doc.CreatedAt,
		})
	}
	return out
}

func ToChatResponse(answer string, sources []string) api.ChatResponse {
	return api.ChatResponse{Answer: answer, Sources: sources}
}

func ToErrorResponse(message string) api.ErrorResponse {
	return api.ErrorResponse{Error: message}
}
