package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akolanti/StudyHelper/internal/adapter"
	"github.com/akolanti/StudyHelper/internal/adapter/utils"
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(ctx, id)
}

func validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		logRH.WithTrace(ctx, config.TRACE_ID_KEY).Warn("context error", "error", err)
		return false
	}
	return true
}

// WriteErrorResponse writes {"error": message}.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(message))
}

// pathParams reads the decoded {userId} and {fileName} route values.
func pathParams(r *http.Request) (userId, fileName string, err error) {
	if userId, err = utils.GetChiPathParam(r, "userId"); err != nil {
		return "", "", err
	}
	if fileName, err = utils.GetChiPathParam(r, "fileName"); err != nil {
		return "", "", err
	}
	return userId, fileName, nil
}
