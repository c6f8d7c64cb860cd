package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/akolanti/StudyHelper/internal/adapter/utils"
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/handlers"
	"github.com/akolanti/StudyHelper/internal/metrics"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var (
	settingsLock sync.RWMutex
	settings     config.ServerSettings
)

// Init applies the server's auth and rate limit settings. An empty auth token
// turns bearer auth off.
func Init(serverSettings config.ServerSettings) {
	settingsLock.Lock()
	defer settingsLock.Unlock()
	settings = serverSettings
}

func authToken() string {
	settingsLock.RLock()
	defer settingsLock.RUnlock()
	return settings.AuthToken
}

func rateLimitEnabled() bool {
	settingsLock.RLock()
	defer settingsLock.RUnlock()
	return settings.RateLimit
}

var GetHandler = WrapPublic(handlers.GetHandler)
var FileHandler = WrapPublic(handlers.FileHandler)

var UploadHandler = Wrap(handlers.UploadHandler)
var DocumentsHandler = Wrap(handlers.DocumentsHandler)
var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

// Preflight answers CORS OPTIONS requests for every route.
var Preflight = WrapPublic(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

// Wrap requires a bearer token when one is configured.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapPublic skips auth. The catalog hands /files urls straight to viewers.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

func wrap(next http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := metrics.NewStatusRecorder(w) //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, requireAuth)

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(utils.GetRoutePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, requireAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	re = allowCORS(re)
	if re.req.Method == http.MethodOptions {
		return re
	}
	if requireAuth {
		re = authenticate(re)
		if re.badRequest.isBadRequest {
			return re //stop if auth fails
		}
	}
	return rateLimiter(re)
}
