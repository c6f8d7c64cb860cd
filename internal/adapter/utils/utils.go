package utils

import (
	"net/http"
	"net/url"
	"sync"

	_ "github.com/akolanti/StudyHelper/cmd/studyhelper/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// GetChiPathParam is GetChiURLParam for segments that may carry escapes. chi
// matches against URL.RawPath when it is set, which leaves values like
// "notes%2C%20week1.pdf" encoded.
func GetChiPathParam(request *http.Request, key string) (string, error) {
	value := chi.URLParam(request, key)
	if request.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

// GetRoutePattern is the matched route, e.g. /files/{userId}/{fileName}. It
// falls back to the raw path outside a chi router.
func GetRoutePattern(request *http.Request) string {
	if rctx := chi.RouteContext(request.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return request.URL.Path
}

func GetRouter() RouterClient {
	once.Do(func() {
		router = NewRouter()
	})

	return RouterClient{Router: router}
}

// NewRouter returns a router with swagger and /metrics mounted.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	InitSwagger(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
