package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
)

var (
	once   sync.Once
	shared *http.Client
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Shared returns the pooled client used by the session transports. The
// timeout is the only deadline the session core relies on.
func Shared() *http.Client {
	once.Do(func() {
		shared = &http.Client{
			Transport: customTransport,
			Timeout:   config.ClientTimeout,
		}
	})
	return shared
}
