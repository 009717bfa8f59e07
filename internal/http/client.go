// Package http provides the shared HTTP client, retrying request execution
// and status checking for the REST adapters.
package http

import (
	"net/http"
	"time"

	"anime-dubber/internal/config"
)

// NewDefaultClient returns the client every REST adapter of a run shares.
// Its timeout is the service timeout; individual calls are bounded further
// by their contexts.
func NewDefaultClient() *http.Client {
	return newClient(config.ServiceTimeout)
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        config.HTTPMaxIdleConns,
			MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
			IdleConnTimeout:     config.HTTPIdleConnTimeout,
		},
	}
}
