package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is a non-2xx reply from a remote API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, body)
}

// CheckResponse returns a *StatusError for non-2xx responses. The body is
// consumed and closed in that case; on success resp is left untouched.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}
