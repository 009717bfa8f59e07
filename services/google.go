package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	internalhttp "anime-dubber/internal/http"
)

// GoogleAuth carries the credentials for Google Cloud REST calls. An API key
// is sent as the key query parameter; an access token as a bearer header.
// Storage writes need the token.
type GoogleAuth struct {
	APIKey      string
	AccessToken string
}

func (a GoogleAuth) configured() bool {
	return a.APIKey != "" || a.AccessToken != ""
}

// googleClient is the shared JSON-over-HTTPS plumbing for the Google adapters.
type googleClient struct {
	service string
	auth    GoogleAuth
	client  *http.Client
	retry   internalhttp.RetryConfig
}

func newGoogleClient(service string, auth GoogleAuth, client *http.Client) googleClient {
	if client == nil {
		client = internalhttp.NewDefaultClient()
	}
	return googleClient{
		service: service,
		auth:    auth,
		client:  client,
		retry:   internalhttp.DefaultRetryConfig(),
	}
}

func (g googleClient) authorize(req *http.Request) {
	if g.auth.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.auth.AccessToken)
	}
	if g.auth.APIKey != "" {
		q := req.URL.Query()
		q.Set("key", g.auth.APIKey)
		req.URL.RawQuery = q.Encode()
	}
}

// do sends req with retries, checks the status and decodes a JSON reply into
// out when out is non-nil.
func (g googleClient) do(ctx context.Context, req *http.Request, out any) error {
	if !g.auth.configured() {
		return fmt.Errorf("%s: no Google API key or access token configured", g.service)
	}
	g.authorize(req)

	resp, err := internalhttp.DoWithRetryContext(ctx, g.client, req, g.retry)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", g.service, err)
	}
	if err := internalhttp.CheckResponse(g.service, resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", g.service, err)
	}
	return nil
}

func (g googleClient) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", g.service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(ctx, req, out)
}

func (g googleClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return g.do(ctx, req, out)
}

// googleStatus is the error object embedded in Google API replies.
type googleStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *googleStatus) err() error {
	if s == nil || (s.Code == 0 && s.Message == "") {
		return nil
	}
	return fmt.Errorf("code %d: %s", s.Code, s.Message)
}

func joinURL(base string, elem ...string) (string, error) {
	u, err := url.JoinPath(base, elem...)
	if err != nil {
		return "", errors.New("invalid endpoint " + base)
	}
	return u, nil
}
