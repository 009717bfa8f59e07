package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
)

// GCSStager uploads audio to a Cloud Storage bucket through the JSON API so
// long audio can be recognized by URI. Object names are derived from the
// prefix and file name only, so a repeated upload replaces the same object.
type GCSStager struct {
	api      googleClient
	endpoint string
	bucket   string
	prefix   string
	log      *logger.Logger
}

// NewGCSStager stages objects under gs://bucket/prefix/.
func NewGCSStager(bucket, prefix string, auth GoogleAuth, client *http.Client, log *logger.Logger) *GCSStager {
	return &GCSStager{
		api:      newGoogleClient("Cloud Storage", auth, client),
		endpoint: config.GoogleStorageEndpoint,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		log:      log,
	}
}

func (s *GCSStager) objectName(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

// Stage uploads the file and returns its gs:// URI.
func (s *GCSStager) Stage(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	name := s.objectName(localPath)
	base, err := joinURL(s.endpoint, "upload", "storage", "v1", "b", s.bucket, "o")
	if err != nil {
		return "", err
	}
	q := url.Values{"uploadType": {"media"}, "name": {name}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"?"+q.Encode(), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/wav")
	if err := s.api.do(ctx, req, nil); err != nil {
		return "", err
	}

	uri := "gs://" + s.bucket + "/" + name
	s.log.Debug("Staged %s as %s (%d bytes)", filepath.Base(localPath), uri, len(data))
	return uri, nil
}

// Unstage deletes an object previously returned by Stage.
func (s *GCSStager) Unstage(ctx context.Context, uri string) error {
	prefix := "gs://" + s.bucket + "/"
	if !strings.HasPrefix(uri, prefix) {
		return fmt.Errorf("object %s is not in bucket %s", uri, s.bucket)
	}
	name := strings.TrimPrefix(uri, prefix)

	endpoint := strings.TrimRight(s.endpoint, "/") + "/storage/v1/b/" + url.PathEscape(s.bucket) + "/o/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return s.api.do(ctx, req, nil)
}
