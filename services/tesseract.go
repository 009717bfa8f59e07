package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anime-dubber/internal/config"
	"anime-dubber/internal/media"
	"anime-dubber/internal/text"
)

// Tesseract runs the local tesseract executable on preprocessed frames.
type Tesseract struct {
	path     string
	language string
	runner   media.CommandRunner
	timeout  time.Duration
}

// NewTesseract uses the given executable; language is a BCP-47 tag or a
// tesseract pack name.
func NewTesseract(path, language string) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	return &Tesseract{
		path:     path,
		language: text.TesseractLanguage(language),
		runner:   &media.ExecRunner{},
		timeout:  config.ExecTimeoutTesseract,
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// CheckInstalled verifies the executable responds.
func (t *Tesseract) CheckInstalled(ctx context.Context) error {
	if _, err := t.runner.Run(ctx, t.path, "--version"); err != nil {
		return fmt.Errorf("tesseract not found at %s: %w", t.path, err)
	}
	return nil
}

func (t *Tesseract) DetectText(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.runner.Run(ctx, t.path, imagePath, "stdout", "--oem", "3", "--psm", "6", "-l", t.language)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}
