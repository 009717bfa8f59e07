package services

import (
	"context"
	"errors"
	"html"
	"net/http"

	"anime-dubber/internal/config"
	"anime-dubber/internal/text"
)

// GoogleTranslate uses the Cloud Translation v2 REST API.
type GoogleTranslate struct {
	api      googleClient
	endpoint string
}

func NewGoogleTranslate(auth GoogleAuth, client *http.Client) *GoogleTranslate {
	return &GoogleTranslate{
		api:      newGoogleClient("Google Translate", auth, client),
		endpoint: config.GoogleTranslateEndpoint,
	}
}

func (t *GoogleTranslate) Name() string { return "google-translate" }

type translateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

func (t *GoogleTranslate) Translate(ctx context.Context, input, sourceLang, targetLang string) (string, error) {
	req := translateRequest{
		Q:      []string{input},
		Target: text.BaseLanguage(targetLang),
		Format: "text",
	}
	if sourceLang != "" {
		req.Source = text.BaseLanguage(sourceLang)
	}

	var resp translateResponse
	if err := t.api.postJSON(ctx, t.endpoint, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.Translations) == 0 {
		return "", errors.New("google translate returned no translations")
	}
	return html.UnescapeString(resp.Data.Translations[0].TranslatedText), nil
}
