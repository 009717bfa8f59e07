package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"anime-dubber/internal/config"
	"anime-dubber/internal/text"
)

// GoogleVision detects text in frames with Cloud Vision images:annotate.
type GoogleVision struct {
	api      googleClient
	endpoint string
	language string
}

func NewGoogleVision(auth GoogleAuth, language string, client *http.Client) *GoogleVision {
	return &GoogleVision{
		api:      newGoogleClient("Google Vision", auth, client),
		endpoint: config.GoogleVisionEndpoint,
		language: text.BaseLanguage(language),
	}
}

func (v *GoogleVision) Name() string { return "google-vision" }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []struct {
		Type string `json:"type"`
	} `json:"features"`
	ImageContext *struct {
		LanguageHints []string `json:"languageHints"`
	} `json:"imageContext,omitempty"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		Error *googleStatus `json:"error"`
	} `json:"responses"`
}

func (v *GoogleVision) DetectText(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	var img visionImageRequest
	img.Image.Content = base64.StdEncoding.EncodeToString(data)
	img.Features = []struct {
		Type string `json:"type"`
	}{{Type: "TEXT_DETECTION"}}
	if v.language != "" {
		img.ImageContext = &struct {
			LanguageHints []string `json:"languageHints"`
		}{LanguageHints: []string{v.language}}
	}

	endpoint, err := joinURL(v.endpoint, "images:annotate")
	if err != nil {
		return "", err
	}

	var resp visionResponse
	if err := v.api.postJSON(ctx, endpoint, visionRequest{Requests: []visionImageRequest{img}}, &resp); err != nil {
		return "", err
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if err := r.Error.err(); err != nil {
		return "", fmt.Errorf("vision annotate failed: %w", err)
	}
	if r.FullTextAnnotation != nil {
		return strings.TrimSpace(r.FullTextAnnotation.Text), nil
	}
	if len(r.TextAnnotations) > 0 {
		return strings.TrimSpace(r.TextAnnotations[0].Description), nil
	}
	return "", nil
}
