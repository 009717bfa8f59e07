package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/transcription"
)

// GoogleSpeech recognizes LINEAR16 audio with the Cloud Speech-to-Text v1 REST
// API: speech:recognize for inline audio and speech:longrunningrecognize for
// audio staged in Cloud Storage.
type GoogleSpeech struct {
	api          googleClient
	endpoint     string
	pollInterval time.Duration
	log          *logger.Logger
}

func NewGoogleSpeech(auth GoogleAuth, client *http.Client, log *logger.Logger) *GoogleSpeech {
	return &GoogleSpeech{
		api:          newGoogleClient("Google Speech", auth, client),
		endpoint:     config.GoogleSpeechEndpoint,
		pollInterval: config.OperationPollInterval,
		log:          log,
	}
}

func (s *GoogleSpeech) Name() string { return "google-speech" }

// speechRequestOverhead bounds the JSON around the base64 audio content.
const speechRequestOverhead = 4096

// MaxPayloadBytes is the largest WAV file whose base64 encoding, together
// with the request JSON, stays within the inline request ceiling.
func (s *GoogleSpeech) MaxPayloadBytes() int64 {
	return (config.MaxPayloadBytes - speechRequestOverhead) / 4 * 3
}

type speechConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz,omitempty"`
	LanguageCode    string `json:"languageCode"`
}

type speechAudio struct {
	Content string `json:"content,omitempty"`
	URI     string `json:"uri,omitempty"`
}

type speechRequest struct {
	Config speechConfig `json:"config"`
	Audio  speechAudio  `json:"audio"`
}

type speechResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// text joins the top alternative of every result.
func (r speechResponse) text() string {
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if len(res.Alternatives) > 0 {
			parts = append(parts, strings.TrimSpace(res.Alternatives[0].Transcript))
		}
	}
	return strings.Join(parts, " ")
}

type speechOperation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *googleStatus   `json:"error,omitempty"`
	Response *speechResponse `json:"response,omitempty"`
}

func (s *GoogleSpeech) config(audio transcription.Audio) speechConfig {
	lang := audio.Language
	if lang == "" {
		lang = "ja-JP"
	}
	return speechConfig{Encoding: "LINEAR16", SampleRateHertz: audio.SampleRate, LanguageCode: lang}
}

// Recognize sends the WAV file inline.
func (s *GoogleSpeech) Recognize(ctx context.Context, audio transcription.Audio) (string, error) {
	data, err := os.ReadFile(audio.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	endpoint, err := joinURL(s.endpoint, "speech:recognize")
	if err != nil {
		return "", err
	}
	req := speechRequest{
		Config: s.config(audio),
		Audio:  speechAudio{Content: base64.StdEncoding.EncodeToString(data)},
	}

	var resp speechResponse
	if err := s.api.postJSON(ctx, endpoint, req, &resp); err != nil {
		return "", err
	}
	return resp.text(), nil
}

// RecognizeURI starts a long-running recognition of a gs:// object and polls
// the operation until it finishes or ctx ends.
func (s *GoogleSpeech) RecognizeURI(ctx context.Context, uri string, audio transcription.Audio) (string, error) {
	endpoint, err := joinURL(s.endpoint, "speech:longrunningrecognize")
	if err != nil {
		return "", err
	}

	var op speechOperation
	req := speechRequest{Config: s.config(audio), Audio: speechAudio{URI: uri}}
	if err := s.api.postJSON(ctx, endpoint, req, &op); err != nil {
		return "", err
	}
	s.log.Debug("Google Speech: started operation %s for %s", op.Name, uri)

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}

		opURL, err := joinURL(s.endpoint, "operations", op.Name)
		if err != nil {
			return "", err
		}
		name := op.Name
		op = speechOperation{}
		if err := s.api.getJSON(ctx, opURL, &op); err != nil {
			return "", err
		}
		if op.Name == "" {
			op.Name = name
		}
	}

	if err := op.Error.err(); err != nil {
		return "", fmt.Errorf("recognition operation %s failed: %w", op.Name, err)
	}
	if op.Response == nil {
		return "", nil
	}
	return op.Response.text(), nil
}
