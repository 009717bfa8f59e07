package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anime-dubber/internal/config"
	"anime-dubber/internal/tts"
)

// GoogleTTS synthesizes LINEAR16 WAV with the Cloud Text-to-Speech v1 API.
type GoogleTTS struct {
	api      googleClient
	endpoint string
}

func NewGoogleTTS(auth GoogleAuth, client *http.Client) *GoogleTTS {
	return &GoogleTTS{
		api:      newGoogleClient("Google TTS", auth, client),
		endpoint: config.GoogleTTSEndpoint,
	}
}

func (s *GoogleTTS) Name() string { return "google-tts" }

type ttsRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
		SsmlGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type ttsResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns a WAV file. LINEAR16 replies carry their own header.
func (s *GoogleTTS) Synthesize(ctx context.Context, input string, voice tts.VoiceParams) ([]byte, error) {
	var req ttsRequest
	req.Input.Text = input
	req.Voice.LanguageCode = voice.LanguageCode
	req.Voice.SsmlGender = strings.ToUpper(string(voice.Gender))
	if req.Voice.SsmlGender == "" {
		req.Voice.SsmlGender = "NEUTRAL"
	}
	// Google voice names look like en-US-Neural2-C; anything else is meant
	// for another provider.
	if strings.HasPrefix(voice.Voice, voice.LanguageCode+"-") {
		req.Voice.Name = voice.Voice
	}
	req.AudioConfig.AudioEncoding = "LINEAR16"

	endpoint, err := joinURL(s.endpoint, "text:synthesize")
	if err != nil {
		return nil, err
	}

	var resp ttsResponse
	if err := s.api.postJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioContent == "" {
		return nil, errors.New("google tts returned no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}
