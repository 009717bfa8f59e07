package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/internal/text"
	"anime-dubber/internal/transcription"
	"anime-dubber/internal/tts"
)

// OpenAIOptions configures the OpenAI-compatible adapters.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	// Model is the chat model for translation and normalization.
	Model string
	// Voice overrides the gender-derived speech voice.
	Voice string
	// HTTPClient is optional; nil uses a pooled default.
	HTTPClient *http.Client
}

func newOpenAIClient(opts OpenAIOptions) *openai.Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAITranscriber recognizes speech with the Whisper transcription API.
type OpenAITranscriber struct {
	client *openai.Client
	log    *logger.Logger
}

func NewOpenAITranscriber(opts OpenAIOptions, log *logger.Logger) *OpenAITranscriber {
	return &OpenAITranscriber{client: newOpenAIClient(opts), log: log}
}

func (s *OpenAITranscriber) Name() string { return "openai-whisper" }

func (s *OpenAITranscriber) MaxPayloadBytes() int64 { return config.OpenAIPayloadBytes }

func (s *OpenAITranscriber) Recognize(ctx context.Context, audio transcription.Audio) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audio.Path,
		Format:   openai.AudioResponseFormatJSON,
		Language: text.BaseLanguage(audio.Language),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	s.log.Debug("OpenAI transcription of %s: %d chars", audio.Path, len(resp.Text))
	return strings.TrimSpace(resp.Text), nil
}

// OpenAITranslator translates with a chat completion model. It also
// implements translation.Normalizer for OCR text.
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

func NewOpenAITranslator(opts OpenAIOptions) *OpenAITranslator {
	model := opts.Model
	if model == "" {
		model = config.OpenAITranslationModel
	}
	return &OpenAITranslator{client: newOpenAIClient(opts), model: model}
}

func (t *OpenAITranslator) Name() string { return "openai-" + t.model }

func (t *OpenAITranslator) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: config.TranslationTemperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, input, sourceLang, targetLang string) (string, error) {
	from := "the source language"
	if sourceLang != "" {
		from = text.GetLanguageName(sourceLang)
	}
	system := fmt.Sprintf(
		"You translate anime dialogue from %s to %s for dubbing. "+
			"Reply with the translation only, keeping the meaning and tone natural for spoken %s.",
		from, text.GetLanguageName(targetLang), text.GetLanguageName(targetLang))

	out, err := t.complete(ctx, system, input)
	if err != nil {
		return "", fmt.Errorf("openai translation: %w", err)
	}
	return out, nil
}

// Combine merges OCR subtitle fragments into sentences without translating.
func (t *OpenAITranslator) Combine(ctx context.Context, lines []string, lang string) (string, error) {
	system := fmt.Sprintf(
		"The user sends %s subtitle lines read by OCR from consecutive video frames. "+
			"They may be split mid-sentence, repeated or contain recognition noise. "+
			"Rewrite them as coherent %s sentences in order, one per line. Do not translate. Reply with the text only.",
		text.GetLanguageName(lang), text.GetLanguageName(lang))

	out, err := t.complete(ctx, system, strings.Join(lines, "\n"))
	if err != nil {
		return "", fmt.Errorf("openai normalization: %w", err)
	}
	return out, nil
}

// OpenAISpeech synthesizes WAV audio with the speech API.
type OpenAISpeech struct {
	client *openai.Client
	voice  string
}

func NewOpenAISpeech(opts OpenAIOptions) *OpenAISpeech {
	return &OpenAISpeech{client: newOpenAIClient(opts), voice: opts.Voice}
}

func (s *OpenAISpeech) Name() string { return "openai-tts" }

// voiceFor picks a preset voice for the requested gender.
func (s *OpenAISpeech) voiceFor(params tts.VoiceParams) openai.SpeechVoice {
	switch {
	case params.Voice != "" && !strings.Contains(params.Voice, "-"):
		return openai.SpeechVoice(params.Voice)
	case s.voice != "":
		return openai.SpeechVoice(s.voice)
	}
	switch params.Gender {
	case tts.GenderMale:
		return openai.VoiceOnyx
	case tts.GenderFemale:
		return openai.VoiceNova
	default:
		return openai.VoiceAlloy
	}
}

func (s *OpenAISpeech) Synthesize(ctx context.Context, input string, params tts.VoiceParams) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          input,
		Voice:          s.voiceFor(params),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return media.FixStreamedWAV(data)
}
