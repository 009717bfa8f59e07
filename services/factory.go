package services

import (
	"fmt"
	"path/filepath"
	"strings"

	internalhttp "anime-dubber/internal/http"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/models"
)

// StagePrefix names staged objects after the job's output so a resumed job
// overwrites its own uploads.
func StagePrefix(job *models.Job) string {
	return "anime-dubber/" + strings.TrimSuffix(job.OutputName, filepath.Ext(job.OutputName))
}

// NewProviders builds the adapters selected by cfg. stagePrefix namespaces
// staged audio objects; use something stable per job so re-uploads overwrite.
func NewProviders(cfg *models.Config, stagePrefix string, log *logger.Logger) (Providers, error) {
	client := internalhttp.NewDefaultClient()
	google := GoogleAuth{APIKey: cfg.GoogleAPIKey, AccessToken: cfg.GoogleAccessToken}
	oa := OpenAIOptions{
		APIKey:     cfg.OpenAIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Voice:      cfg.OpenAIVoice,
		HTTPClient: client,
	}

	ff := media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, log)
	p := Providers{Media: ff, Frames: ff}

	switch cfg.TranscriptionProvider {
	case models.ProviderGoogle:
		p.Recognizer = NewGoogleSpeech(google, client, log)
		if cfg.GCSBucket != "" {
			p.Stager = NewGCSStager(cfg.GCSBucket, stagePrefix, google, client, log)
		}
	case models.ProviderOpenAI:
		p.Recognizer = NewOpenAITranscriber(oa, log)
	default:
		return Providers{}, fmt.Errorf("unknown transcription provider %q", cfg.TranscriptionProvider)
	}

	var chat *OpenAITranslator
	if cfg.OpenAIKey != "" {
		chat = NewOpenAITranslator(oa)
		p.Normalizer = chat
	}

	switch cfg.TranslationProvider {
	case models.ProviderGoogle:
		p.Translator = NewGoogleTranslate(google, client)
	case models.ProviderOpenAI:
		if chat == nil {
			chat = NewOpenAITranslator(oa)
		}
		p.Translator = chat
	default:
		return Providers{}, fmt.Errorf("unknown translation provider %q", cfg.TranslationProvider)
	}

	switch cfg.TTSProvider {
	case models.ProviderGoogle:
		p.Synthesizer = NewGoogleTTS(google, client)
	case models.ProviderOpenAI:
		p.Synthesizer = NewOpenAISpeech(oa)
	default:
		return Providers{}, fmt.Errorf("unknown tts provider %q", cfg.TTSProvider)
	}

	switch cfg.OCRProvider {
	case models.ProviderTesseract:
		p.Detector = NewTesseract(cfg.TesseractPath, cfg.OCRLanguage)
	case models.ProviderGoogle:
		p.Detector = NewGoogleVision(google, cfg.OCRLanguage, client)
	default:
		return Providers{}, fmt.Errorf("unknown ocr provider %q", cfg.OCRProvider)
	}

	return p, nil
}
