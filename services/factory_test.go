package services

import (
	"testing"

	"anime-dubber/internal/logger"
	"anime-dubber/models"
)

func TestNewProviders_Selection(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.GCSBucket = "anime-bucket"

	p, err := NewProviders(cfg, "anime-dubber/ep1", logger.Discard())
	if err != nil {
		t.Fatalf("NewProviders() error = %v", err)
	}
	if _, ok := p.Recognizer.(*GoogleSpeech); !ok {
		t.Errorf("recognizer = %T", p.Recognizer)
	}
	if _, ok := p.Stager.(*GCSStager); !ok {
		t.Errorf("stager = %T", p.Stager)
	}
	if _, ok := p.Detector.(*Tesseract); !ok {
		t.Errorf("detector = %T", p.Detector)
	}
	if p.Normalizer != nil {
		t.Errorf("normalizer without an OpenAI key = %T", p.Normalizer)
	}

	cfg.TranscriptionProvider = models.ProviderOpenAI
	cfg.TranslationProvider = models.ProviderOpenAI
	cfg.TTSProvider = models.ProviderOpenAI
	cfg.OCRProvider = models.ProviderGoogle
	cfg.OpenAIKey = "sk-test"
	if p, err = NewProviders(cfg, "", logger.Discard()); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Recognizer.(*OpenAITranscriber); !ok {
		t.Errorf("recognizer = %T", p.Recognizer)
	}
	if p.Stager != nil {
		t.Errorf("openai transcription should not stage, got %T", p.Stager)
	}
	tr, ok := p.Translator.(*OpenAITranslator)
	if !ok {
		t.Fatalf("translator = %T", p.Translator)
	}
	if p.Normalizer != tr {
		t.Error("normalizer and translator should share one client")
	}
	if _, ok := p.Synthesizer.(*OpenAISpeech); !ok {
		t.Errorf("synthesizer = %T", p.Synthesizer)
	}
	if _, ok := p.Detector.(*GoogleVision); !ok {
		t.Errorf("detector = %T", p.Detector)
	}

	cfg.TTSProvider = "piper"
	if _, err := NewProviders(cfg, "", logger.Discard()); err == nil {
		t.Error("expected error for an unknown provider")
	}
}

func TestStagePrefix(t *testing.T) {
	job := models.NewJob("/videos/ep1.mkv", "/out", "ep1 dubbed.mkv")
	if got := StagePrefix(job); got != "anime-dubber/ep1 dubbed" {
		t.Errorf("StagePrefix() = %q", got)
	}
}
