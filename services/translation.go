package services

import (
	"context"
	"time"

	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/progress"
	"anime-dubber/internal/translation"
	"anime-dubber/models"
)

// TranslationStage translates a whole transcript in one call.
type TranslationStage struct {
	translator translation.Translator
	sourceLang string
	timeout    time.Duration
	log        *logger.Logger
}

func NewTranslationStage(t translation.Translator, sourceLang string, timeout time.Duration, log *logger.Logger) *TranslationStage {
	if timeout <= 0 {
		timeout = config.ServiceTimeout
	}
	return &TranslationStage{translator: t, sourceLang: sourceLang, timeout: timeout, log: log}
}

// Run returns text translated into target. Failures are
// *models.TranslationError; a deadline is a *models.TimeoutError inside it.
func (s *TranslationStage) Run(ctx context.Context, text, target string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}

	s.log.Debug("Translating text with target language '%s': %s...", target, preview(text, 50))
	translated, err := callWithTimeout(ctx, "translate", s.timeout, func(ctx context.Context) (string, error) {
		return s.translator.Translate(ctx, text, s.sourceLang, target)
	})
	if err != nil {
		s.log.Error("Error translating text: %v", err)
		return "", &models.TranslationError{Err: err}
	}

	s.log.Info("Text translation completed with %s: %s...", s.translator.Name(), preview(translated, 50))
	sink.Report(100, "Translated")
	return translated, nil
}

// NormalizeStage merges fragmentary OCR lines into coherent sentences.
type NormalizeStage struct {
	normalizer translation.Normalizer
	lang       string
	timeout    time.Duration
	log        *logger.Logger
}

func NewNormalizeStage(n translation.Normalizer, lang string, timeout time.Duration, log *logger.Logger) *NormalizeStage {
	if timeout <= 0 {
		timeout = config.ServiceTimeout
	}
	return &NormalizeStage{normalizer: n, lang: lang, timeout: timeout, log: log}
}

func (s *NormalizeStage) Run(ctx context.Context, lines []string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	out, err := callWithTimeout(ctx, "normalize", s.timeout, func(ctx context.Context) (string, error) {
		return s.normalizer.Combine(ctx, lines, s.lang)
	})
	if err != nil {
		return "", err
	}
	s.log.Info("Normalized %d subtitle lines", len(lines))
	sink.Report(100, "Normalized")
	return out, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
