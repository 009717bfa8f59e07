package services

import (
	"context"
	"time"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/progress"
	"anime-dubber/internal/tts"
	"anime-dubber/models"
)

// SynthesisStage renders translated text to a WAV file.
type SynthesisStage struct {
	synth   tts.Synthesizer
	voice   tts.VoiceParams
	timeout time.Duration
	log     *logger.Logger
}

func NewSynthesisStage(s tts.Synthesizer, voice tts.VoiceParams, timeout time.Duration, log *logger.Logger) *SynthesisStage {
	if timeout <= 0 {
		timeout = config.ServiceTimeout
	}
	return &SynthesisStage{synth: s, voice: voice, timeout: timeout, log: log}
}

// Run synthesizes text and atomically writes the audio to outPath. On failure
// no file exists at outPath.
func (s *SynthesisStage) Run(ctx context.Context, text, outPath string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}

	s.log.Debug("Starting speech synthesis with %s (%s, %s): %s...", s.synth.Name(), s.voice.LanguageCode, s.voice.Gender, preview(text, 50))
	audio, err := callWithTimeout(ctx, "synthesize", s.timeout, func(ctx context.Context) ([]byte, error) {
		return s.synth.Synthesize(ctx, text, s.voice)
	})
	if err != nil {
		s.log.Error("Error during speech synthesis: %v", err)
		return "", &models.SynthesisError{Path: outPath, Err: err}
	}

	if err := atomicfile.WriteFile(outPath, audio); err != nil {
		return "", &models.SynthesisError{Path: outPath, Err: err}
	}

	s.log.Info("Synthesized speech saved to %s", outPath)
	sink.Report(100, "Speech generated")
	return outPath, nil
}
