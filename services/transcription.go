package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anime-dubber/internal/chunker"
	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/progress"
	"anime-dubber/internal/text"
	"anime-dubber/internal/transcription"
	"anime-dubber/models"
)

// TranscriptionOptions configures a TranscriptionStage.
type TranscriptionOptions struct {
	Mode       transcription.Mode
	Language   string
	SampleRate int

	// Stager is required for staged mode and enables auto mode's staged path.
	Stager transcription.Stager

	Timeout         time.Duration
	SlowThreshold   time.Duration
	StagedThreshold time.Duration
}

// TranscriptionStage turns an ordered list of audio chunks into one transcript.
type TranscriptionStage struct {
	recognizer transcription.Recognizer
	opts       TranscriptionOptions
	log        *logger.Logger
	now        func() time.Time
}

// NewTranscriptionStage fills unset options with the package defaults.
func NewTranscriptionStage(r transcription.Recognizer, opts TranscriptionOptions, log *logger.Logger) *TranscriptionStage {
	if opts.Mode == "" {
		opts.Mode = transcription.ModeAuto
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = config.AudioSampleRate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.ServiceTimeout
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = config.SlowChunkThreshold
	}
	if opts.StagedThreshold <= 0 {
		opts.StagedThreshold = config.StagedThreshold
	}
	return &TranscriptionStage{recognizer: r, opts: opts, log: log, now: time.Now}
}

// Run submits chunks sequentially in index order and joins the results with
// single spaces. Any failure aborts the stage; no partial transcript is
// returned.
func (s *TranscriptionStage) Run(ctx context.Context, chunks []models.AudioChunk, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}

	staged, err := s.useStaged(chunks)
	if err != nil {
		return "", err
	}
	if !staged {
		var created []string
		defer func() {
			for _, path := range created {
				_ = os.Remove(path)
			}
		}()
		chunks, err = s.expand(ctx, chunks, s.recognizer.MaxPayloadBytes(), &created)
		if err != nil {
			return "", err
		}
	}

	total := len(chunks)
	if total == 0 {
		sink.Report(100, "Transcribing")
		return "", nil
	}

	s.log.Info("Transcribing %d chunks with %s (staged=%v)", total, s.recognizer.Name(), staged)

	parts := make([]string, 0, total)
	for i, ch := range chunks {
		audio := transcription.Audio{Path: ch.Path, SampleRate: s.opts.SampleRate, Language: s.opts.Language}

		start := s.now()
		transcript, err := s.recognize(ctx, audio, staged)
		elapsed := s.now().Sub(start)
		if err != nil {
			s.log.Error("Error transcribing chunk %d (%s): %v", ch.Index, ch.Path, err)
			return "", &models.TranscriptionError{Index: ch.Index, Path: ch.Path, Err: err}
		}
		if elapsed > s.opts.SlowThreshold {
			s.log.Warn("Chunk %d took too long to transcribe: %s", ch.Index, elapsed.Round(time.Millisecond))
		}
		s.log.Debug("Completed transcription for chunk %d", ch.Index)

		parts = append(parts, transcript)
		sink.Report(progress.Percent(i+1, total), fmt.Sprintf("Transcribing %d/%d", i+1, total))
	}

	return text.JoinTranscript(parts), nil
}

func (s *TranscriptionStage) recognize(ctx context.Context, audio transcription.Audio, staged bool) (string, error) {
	if !staged {
		return callWithTimeout(ctx, "recognize "+filepath.Base(audio.Path), s.opts.Timeout, func(ctx context.Context) (string, error) {
			return s.recognizer.Recognize(ctx, audio)
		})
	}

	uri, err := callWithTimeout(ctx, "stage "+filepath.Base(audio.Path), s.opts.Timeout, func(ctx context.Context) (string, error) {
		return s.opts.Stager.Stage(ctx, audio.Path)
	})
	if err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}
	defer func() {
		_, err := callWithTimeout(context.WithoutCancel(ctx), "unstage "+uri, s.opts.Timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.opts.Stager.Unstage(ctx, uri)
		})
		if err != nil {
			s.log.Warn("Failed to delete staged object %s: %v", uri, err)
		}
	}()

	sr := s.recognizer.(transcription.StagedRecognizer)
	return callWithTimeout(ctx, "recognize "+uri, s.opts.Timeout, func(ctx context.Context) (string, error) {
		return sr.RecognizeURI(ctx, uri, audio)
	})
}

// useStaged resolves the configured mode against what the recognizer and
// stager support.
func (s *TranscriptionStage) useStaged(chunks []models.AudioChunk) (bool, error) {
	_, canStage := s.recognizer.(transcription.StagedRecognizer)
	available := canStage && s.opts.Stager != nil

	switch s.opts.Mode {
	case transcription.ModeInline:
		return false, nil
	case transcription.ModeStaged:
		if !available {
			return false, fmt.Errorf("staged transcription needs a storage stager and a recognizer that reads from storage (%s)", s.recognizer.Name())
		}
		return true, nil
	default:
		var total time.Duration
		for _, ch := range chunks {
			total += ch.Duration
		}
		return available && total > s.opts.StagedThreshold, nil
	}
}

// expand re-splits every chunk larger than ceiling and renumbers the result
// densely. A zero ceiling leaves chunks untouched. Every file written by a
// re-split is appended to created, including ones split again.
func (s *TranscriptionStage) expand(ctx context.Context, chunks []models.AudioChunk, ceiling int64, created *[]string) ([]models.AudioChunk, error) {
	if ceiling <= 0 {
		return chunks, nil
	}

	out := make([]models.AudioChunk, 0, len(chunks))
	changed := false
	for _, ch := range chunks {
		pieces, err := s.fit(ctx, ch, ceiling, created)
		if err != nil {
			return nil, err
		}
		if len(pieces) != 1 || pieces[0].Path != ch.Path {
			changed = true
		}
		out = append(out, pieces...)
	}
	for i := range out {
		out[i].Index = i
	}
	if changed {
		s.log.Info("Re-split audio for %d byte ceiling: %d chunks became %d", ceiling, len(chunks), len(out))
	}
	return out, nil
}

func (s *TranscriptionStage) fit(ctx context.Context, ch models.AudioChunk, ceiling int64, created *[]string) ([]models.AudioChunk, error) {
	if ch.ByteSize <= ceiling {
		return []models.AudioChunk{ch}, nil
	}

	prefix := strings.TrimSuffix(filepath.Base(ch.Path), filepath.Ext(ch.Path))
	pieces, err := chunker.New(ceiling, s.log).Split(ctx, ch.Path, filepath.Dir(ch.Path), prefix)
	if err != nil {
		return nil, err
	}
	for _, p := range pieces {
		*created = append(*created, p.Path)
	}
	if len(pieces) == 1 && pieces[0].ByteSize > ceiling {
		return nil, &models.ChunkSizeError{Index: ch.Index, Size: pieces[0].ByteSize, Ceiling: ceiling}
	}

	var out []models.AudioChunk
	for _, p := range pieces {
		p.Offset += ch.Offset
		sub, err := s.fit(ctx, p, ceiling, created)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}
