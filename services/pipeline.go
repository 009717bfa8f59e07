package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/internal/checkpoint"
	"anime-dubber/internal/chunker"
	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/ocr"
	"anime-dubber/internal/progress"
	"anime-dubber/internal/text"
	"anime-dubber/internal/transcription"
	"anime-dubber/internal/translation"
	"anime-dubber/internal/tts"
	"anime-dubber/models"
)

// Artifact file names inside a job's work dir.
const (
	chunkDirName       = "chunks"
	transcriptName     = "transcript.txt"
	normalizedName     = "normalized.txt"
	translationName    = "translation.txt"
	synthesizedName    = "synthesized.wav"
	extractedAudioTail = "_extracted_audio.wav"
	monoAudioTail      = "_mono.wav"
)

// Providers are the external capabilities a pipeline drives. Only the ones a
// job's plan needs have to be set.
type Providers struct {
	Media       MediaTool
	Frames      FrameSource
	Recognizer  transcription.Recognizer
	Stager      transcription.Stager
	Translator  translation.Translator
	Normalizer  translation.Normalizer
	Synthesizer tts.Synthesizer
	Detector    ocr.Detector
}

// JobRecorder stores the outcome of a run. internal/history implements it.
type JobRecorder interface {
	RecordJob(ctx context.Context, job *models.Job) error
}

// Result is the outcome of a Run that did not fail.
type Result struct {
	Status     models.JobStatus
	OutputPath string
	// Reused lists stages whose artifacts came from the checkpoint.
	Reused []models.Stage
}

// Pipeline runs a job's stages in order and persists a checkpoint after each
// one so an interrupted job resumes where it stopped.
type Pipeline struct {
	cfg       *models.Config
	providers Providers
	log       *logger.Logger
	history   JobRecorder

	cancelled atomic.Bool
}

func NewPipeline(cfg *models.Config, providers Providers, log *logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, providers: providers, log: log}
}

// SetHistory enables recording of finished, failed and cancelled runs.
func (p *Pipeline) SetHistory(r JobRecorder) {
	p.history = r
}

// Cancel asks the running job to stop at the next stage boundary.
// It is safe to call from any goroutine.
func (p *Pipeline) Cancel() {
	p.cancelled.Store(true)
}

func (p *Pipeline) shouldStop(ctx context.Context) bool {
	return p.cancelled.Load() || ctx.Err() != nil
}

// Run executes job. A stage failure is returned as *models.StageError with the
// checkpoint left at the last completed stage. Cancellation is not an error:
// the result has Status Cancelled and a later Run resumes from that boundary.
func (p *Pipeline) Run(ctx context.Context, job *models.Job, sink progress.Sink) (*Result, error) {
	defer p.cancelled.Store(false)
	if sink == nil {
		sink = progress.Nop{}
	}
	sink = progress.Monotonic(progress.Multi{sink, progress.Func(func(percent int, _ string) {
		job.Progress = percent
	})})

	lock, err := checkpoint.AcquireLock(job.CheckpointPath(), job.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			p.log.Warn("Failed to release job lock: %v", err)
		}
	}()

	plan := job.Plan()
	store := checkpoint.NewStore(job.CheckpointPath())
	cp, err := store.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = checkpoint.New(job)
	} else {
		if err := cp.Validate(store.Path(), job.SourcePath, job.Mode, plan); err != nil {
			return nil, err
		}
		job.ID = cp.JobID
		if len(job.Keep) == 0 {
			job.Keep = cp.Keep
		}
		p.log.Info("Resuming job %s after stage %q", job.ID, cp.Frontier(plan))
	}
	cp.Keep = append([]models.Stage(nil), job.Keep...)

	if err := os.MkdirAll(job.WorkDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	result := &Result{}
	for i, stage := range plan {
		if p.shouldStop(ctx) {
			return p.cancel(ctx, job, store, cp, result)
		}

		start, end := stageRange(job, stage)
		if artifact, ok := cp.Completed(stage); ok {
			p.log.Info("Pipeline: Stage %d/%d - %s (reused %s)", i+1, len(plan), stage, filepath.Base(artifact))
			job.Advance(stage, artifact)
			result.Reused = append(result.Reused, stage)
			sink.Report(end, stage.Label())
			continue
		}

		p.log.Info("Pipeline: Stage %d/%d - %s", i+1, len(plan), stage.Label())
		job.SetStatus(job.Status, stage, start)
		sink.Report(start, stage.Label())

		artifact, err := p.runStage(ctx, job, cp, plan, i, progress.Range(sink, start, end))
		if err != nil {
			if errors.Is(err, context.Canceled) && p.shouldStop(ctx) {
				return p.cancel(ctx, job, store, cp, result)
			}
			return nil, p.fail(ctx, job, store, cp, stage, err)
		}

		cp.MarkCompleted(stage, artifact)
		if err := store.Save(cp); err != nil {
			return nil, p.fail(ctx, job, store, cp, stage, fmt.Errorf("save checkpoint: %w", err))
		}
		job.Advance(stage, artifact)
		sink.Report(end, stage.Label())
		p.log.Info("Pipeline: Stage %d/%d - %s done", i+1, len(plan), stage)

		if stage == models.StageTranscribe && !job.Keeps(models.StageChunk) {
			p.removeChunks(cp)
		}
	}

	if err := store.Delete(); err != nil {
		p.log.Warn("%v", err)
	}
	p.cleanup(job, cp, plan)

	job.Complete(job.OutputPath())
	p.record(ctx, job)
	sink.Report(100, "Completed")

	result.Status = models.StatusMerged
	result.OutputPath = job.OutputPath()
	return result, nil
}

func (p *Pipeline) cancel(ctx context.Context, job *models.Job, store *checkpoint.Store, cp *checkpoint.Checkpoint, result *Result) (*Result, error) {
	if err := store.Save(cp); err != nil {
		p.log.Warn("Failed to persist checkpoint on cancel: %v", err)
	}
	p.log.Info("Pipeline: cancelled after stage %q", cp.Frontier(job.Plan()))
	job.Cancel()
	p.record(ctx, job)
	result.Status = models.StatusCancelled
	return result, nil
}

func (p *Pipeline) fail(ctx context.Context, job *models.Job, store *checkpoint.Store, cp *checkpoint.Checkpoint, stage models.Stage, err error) error {
	serr := &models.StageError{Stage: stage, Err: err}
	p.log.Error("Pipeline: %v", serr)
	if saveErr := store.Save(cp); saveErr != nil {
		p.log.Warn("Failed to persist checkpoint: %v", saveErr)
	}
	job.Fail(serr)
	p.record(ctx, job)
	return serr
}

func (p *Pipeline) record(ctx context.Context, job *models.Job) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordJob(context.WithoutCancel(ctx), job); err != nil {
		p.log.Warn("Failed to record job history: %v", err)
	}
}

// Discard removes the job's checkpoint and intermediates so the next Run
// starts from the beginning.
func (p *Pipeline) Discard(job *models.Job) error {
	lock, err := checkpoint.AcquireLock(job.CheckpointPath(), job.ID)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := checkpoint.NewStore(job.CheckpointPath()).Delete(); err != nil {
		return err
	}
	if err := os.RemoveAll(job.WorkDir()); err != nil {
		return fmt.Errorf("remove work directory: %w", err)
	}
	p.log.Info("Discarded checkpoint for %s", job.OutputName)
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, job *models.Job, cp *checkpoint.Checkpoint, plan []models.Stage, i int, sink progress.Sink) (string, error) {
	stage := plan[i]
	work := job.WorkDir()
	stem := strings.TrimSuffix(filepath.Base(job.SourcePath), filepath.Ext(job.SourcePath))
	prev := func() string {
		artifact, _ := cp.Completed(plan[i-1])
		return artifact
	}

	switch stage {
	case models.StageExtract:
		if p.providers.Media == nil {
			return "", errors.New("no media tool configured")
		}
		out := filepath.Join(work, stem+extractedAudioTail)
		err := runWithTimeout(ctx, "extract audio", p.cfg.ServiceTimeout(), func(ctx context.Context) error {
			return p.providers.Media.ExtractAudio(ctx, job.SourcePath, out)
		})
		if err != nil {
			return "", err
		}
		sink.Report(100, stage.Label())
		return out, nil

	case models.StageMono:
		if p.providers.Media == nil {
			return "", errors.New("no media tool configured")
		}
		out := filepath.Join(work, stem+monoAudioTail)
		in := prev()
		err := runWithTimeout(ctx, "convert to mono", p.cfg.ServiceTimeout(), func(ctx context.Context) error {
			return p.providers.Media.ToMono(ctx, in, out, p.sampleRate())
		})
		if err != nil {
			return "", err
		}
		sink.Report(100, stage.Label())
		return out, nil

	case models.StageChunk:
		return p.chunk(ctx, prev(), work, sink)

	case models.StageTranscribe:
		return p.transcribe(ctx, prev(), work, sink)

	case models.StageOCR:
		if p.providers.Frames == nil || p.providers.Detector == nil {
			return "", errors.New("no frame source or OCR detector configured")
		}
		st := NewOCRStage(p.providers.Frames, p.providers.Detector, OCROptions{
			FPS:     p.cfg.OCRFPS,
			Workers: p.cfg.OCRWorkers,
			Timeout: p.cfg.ServiceTimeout(),
		}, p.log)
		return st.Run(ctx, job.SourcePath, work, sink)

	case models.StageNormalize:
		if p.providers.Normalizer == nil {
			return "", errors.New("no normalizer configured")
		}
		_, lines, err := SubtitleText(prev())
		if err != nil {
			return "", err
		}
		st := NewNormalizeStage(p.providers.Normalizer, p.cfg.SourceLang, p.cfg.ServiceTimeout(), p.log)
		out, err := st.Run(ctx, lines, sink)
		if err != nil {
			return "", err
		}
		return writeText(filepath.Join(work, normalizedName), out)

	case models.StageTranslate:
		if p.providers.Translator == nil {
			return "", errors.New("no translator configured")
		}
		src, err := sourceText(plan[i-1], prev())
		if err != nil {
			return "", err
		}
		st := NewTranslationStage(p.providers.Translator, p.cfg.SourceLang, p.cfg.ServiceTimeout(), p.log)
		out, err := st.Run(ctx, src, p.cfg.TargetLang, sink)
		if err != nil {
			return "", err
		}
		return writeText(filepath.Join(work, translationName), out)

	case models.StageSynthesize:
		if p.providers.Synthesizer == nil {
			return "", errors.New("no synthesizer configured")
		}
		translated, err := os.ReadFile(prev())
		if err != nil {
			return "", err
		}
		gender, _ := tts.ParseGender(p.cfg.VoiceGender)
		voice := tts.VoiceParams{
			LanguageCode: text.Locale(p.cfg.VoiceLocale),
			Gender:       gender,
			Voice:        p.cfg.OpenAIVoice,
		}
		st := NewSynthesisStage(p.providers.Synthesizer, voice, p.cfg.ServiceTimeout(), p.log)
		return st.Run(ctx, string(translated), filepath.Join(work, synthesizedName), sink)

	case models.StageMerge:
		if p.providers.Media == nil {
			return "", errors.New("no media tool configured")
		}
		return NewMergeStage(p.providers.Media, p.cfg.ServiceTimeout(), p.log).Run(ctx, job.SourcePath, prev(), job.OutputPath(), sink)
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

func (p *Pipeline) chunk(ctx context.Context, mono, work string, sink progress.Sink) (string, error) {
	dir := filepath.Join(work, chunkDirName)
	chunks, err := chunker.New(p.maxChunkBytes(), p.log).Split(ctx, mono, dir, "chunk")
	if err != nil {
		return "", err
	}
	manifestPath := filepath.Join(work, chunker.ManifestName)
	m := chunker.Manifest{Source: mono, MaxBytes: p.maxChunkBytes(), Chunks: chunks}
	if err := chunker.WriteManifest(manifestPath, m); err != nil {
		m.Remove()
		return "", fmt.Errorf("write chunk manifest: %w", err)
	}
	sink.Report(100, fmt.Sprintf("Split into %d chunks", len(chunks)))
	return manifestPath, nil
}

func (p *Pipeline) transcribe(ctx context.Context, manifestPath, work string, sink progress.Sink) (string, error) {
	if p.providers.Recognizer == nil {
		return "", errors.New("no recognizer configured")
	}
	m, err := chunker.ReadManifest(manifestPath)
	if err != nil {
		return "", &models.CheckpointCorruptError{Path: manifestPath, Reason: "unreadable chunk manifest", Err: err}
	}
	if err := m.Verify(); err != nil {
		return "", &models.CheckpointCorruptError{Path: manifestPath, Reason: "chunk files missing", Err: err}
	}

	mode, _ := transcription.ParseMode(p.cfg.TranscriptionMode)
	st := NewTranscriptionStage(p.providers.Recognizer, TranscriptionOptions{
		Mode:          mode,
		Language:      text.Locale(p.cfg.SourceLang),
		SampleRate:    p.sampleRate(),
		Stager:        p.providers.Stager,
		Timeout:       p.cfg.ServiceTimeout(),
		SlowThreshold: p.cfg.SlowChunkThreshold(),
	}, p.log)

	transcript, err := st.Run(ctx, m.Chunks, sink)
	if err != nil {
		return "", err
	}
	return writeText(filepath.Join(work, transcriptName), transcript)
}

func (p *Pipeline) removeChunks(cp *checkpoint.Checkpoint) {
	manifestPath, ok := cp.Completed(models.StageChunk)
	if !ok {
		return
	}
	m, err := chunker.ReadManifest(manifestPath)
	if err != nil {
		return
	}
	m.Remove()
	if len(m.Chunks) > 0 {
		_ = os.Remove(filepath.Dir(m.Chunks[0].Path))
	}
}

// cleanup removes intermediate artifacts that are not on the keep-list, then
// the work dir if nothing is left in it.
func (p *Pipeline) cleanup(job *models.Job, cp *checkpoint.Checkpoint, plan []models.Stage) {
	for _, stage := range plan {
		if stage == models.StageMerge || job.Keeps(stage) {
			continue
		}
		artifact, ok := cp.Completed(stage)
		if !ok {
			continue
		}
		switch stage {
		case models.StageChunk:
			p.removeChunks(cp)
		case models.StageOCR:
			_ = os.Remove(filepath.Join(job.WorkDir(), SubtitlesTextName))
		}
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			p.log.Warn("Failed to remove %s: %v", artifact, err)
		}
	}
	_ = os.Remove(filepath.Join(job.WorkDir(), chunkDirName))
	if err := os.Remove(job.WorkDir()); err == nil {
		p.log.Debug("Removed work directory %s", job.WorkDir())
	}
}

func (p *Pipeline) sampleRate() int {
	if p.cfg.SampleRate > 0 {
		return p.cfg.SampleRate
	}
	return config.AudioSampleRate
}

func (p *Pipeline) maxChunkBytes() int64 {
	if p.cfg.MaxChunkBytes > 0 {
		return p.cfg.MaxChunkBytes
	}
	return config.MaxPayloadBytes
}

// sourceText loads the text a translation starts from, given the stage that
// produced it.
func sourceText(from models.Stage, artifact string) (string, error) {
	if from == models.StageOCR {
		joined, _, err := SubtitleText(artifact)
		return joined, err
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeText(path, content string) (string, error) {
	if err := atomicfile.WriteFile(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

// stageRange is the slice of the job progress bar a stage owns.
func stageRange(job *models.Job, stage models.Stage) (int, int) {
	switch stage {
	case models.StageExtract:
		return config.ProgressExtractStart, config.ProgressExtractEnd
	case models.StageMono:
		return config.ProgressMonoStart, config.ProgressMonoEnd
	case models.StageChunk:
		return config.ProgressChunkStart, config.ProgressChunkEnd
	case models.StageTranscribe:
		return config.ProgressTranscribeStart, config.ProgressTranscribeEnd
	case models.StageOCR:
		if job.Normalize {
			return config.ProgressOCRStart, config.ProgressOCREnd
		}
		return config.ProgressOCRStart, config.ProgressNormalizeEnd
	case models.StageNormalize:
		return config.ProgressNormalizeStart, config.ProgressNormalizeEnd
	case models.StageTranslate:
		return config.ProgressTranslateStart, config.ProgressTranslateEnd
	case models.StageSynthesize:
		return config.ProgressSynthesizeStart, config.ProgressSynthesizeEnd
	default:
		return config.ProgressMergeStart, config.ProgressMergeEnd
	}
}
