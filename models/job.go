package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage names one pipeline step. The string form is the checkpoint key.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageMono       Stage = "mono"
	StageChunk      Stage = "chunk"
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageSynthesize Stage = "synthesize"
	StageMerge      Stage = "merge"
	StageOCR        Stage = "ocr"
	StageNormalize  Stage = "normalize"
)

// Mode selects where the source text comes from.
type Mode string

const (
	ModeSpeech    Mode = "speech"
	ModeSubtitles Mode = "subtitles"
)

// ParseStage validates a stage name from config or flags.
func ParseStage(s string) (Stage, bool) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StageExtract, StageMono, StageChunk, StageTranscribe, StageTranslate,
		StageSynthesize, StageMerge, StageOCR, StageNormalize:
		return st, true
	}
	return "", false
}

// Plan returns the fixed stage order for a mode.
func Plan(mode Mode, normalize bool) []Stage {
	if mode == ModeSubtitles {
		plan := []Stage{StageOCR}
		if normalize {
			plan = append(plan, StageNormalize)
		}
		return append(plan, StageTranslate, StageSynthesize, StageMerge)
	}
	return []Stage{
		StageExtract,
		StageMono,
		StageChunk,
		StageTranscribe,
		StageTranslate,
		StageSynthesize,
		StageMerge,
	}
}

type JobStatus string

const (
	StatusNotStarted        JobStatus = "not_started"
	StatusAudioExtracted    JobStatus = "audio_extracted"
	StatusMonoConverted     JobStatus = "mono_converted"
	StatusChunked           JobStatus = "chunked"
	StatusTranscribed       JobStatus = "transcribed"
	StatusSubtitlesDetected JobStatus = "subtitles_detected"
	StatusNormalized        JobStatus = "normalized"
	StatusTranslated        JobStatus = "translated"
	StatusSynthesized       JobStatus = "synthesized"
	StatusMerged            JobStatus = "merged"
	StatusFailed            JobStatus = "failed"
	StatusCancelled         JobStatus = "cancelled"
)

// Done returns the state a job is in once the stage has completed.
func (s Stage) Done() JobStatus {
	switch s {
	case StageExtract:
		return StatusAudioExtracted
	case StageMono:
		return StatusMonoConverted
	case StageChunk:
		return StatusChunked
	case StageTranscribe:
		return StatusTranscribed
	case StageOCR:
		return StatusSubtitlesDetected
	case StageNormalize:
		return StatusNormalized
	case StageTranslate:
		return StatusTranslated
	case StageSynthesize:
		return StatusSynthesized
	case StageMerge:
		return StatusMerged
	default:
		return StatusNotStarted
	}
}

// Label is the human-readable progress label for a stage.
func (s Stage) Label() string {
	switch s {
	case StageExtract:
		return "Extracting audio"
	case StageMono:
		return "Converting to mono"
	case StageChunk:
		return "Chunking audio"
	case StageTranscribe:
		return "Transcribing"
	case StageOCR:
		return "Reading subtitles"
	case StageNormalize:
		return "Normalizing text"
	case StageTranslate:
		return "Translating"
	case StageSynthesize:
		return "Generating speech"
	case StageMerge:
		return "Merging video"
	default:
		return string(s)
	}
}

// Job is one end-to-end conversion request.
type Job struct {
	ID         string
	SourcePath string
	OutputDir  string
	OutputName string
	Mode       Mode
	Normalize  bool
	Keep       []Stage

	Status       JobStatus
	CurrentStage Stage
	Progress     int // 0-100
	Artifacts    map[Stage]string
	Error        error
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// NewJob creates a job for sourcePath. An empty outputDir means the source's
// directory; outputName is extension-normalized.
func NewJob(sourcePath, outputDir, outputName string) *Job {
	if outputDir == "" {
		outputDir = filepath.Dir(sourcePath)
	}
	return &Job{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		OutputDir:  outputDir,
		OutputName: NormalizeOutputName(outputName, sourcePath),
		Mode:       ModeSpeech,
		Status:     StatusNotStarted,
		Artifacts:  make(map[Stage]string),
		CreatedAt:  time.Now(),
	}
}

// OutputPath is where the final merged video is written.
func (j *Job) OutputPath() string {
	return filepath.Join(j.OutputDir, j.OutputName)
}

// CheckpointPath is the fixed location of the job's checkpoint.
func (j *Job) CheckpointPath() string {
	return filepath.Join(j.OutputDir, "."+j.OutputName+".checkpoint.json")
}

// WorkDir holds intermediate artifacts.
func (j *Job) WorkDir() string {
	stem := strings.TrimSuffix(j.OutputName, filepath.Ext(j.OutputName))
	return filepath.Join(j.OutputDir, "."+stem+".work")
}

// Plan returns the job's stage order.
func (j *Job) Plan() []Stage {
	return Plan(j.Mode, j.Normalize)
}

// Keeps reports whether the artifact of stage survives cleanup.
func (j *Job) Keeps(stage Stage) bool {
	for _, k := range j.Keep {
		if k == stage {
			return true
		}
	}
	return false
}

func (j *Job) SetStatus(status JobStatus, stage Stage, progress int) {
	j.Status = status
	j.CurrentStage = stage
	j.Progress = progress
}

// Advance records a completed stage and its artifact.
func (j *Job) Advance(stage Stage, artifact string) {
	if j.Artifacts == nil {
		j.Artifacts = make(map[Stage]string)
	}
	j.Artifacts[stage] = artifact
	j.Status = stage.Done()
	j.CurrentStage = stage
}

func (j *Job) Complete(outputPath string) {
	j.Advance(StageMerge, outputPath)
	j.Progress = 100
	now := time.Now()
	j.CompletedAt = &now
}

func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.Error = err
}

func (j *Job) Cancel() {
	j.Status = StatusCancelled
}

func (j *Job) StatusText() string {
	switch j.Status {
	case StatusNotStarted:
		return "Ready to dub"
	case StatusMerged:
		return "Completed!"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		if j.Error != nil {
			return "Failed: " + j.Error.Error()
		}
		return "Failed"
	default:
		if j.CurrentStage != "" {
			return j.CurrentStage.Label() + " done"
		}
		return string(j.Status)
	}
}

// StatusIcon returns an emoji icon representing the job status
func (j *Job) StatusIcon() string {
	switch j.Status {
	case StatusNotStarted:
		return "⏳"
	case StatusMerged:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusCancelled:
		return "⏹"
	default:
		return "🔄"
	}
}
