package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrJobLocked is returned when another process owns the job's checkpoint.
var ErrJobLocked = errors.New("job is locked by another process")

// StageError is the job-level error: the failing stage plus the cause chain.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DecodeError reports audio that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ChunkSizeError reports a chunk that cannot be reduced under a payload ceiling.
type ChunkSizeError struct {
	Index   int
	Size    int64
	Ceiling int64
}

func (e *ChunkSizeError) Error() string {
	return fmt.Sprintf("chunk %d: %d bytes cannot be reduced under ceiling of %d bytes", e.Index, e.Size, e.Ceiling)
}

// TranscriptionError identifies the chunk whose recognition failed.
type TranscriptionError struct {
	Index int
	Path  string
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe chunk %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// TranslationError wraps a failed translation call.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// SynthesisError wraps a failed speech synthesis or its output write.
type SynthesisError struct {
	Path string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize %s: %v", e.Path, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// MergeError wraps a failed reconciliation or mux.
type MergeError struct {
	Path string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %v", e.Path, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// TimeoutError reports an external call that exceeded its deadline.
// It is distinct from the service's own error responses.
type TimeoutError struct {
	Operation string
	After     time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// CheckpointCorruptError means the checkpoint exists but cannot be trusted.
// Resume is impossible; the checkpoint has to be discarded.
type CheckpointCorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CheckpointCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkpoint %s is corrupt: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("checkpoint %s is corrupt: %s", e.Path, e.Reason)
}

func (e *CheckpointCorruptError) Unwrap() error { return e.Err }

// FailedStage returns the stage carried by err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
