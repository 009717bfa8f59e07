package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNormalizeOutputName(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"movie.mp4", "/in/x.mp4", "movie.mp4"},
		{"movie.mkv", "/in/x.mp4", "movie.mkv"},
		{"movie.avi", "/in/x.mp4", "movie.avi"},
		{"movie.MKV", "/in/x.mp4", "movie.MKV"},
		{"movie", "/in/x.mp4", "movie.mp4"},
		{"movie.mov", "/in/x.mp4", "movie.mov.mp4"},
		{"  ", "/in/ep 3.webm", "ep 3_dubbed.mp4"},
		{"../../etc/out.mp4", "/in/x.mp4", "out.mp4"},
	}
	for _, tt := range tests {
		if got := NormalizeOutputName(tt.name, tt.source); got != tt.want {
			t.Errorf("NormalizeOutputName(%q, %q) = %q, want %q", tt.name, tt.source, got, tt.want)
		}
	}
}

func TestStageError_Chain(t *testing.T) {
	cause := &TimeoutError{Operation: "recognize", After: 300 * time.Second, Err: context.DeadlineExceeded}
	err := error(&StageError{
		Stage: StageTranscribe,
		Err:   &TranscriptionError{Index: 3, Path: "/w/chunk_0003.wav", Err: cause},
	})

	stage, ok := FailedStage(err)
	if !ok || stage != StageTranscribe {
		t.Errorf("FailedStage() = %q, %v", stage, ok)
	}

	var te *TranscriptionError
	if !errors.As(err, &te) || te.Index != 3 {
		t.Fatalf("expected TranscriptionError with index 3, got %v", err)
	}
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Error("timeout should be reachable through the chain")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("deadline should be reachable through the chain")
	}

	want := "stage transcribe failed: transcribe chunk 3 (/w/chunk_0003.wav): recognize timed out after 5m0s"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFailedStage_PlainError(t *testing.T) {
	if _, ok := FailedStage(fmt.Errorf("wrapped: %w", errors.New("x"))); ok {
		t.Error("plain errors carry no stage")
	}
}
