// Package transcription declares the speech-to-text capability used by the
// transcription stage.
package transcription

import (
	"context"
	"fmt"
	"strings"
)

// Audio is one mono LINEAR16 WAV segment submitted for recognition.
type Audio struct {
	Path       string
	SampleRate int
	// Language is a BCP-47 locale hint such as "ja-JP".
	Language string
}

// Recognizer converts a single audio segment to text.
type Recognizer interface {
	// Name identifies the provider in logs.
	Name() string

	// MaxPayloadBytes is the largest segment the service accepts inline.
	// Zero means no ceiling.
	MaxPayloadBytes() int64

	// Recognize returns the transcript of audio.
	Recognize(ctx context.Context, audio Audio) (string, error)
}

// StagedRecognizer recognizes audio that was uploaded to remote storage,
// for segments too long for inline submission.
type StagedRecognizer interface {
	RecognizeURI(ctx context.Context, uri string, audio Audio) (string, error)
}

// Stager moves audio to and from remote object storage.
type Stager interface {
	// Stage uploads path and returns a URI the recognizer can read.
	Stage(ctx context.Context, path string) (string, error)

	// Unstage deletes a previously staged object.
	Unstage(ctx context.Context, uri string) error
}

// Mode selects how segments reach the recognizer.
type Mode string

const (
	// ModeInline sends audio bytes in the request.
	ModeInline Mode = "inline"
	// ModeStaged uploads through a Stager and recognizes by URI.
	ModeStaged Mode = "staged"
	// ModeAuto uses staged submission for long audio when a stager exists.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode from config or flags. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeInline, ModeStaged, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown transcription mode %q (want inline, staged or auto)", s)
	}
}

// ProviderType identifies a transcription provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)
