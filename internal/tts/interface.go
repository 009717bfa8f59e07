// Package tts declares the text-to-speech capability.
package tts

import (
	"context"
	"fmt"
	"strings"
)

// Gender is the requested voice gender.
type Gender string

const (
	GenderNeutral Gender = "neutral"
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// ParseGender validates a gender from config. Empty means neutral.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GenderNeutral, nil
	case GenderNeutral, GenderMale, GenderFemale:
		return g, nil
	default:
		return "", fmt.Errorf("unknown voice gender %q", s)
	}
}

// VoiceParams selects the synthesized voice. Audio is always LINEAR16 WAV.
type VoiceParams struct {
	// LanguageCode is a BCP-47 locale such as "en-US".
	LanguageCode string
	Gender       Gender
	// Voice optionally names a provider-specific voice.
	Voice string
}

// Synthesizer turns text into WAV audio bytes.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice VoiceParams) ([]byte, error)
}

// ProviderType identifies a TTS provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)
