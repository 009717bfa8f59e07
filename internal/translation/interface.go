// Package translation declares the text translation and normalization
// capabilities.
package translation

import "context"

// Translator translates a complete text in one call.
type Translator interface {
	Name() string

	// Translate returns text rendered in targetLang. sourceLang may be
	// empty to let the service detect it.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Normalizer turns fragmentary OCR lines into coherent sentences in the same
// language, without translating them.
type Normalizer interface {
	Combine(ctx context.Context, lines []string, lang string) (string, error)
}

// ProviderType identifies a translation provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)
