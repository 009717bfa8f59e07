package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"anime-dubber/internal/config"
)

// Transcription submission strategies.
const (
	TranscriptionInline = "inline"
	TranscriptionStaged = "staged"
	TranscriptionAuto   = "auto"
)

// Provider names.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderTesseract = "tesseract"
)

// Config holds application settings. It is loaded once at process start and
// passed explicitly to every component.
type Config struct {
	// Languages and voice
	SourceLang  string `json:"source_lang"`
	TargetLang  string `json:"target_lang"`
	VoiceLocale string `json:"voice_locale"`
	VoiceGender string `json:"voice_gender"` // neutral, male, female

	OutputDirectory string `json:"output_directory"`

	// Tool paths
	FFmpegPath    string `json:"ffmpeg_path"`
	FFprobePath   string `json:"ffprobe_path"`
	TesseractPath string `json:"tesseract_path"`

	// Audio chunking
	SampleRate    int   `json:"sample_rate"`
	MaxChunkBytes int64 `json:"max_chunk_bytes"`

	// Provider selection
	TranscriptionProvider string `json:"transcription_provider"` // google, openai
	TranscriptionMode     string `json:"transcription_mode"`     // inline, staged, auto
	TranslationProvider   string `json:"translation_provider"`   // google, openai
	TTSProvider           string `json:"tts_provider"`           // google, openai
	OCRProvider           string `json:"ocr_provider"`           // tesseract, google

	// OCR path
	OCRLanguage        string  `json:"ocr_language"`
	OCRFPS             float64 `json:"ocr_fps"`
	OCRWorkers         int     `json:"ocr_workers"`
	NormalizeSubtitles bool    `json:"normalize_subtitles"`

	// Google Cloud
	GoogleAPIKey      string `json:"google_api_key"`
	GoogleAccessToken string `json:"-"` // short-lived, environment only
	GCSBucket         string `json:"gcs_bucket"`

	// OpenAI
	OpenAIKey     string `json:"openai_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`
	OpenAIVoice   string `json:"openai_voice"`

	// Timing
	ServiceTimeoutSeconds int `json:"service_timeout_seconds"`
	SlowChunkSeconds      int `json:"slow_chunk_seconds"`

	// Keep lists stage artifacts that survive cleanup after success.
	Keep []string `json:"keep"`

	LogLevel     string `json:"log_level"`
	LogFile      string `json:"log_file"`
	HistoryPath  string `json:"history_path"`
	ProgressAddr string `json:"progress_addr"`
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		SourceLang:  config.DefaultSourceLang,
		TargetLang:  config.DefaultTargetLang,
		VoiceLocale: config.DefaultVoiceLocale,
		VoiceGender: config.DefaultVoiceGender,

		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		TesseractPath: "tesseract",

		SampleRate:    config.AudioSampleRate,
		MaxChunkBytes: config.MaxPayloadBytes,

		TranscriptionProvider: ProviderGoogle,
		TranscriptionMode:     TranscriptionAuto,
		TranslationProvider:   ProviderGoogle,
		TTSProvider:           ProviderGoogle,
		OCRProvider:           ProviderTesseract,

		OCRLanguage: config.DefaultSourceLang,
		OCRFPS:      config.DefaultOCRFPS,

		OpenAIBaseURL: config.OpenAIAPIEndpoint,
		OpenAIModel:   config.OpenAITranslationModel,

		ServiceTimeoutSeconds: int(config.ServiceTimeout / time.Second),
		SlowChunkSeconds:      int(config.SlowChunkThreshold / time.Second),

		LogLevel:    "info",
		HistoryPath: filepath.Join(homeDir, ".config", "anime-dubber", "history.db"),
	}
}

// ConfigPath is the default config file location.
func (c *Config) ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "anime-dubber", "config.json")
}

// LoadConfig reads the default config file, falling back to defaults when it
// does not exist.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom reads the config at path (default location when empty).
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = cfg.ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(c.ConfigPath())
}

// SaveTo writes the config as indented JSON with user-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides credentials and endpoints from the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.GoogleAPIKey, "GOOGLE_API_KEY")
	set(&c.GoogleAccessToken, "GOOGLE_ACCESS_TOKEN")
	set(&c.GCSBucket, "ANIMEDUB_GCS_BUCKET")
	set(&c.OpenAIKey, "OPENAI_API_KEY")
	set(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	set(&c.FFmpegPath, "FFMPEG_PATH")
	set(&c.FFprobePath, "FFPROBE_PATH")
	set(&c.TesseractPath, "TESSERACT_PATH")
	set(&c.LogLevel, "ANIMEDUB_LOG_LEVEL")
}

// Validate checks enumerations and numeric bounds.
func (c *Config) Validate() error {
	switch c.VoiceGender {
	case "neutral", "male", "female":
	default:
		return fmt.Errorf("voice_gender must be neutral, male or female, got %q", c.VoiceGender)
	}
	switch c.TranscriptionMode {
	case TranscriptionInline, TranscriptionStaged, TranscriptionAuto:
	default:
		return fmt.Errorf("transcription_mode must be inline, staged or auto, got %q", c.TranscriptionMode)
	}
	if c.TranscriptionMode == TranscriptionStaged && c.GCSBucket == "" {
		return fmt.Errorf("transcription_mode staged requires gcs_bucket")
	}
	for name, p := range map[string]string{
		"transcription_provider": c.TranscriptionProvider,
		"translation_provider":   c.TranslationProvider,
		"tts_provider":           c.TTSProvider,
	} {
		if p != ProviderGoogle && p != ProviderOpenAI {
			return fmt.Errorf("%s must be google or openai, got %q", name, p)
		}
	}
	if c.OCRProvider != ProviderTesseract && c.OCRProvider != ProviderGoogle {
		return fmt.Errorf("ocr_provider must be tesseract or google, got %q", c.OCRProvider)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if c.MaxChunkBytes <= 0 {
		return fmt.Errorf("max_chunk_bytes must be positive")
	}
	if c.OCRFPS <= 0 {
		return fmt.Errorf("ocr_fps must be positive")
	}
	if _, err := c.KeepStages(); err != nil {
		return err
	}
	return nil
}

// KeepStages parses Keep into stage names.
func (c *Config) KeepStages() ([]Stage, error) {
	stages := make([]Stage, 0, len(c.Keep))
	for _, k := range c.Keep {
		st, ok := ParseStage(k)
		if !ok {
			return nil, fmt.Errorf("keep: unknown stage %q", k)
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// ServiceTimeout is the uniform deadline for every external call.
func (c *Config) ServiceTimeout() time.Duration {
	if c.ServiceTimeoutSeconds <= 0 {
		return config.ServiceTimeout
	}
	return time.Duration(c.ServiceTimeoutSeconds) * time.Second
}

// SlowChunkThreshold is the per-chunk duration above which a warning is logged.
func (c *Config) SlowChunkThreshold() time.Duration {
	if c.SlowChunkSeconds <= 0 {
		return config.SlowChunkThreshold
	}
	return time.Duration(c.SlowChunkSeconds) * time.Second
}
