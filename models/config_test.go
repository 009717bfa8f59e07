package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SourceLang", config.SourceLang, "ja"},
		{"TargetLang", config.TargetLang, "en"},
		{"VoiceLocale", config.VoiceLocale, "en-US"},
		{"VoiceGender", config.VoiceGender, "neutral"},
		{"TranscriptionMode", config.TranscriptionMode, TranscriptionAuto},
		{"TranscriptionProvider", config.TranscriptionProvider, ProviderGoogle},
		{"OCRProvider", config.OCRProvider, ProviderTesseract},
		{"FFmpegPath", config.FFmpegPath, "ffmpeg"},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
		}
	}

	if config.MaxChunkBytes != 10485760 {
		t.Errorf("MaxChunkBytes = %d, want 10485760", config.MaxChunkBytes)
	}
	if config.ServiceTimeout() != 300*time.Second {
		t.Errorf("ServiceTimeout() = %v, want 300s", config.ServiceTimeout())
	}
	if config.SlowChunkThreshold() != 60*time.Second {
		t.Errorf("SlowChunkThreshold() = %v, want 60s", config.SlowChunkThreshold())
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	config := DefaultConfig()
	homeDir, _ := os.UserHomeDir()

	expected := filepath.Join(homeDir, ".config", "anime-dubber", "config.json")
	if got := config.ConfigPath(); got != expected {
		t.Errorf("ConfigPath() = %q, want %q", got, expected)
	}
}

func TestLoadConfigFrom_DefaultWhenMissing(t *testing.T) {
	config, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if config.SourceLang != "ja" {
		t.Errorf("expected default SourceLang 'ja', got %q", config.SourceLang)
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	config := DefaultConfig()
	config.TargetLang = "de"
	config.VoiceGender = "female"
	config.Keep = []string{"transcribe", "translate"}
	config.GoogleAccessToken = "secret-token"

	if err := config.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if loaded.TargetLang != "de" || loaded.VoiceGender != "female" {
		t.Errorf("loaded = %q/%q, want de/female", loaded.TargetLang, loaded.VoiceGender)
	}
	if len(loaded.Keep) != 2 {
		t.Errorf("Keep = %v, want 2 entries", loaded.Keep)
	}
	if loaded.GoogleAccessToken != "" {
		t.Errorf("access token must not be persisted, got %q", loaded.GoogleAccessToken)
	}
}

func TestLoadConfigFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("LoadConfigFrom() should fail on invalid JSON")
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"GOOGLE_API_KEY":      "g-key",
		"OPENAI_API_KEY":      "o-key",
		"ANIMEDUB_GCS_BUCKET": "bucket",
		"FFMPEG_PATH":         "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	config := DefaultConfig()
	config.ApplyEnv(lookup)

	if config.GoogleAPIKey != "g-key" {
		t.Errorf("GoogleAPIKey = %q, want g-key", config.GoogleAPIKey)
	}
	if config.OpenAIKey != "o-key" {
		t.Errorf("OpenAIKey = %q, want o-key", config.OpenAIKey)
	}
	if config.GCSBucket != "bucket" {
		t.Errorf("GCSBucket = %q, want bucket", config.GCSBucket)
	}
	if config.FFmpegPath != "ffmpeg" {
		t.Errorf("empty env value must not override, FFmpegPath = %q", config.FFmpegPath)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad gender", func(c *Config) { c.VoiceGender = "robot" }},
		{"bad mode", func(c *Config) { c.TranscriptionMode = "batch" }},
		{"staged without bucket", func(c *Config) { c.TranscriptionMode = TranscriptionStaged }},
		{"bad provider", func(c *Config) { c.TTSProvider = "piper" }},
		{"bad ocr provider", func(c *Config) { c.OCRProvider = "easyocr" }},
		{"zero budget", func(c *Config) { c.MaxChunkBytes = 0 }},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"unknown keep", func(c *Config) { c.Keep = []string{"everything"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
