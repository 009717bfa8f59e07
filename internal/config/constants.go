// Package config provides centralized constants for the anime-dubber application.
package config

import (
	"runtime"
	"time"
)

// Progress stage boundaries (0-100%) for the speech plan.
const (
	ProgressExtractStart    = 0
	ProgressExtractEnd      = 5
	ProgressMonoStart       = 5
	ProgressMonoEnd         = 10
	ProgressChunkStart      = 10
	ProgressChunkEnd        = 15
	ProgressTranscribeStart = 15
	ProgressTranscribeEnd   = 55
	ProgressTranslateStart  = 55
	ProgressTranslateEnd    = 65
	ProgressSynthesizeStart = 65
	ProgressSynthesizeEnd   = 85
	ProgressMergeStart      = 85
	ProgressMergeEnd        = 100
)

// Progress stage boundaries for the subtitles (OCR) plan.
const (
	ProgressOCRStart       = 0
	ProgressOCREnd         = 45
	ProgressNormalizeStart = 45
	ProgressNormalizeEnd   = 55
)

// Audio chunking
const (
	// MaxPayloadBytes is the inline request ceiling of the speech service.
	MaxPayloadBytes    = 10485760
	ChunkInitial       = time.Second
	ChunkStep          = 100 * time.Millisecond
	OpenAIPayloadBytes = 25 * 1024 * 1024
)

// Service call timing
const (
	ServiceTimeout     = 300 * time.Second
	SlowChunkThreshold = 60 * time.Second
	// StagedThreshold switches "auto" transcription to storage-staged submission.
	StagedThreshold = 10 * time.Minute
	// OperationPollInterval is the long-running recognize polling period.
	OperationPollInterval = 2 * time.Second
)

// Retry settings
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayBase = time.Second
)

// HTTP client settings
const (
	HTTPMaxIdleConns        = 10
	HTTPMaxIdleConnsPerHost = 10
	HTTPIdleConnTimeout     = 90 * time.Second
)

// Audio settings
const (
	AudioSampleRate   = 16000
	WAVFormatPCM      = 1
	DefaultOCRFPS     = 1.0
	OCRThreshold      = 128
	OCRDisplayMinimum = 500 * time.Millisecond
)

// API endpoints
const (
	GoogleSpeechEndpoint    = "https://speech.googleapis.com/v1"
	GoogleTranslateEndpoint = "https://translation.googleapis.com/language/translate/v2"
	GoogleTTSEndpoint       = "https://texttospeech.googleapis.com/v1"
	GoogleVisionEndpoint    = "https://vision.googleapis.com/v1"
	GoogleStorageEndpoint   = "https://storage.googleapis.com"
	OpenAIAPIEndpoint       = "https://api.openai.com/v1"
)

// API models
const (
	OpenAITranslationModel = "gpt-4o-mini"
	OpenAITTSModel         = "tts-1"
	TranslationTemperature = 0.3
)

// Default languages and voice
const (
	DefaultSourceLang   = "ja"
	DefaultTargetLang   = "en"
	DefaultVoiceLocale  = "en-US"
	DefaultVoiceGender  = "neutral"
	DefaultOutputSuffix = "_dubbed"
)

// Exec command timeouts (for os/exec calls)
const (
	ExecTimeoutFFmpeg    = 10 * time.Minute
	ExecTimeoutTesseract = time.Minute
)

// DynamicWorkerCount returns the worker count for a task type based on CPU cores.
func DynamicWorkerCount(taskType string) int {
	cpus := runtime.NumCPU()

	switch taskType {
	case "ocr-local":
		// tesseract is CPU-bound
		return maxInt(cpus/2, 1)
	case "ocr-api":
		return minInt(cpus*2, 8)
	default:
		return cpus
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
