package models

import "time"

// AudioChunk is a contiguous slice of a mono PCM stream stored as its own WAV file.
type AudioChunk struct {
	Index    int           `json:"index"`
	Path     string        `json:"path"`
	ByteSize int64         `json:"byte_size"` // serialized WAV size, header included
	Offset   int64         `json:"offset"`    // PCM payload offset in the source stream
	Duration time.Duration `json:"duration"`
}

// SubtitleDetection is an accepted OCR result for one video frame.
type SubtitleDetection struct {
	FrameIndex int           `json:"frame_index"`
	Timestamp  time.Duration `json:"timestamp"`
	Text       string        `json:"text"`
}
