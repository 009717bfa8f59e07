package services

import (
	"context"
	"time"
)

// MediaTool is the audio/video capability the speech plan needs.
// media.FFmpeg implements it.
type MediaTool interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
	ToMono(ctx context.Context, inputPath, outputPath string, sampleRate int) error
	Duration(ctx context.Context, mediaPath string) (time.Duration, error)
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// FrameSource samples still frames from a video for OCR.
type FrameSource interface {
	ExtractFrames(ctx context.Context, videoPath, dir string, fps float64) ([]string, error)
}
