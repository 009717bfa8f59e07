// Package ocr declares the text-detection capability for video frames and the
// rules for turning per-frame results into subtitle lines.
package ocr

import (
	"context"
	"time"

	"anime-dubber/internal/subtitle"
	"anime-dubber/internal/text"
	"anime-dubber/models"
)

// Detector reads text from one preprocessed frame image.
type Detector interface {
	Name() string
	// DetectText returns the text found in the image, or "" when none.
	DetectText(ctx context.Context, imagePath string) (string, error)
}

// ProviderType identifies an OCR provider.
type ProviderType string

const (
	ProviderTesseract ProviderType = "tesseract"
	ProviderGoogle    ProviderType = "google"
)

// Accept filters raw per-frame text, given in frame order, into detections.
// Blank results are dropped and a result equal to the previously accepted one
// is suppressed. Only the immediate predecessor is compared, so text that
// reappears after a different line is accepted again.
func Accept(raw []string, fps float64) []models.SubtitleDetection {
	var out []models.SubtitleDetection
	for i, r := range raw {
		line := text.CleanOCR(r)
		if line == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Text == line {
			continue
		}
		out = append(out, models.SubtitleDetection{
			FrameIndex: i,
			Timestamp:  FrameTime(i, fps),
			Text:       line,
		})
	}
	return out
}

// FrameTime is the presentation time of frame i sampled at fps.
func FrameTime(i int, fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(i) / fps * float64(time.Second))
}

// ToSubtitles times each detection from its frame until the next detection.
// The last one is shown for one frame interval or minDisplay, whichever is
// longer.
func ToSubtitles(dets []models.SubtitleDetection, fps float64, minDisplay time.Duration) subtitle.Track {
	frame := FrameTime(1, fps)
	subs := make(subtitle.Track, 0, len(dets))
	for i, d := range dets {
		end := d.Timestamp + max(frame, minDisplay)
		if i+1 < len(dets) && dets[i+1].Timestamp > d.Timestamp {
			end = dets[i+1].Timestamp
		}
		subs = append(subs, subtitle.Cue{
			Index: i + 1,
			Start: d.Timestamp,
			End:   end,
			Text:  d.Text,
		})
	}
	return subs
}
