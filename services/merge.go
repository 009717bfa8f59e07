package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/internal/progress"
	"anime-dubber/models"
)

// MergeStage fits the dubbed track to the video's duration and remuxes it.
type MergeStage struct {
	media   MediaTool
	timeout time.Duration
	log     *logger.Logger
}

// NewMergeStage bounds the probe and the mux by timeout each.
func NewMergeStage(m MediaTool, timeout time.Duration, log *logger.Logger) *MergeStage {
	return &MergeStage{media: m, timeout: timeout, log: log}
}

// Run writes outPath: the video stream of videoPath with audioPath as its
// only audio track, padded or truncated to the video's duration. The input
// video is never modified.
func (s *MergeStage) Run(ctx context.Context, videoPath, audioPath, outPath string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	if samePath(videoPath, outPath) {
		return "", &models.MergeError{Path: outPath, Err: errors.New("output path is the input video")}
	}

	videoDuration, err := callWithTimeout(ctx, "probe duration", s.timeout, func(ctx context.Context) (time.Duration, error) {
		return s.media.Duration(ctx, videoPath)
	})
	if err != nil {
		return "", &models.MergeError{Path: outPath, Err: err}
	}
	sink.Report(20, "Probed video")

	fitted := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "_fitted.wav"
	track, err := media.ReconcileWAV(audioPath, fitted, videoDuration)
	if err != nil {
		return "", &models.MergeError{Path: outPath, Err: err}
	}
	if track != audioPath {
		defer os.Remove(track)
	}
	s.log.Debug("Audio fitted to %s: %s", videoDuration, track)
	sink.Report(40, "Fitted audio")

	err = runWithTimeout(ctx, "mux", s.timeout, func(ctx context.Context) error {
		return s.media.Mux(ctx, videoPath, track, outPath)
	})
	if err != nil {
		return "", &models.MergeError{Path: outPath, Err: err}
	}

	s.log.Info("Final video saved to %s", outPath)
	sink.Report(100, "Merged")
	return outPath, nil
}

func samePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if aa == bb {
		return true
	}
	ia, errA := os.Stat(aa)
	ib, errB := os.Stat(bb)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}
