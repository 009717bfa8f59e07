package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/internal/config"
	"anime-dubber/internal/limiter"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/internal/ocr"
	"anime-dubber/internal/progress"
	"anime-dubber/internal/subtitle"
	"anime-dubber/internal/worker"
	"anime-dubber/models"
)

// OCR output file names inside the work dir.
const (
	SubtitlesTextName = "extracted_subtitles.txt"
	SubtitlesSRTName  = "extracted_subtitles.srt"
)

// OCROptions configures an OCRStage.
type OCROptions struct {
	FPS       float64
	Workers   int
	Threshold uint8
	Timeout   time.Duration
	// CPU bounds concurrent preprocessing plus local detection. Nil means
	// Workers slots.
	CPU *limiter.CPU
}

// OCRStage recovers burned-in subtitles from sampled video frames.
type OCRStage struct {
	frames   FrameSource
	detector ocr.Detector
	opts     OCROptions
	log      *logger.Logger
}

func NewOCRStage(frames FrameSource, detector ocr.Detector, opts OCROptions, log *logger.Logger) *OCRStage {
	if opts.FPS <= 0 {
		opts.FPS = config.DefaultOCRFPS
	}
	if opts.Workers <= 0 {
		opts.Workers = config.DynamicWorkerCount("ocr-local")
	}
	if opts.Threshold == 0 {
		opts.Threshold = config.OCRThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.ServiceTimeout
	}
	if opts.CPU == nil {
		opts.CPU = limiter.NewCPU(opts.Workers)
	}
	return &OCRStage{frames: frames, detector: detector, opts: opts, log: log}
}

// Run extracts frames from videoPath, detects their text and writes the
// plain-text and SRT results into workDir. It returns the SRT path.
func (s *OCRStage) Run(ctx context.Context, videoPath, workDir string, sink progress.Sink) (string, error) {
	if sink == nil {
		sink = progress.Nop{}
	}

	frameDir := filepath.Join(workDir, "frames")
	defer os.RemoveAll(frameDir)

	frames, err := s.frames.ExtractFrames(ctx, videoPath, frameDir, s.opts.FPS)
	if err != nil {
		return "", fmt.Errorf("extract frames: %w", err)
	}
	s.log.Info("Extracted %d frames at %.2f fps", len(frames), s.opts.FPS)
	sink.Report(10, "Extracted frames")

	dets, err := s.Detect(ctx, frames, progress.Range(sink, 10, 95))
	if err != nil {
		return "", err
	}

	subs := ocr.ToSubtitles(dets, s.opts.FPS, config.OCRDisplayMinimum)
	txtPath := filepath.Join(workDir, SubtitlesTextName)
	if err := atomicfile.WriteFile(txtPath, []byte(subs.Text())); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	srtPath := filepath.Join(workDir, SubtitlesSRTName)
	if err := subtitle.WriteFile(srtPath, subs); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}

	s.log.Info("Extracted %d subtitle lines to %s", len(subs), srtPath)
	sink.Report(100, "Subtitles extracted")
	return srtPath, nil
}

// Detect runs the detector over frames concurrently and returns the accepted
// detections in frame order. Blank frames are dropped and a frame repeating
// the previous accepted text is suppressed.
func (s *OCRStage) Detect(ctx context.Context, frames []string, sink progress.Sink) ([]models.SubtitleDetection, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	if len(frames) == 0 {
		sink.Report(100, "Reading subtitles")
		return nil, nil
	}

	raw, err := worker.Process(ctx, frames, s.opts.Workers, s.detectFrame, func(done, total int) {
		sink.Report(progress.Percent(done, total), fmt.Sprintf("Reading frame %d/%d", done, total))
	})
	if err != nil {
		return nil, err
	}

	dets := ocr.Accept(raw, s.opts.FPS)
	s.log.Debug("OCR accepted %d of %d frames", len(dets), len(frames))
	return dets, nil
}

func (s *OCRStage) detectFrame(ctx context.Context, job worker.Job[string]) (string, error) {
	if err := s.opts.CPU.Acquire(ctx); err != nil {
		return "", err
	}
	defer s.opts.CPU.Release()

	frame := job.Data
	bin := strings.TrimSuffix(frame, filepath.Ext(frame)) + "_bin.png"
	if err := media.Binarize(frame, bin, s.opts.Threshold); err != nil {
		return "", fmt.Errorf("preprocess frame %d: %w", job.Index, err)
	}
	defer os.Remove(bin)

	found, err := callWithTimeout(ctx, "detect text "+filepath.Base(frame), s.opts.Timeout, func(ctx context.Context) (string, error) {
		return s.detector.DetectText(ctx, bin)
	})
	if err != nil {
		return "", fmt.Errorf("ocr frame %d: %w", job.Index, err)
	}
	return found, nil
}

// SubtitleText reads the OCR artifact back as newline-joined source text.
func SubtitleText(srtPath string) (string, []string, error) {
	subs, err := subtitle.ReadFile(srtPath)
	if err != nil {
		return "", nil, err
	}
	return subs.Text(), subs.Lines(), nil
}
