// Package media wraps the ffmpeg and ffprobe executables and the local WAV
// and image work done around them.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
)

// CommandResult is the captured output of one process run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution so tools can be faked in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// FFmpeg runs ffmpeg/ffprobe for extraction, probing, frame grabs and muxing.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	durations   sync.Map // path -> time.Duration
	timeout     time.Duration
	log         *logger.Logger
}

// NewFFmpeg creates an adapter. Empty paths are auto-detected.
func NewFFmpeg(ffmpegPath, ffprobePath string, log *logger.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = detectBinary("ffmpeg")
	}
	if ffprobePath == "" {
		ffprobePath = strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      &ExecRunner{},
		timeout:     config.ExecTimeoutFFmpeg,
		log:         log,
	}
}

func detectBinary(name string) string {
	for _, dir := range []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return name
}

// Path returns the ffmpeg executable path.
func (m *FFmpeg) Path() string {
	return m.ffmpegPath
}

// CheckInstalled verifies both executables respond.
func (m *FFmpeg) CheckInstalled(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, m.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", m.ffmpegPath, err)
	}
	if _, err := m.runner.Run(ctx, m.ffprobePath, "-version"); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", m.ffprobePath, err)
	}
	return nil
}

// ExtractAudio writes the source's audio track as 16-bit PCM WAV, keeping its
// original channel layout and rate.
func (m *FFmpeg) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	m.log.Info("FFmpeg: extracting audio → %s", filepath.Base(outputPath))
	return m.run(ctx, "audio extraction", outputPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-y", outputPath,
	)
}

// ToMono downmixes to one channel at sampleRate.
func (m *FFmpeg) ToMono(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	m.log.Info("FFmpeg: converting to mono %d Hz → %s", sampleRate, filepath.Base(outputPath))
	return m.run(ctx, "mono conversion", outputPath,
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-acodec", "pcm_s16le",
		"-y", outputPath,
	)
}

// Duration returns the container duration reported by ffprobe. Results are
// cached per path.
func (m *FFmpeg) Duration(ctx context.Context, mediaPath string) (time.Duration, error) {
	if d, ok := m.durations.Load(mediaPath); ok {
		return d.(time.Duration), nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.runner.Run(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s failed: %w%s", filepath.Base(mediaPath), err, stderrTail(res.Stderr))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	d := time.Duration(seconds * float64(time.Second))
	m.durations.Store(mediaPath, d)
	return d, nil
}

// Mux replaces the video's audio with audioPath. The video stream is copied
// and the audio encoded to AAC. Output goes to a temp file in the destination
// directory and is renamed into place only after ffmpeg succeeds.
func (m *FFmpeg) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	m.log.Info("FFmpeg: muxing video + audio → %s", filepath.Base(outputPath))

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".mux-*"+filepath.Ext(outputPath))
	if err != nil {
		return fmt.Errorf("create mux temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	err = m.run(ctx, "muxing", tmpPath,
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-y", tmpPath,
	)
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move muxed output into place: %w", err)
	}
	m.durations.Delete(outputPath)
	return nil
}

// ExtractFrames samples the video at fps frames per second into dir as
// frame_NNNNNN.png and returns the frame paths in order.
func (m *FFmpeg) ExtractFrames(ctx context.Context, videoPath, dir string, fps float64) ([]string, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %v", fps)
	}
	m.log.Info("FFmpeg: sampling frames at %.2f fps → %s", fps, dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	pattern := filepath.Join(dir, "frame_%06d.png")
	if err := m.run(ctx, "frame extraction", pattern,
		"-i", videoPath,
		"-vf", "fps="+strconv.FormatFloat(fps, 'f', -1, 64),
		"-y", pattern,
	); err != nil {
		return nil, err
	}

	frames, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	return frames, nil
}

func (m *FFmpeg) run(ctx context.Context, operation, outputPath string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	started := time.Now()
	res, err := m.runner.Run(ctx, m.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w%s", operation, err, stderrTail(res.Stderr))
	}
	m.log.Debug("FFmpeg: %s took %s", operation, time.Since(started).Round(time.Millisecond))
	return nil
}

// stderrTail keeps the last few lines of ffmpeg's chatter for error messages.
func stderrTail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return "\nOutput: " + strings.Join(lines, "\n")
}
