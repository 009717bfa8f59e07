package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"anime-dubber/internal/transcription"
	"anime-dubber/internal/tts"
)

const testRate = 8000

// writeWAV writes d of 16-bit mono audio at testRate.
func writeWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, wavBytes(t, d), 0o644); err != nil {
		t.Fatal(err)
	}
}

func wavBytes(t *testing.T, d time.Duration) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]int, int(d.Seconds()*testRate))
	for i := range data {
		data[i] = (i%80 - 40) * 200
	}
	enc := wav.NewEncoder(f, testRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: testRate, NumChannels: 1},
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// fakeMedia stands in for ffmpeg. ToMono writes monoLen of audio regardless
// of its input; Mux copies the audio track to the output. The call named by
// hang blocks until its context ends.
type fakeMedia struct {
	t             *testing.T
	monoLen       time.Duration
	videoDuration time.Duration
	hang          string

	mu    sync.Mutex
	calls []string
	muxed string
}

func (m *fakeMedia) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *fakeMedia) stall(ctx context.Context, call string) error {
	if m.hang != call {
		return nil
	}
	<-ctx.Done()
	return errors.New("signal: killed")
}

func (m *fakeMedia) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *fakeMedia) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	m.record("extract")
	if err := m.stall(ctx, "extract"); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("stereo audio"), 0o644)
}

func (m *fakeMedia) ToMono(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	m.record("mono")
	if _, err := os.Stat(inputPath); err != nil {
		return err
	}
	writeWAV(m.t, outputPath, m.monoLen)
	return nil
}

func (m *fakeMedia) Duration(ctx context.Context, mediaPath string) (time.Duration, error) {
	m.record("duration")
	return m.videoDuration, nil
}

func (m *fakeMedia) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	m.record("mux")
	if err := m.stall(ctx, "mux"); err != nil {
		return err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.muxed = audioPath
	m.mu.Unlock()
	return os.WriteFile(outputPath, data, 0o644)
}

// fakeRecognizer returns "<base name>" for each chunk it is given.
type fakeRecognizer struct {
	ceiling int64
	delay   time.Duration
	failAt  int // 1-based call number that fails; 0 never

	mu    sync.Mutex
	calls []string
	uris  []string
}

func (r *fakeRecognizer) Name() string           { return "fake" }
func (r *fakeRecognizer) MaxPayloadBytes() int64 { return r.ceiling }

func (r *fakeRecognizer) Recognize(ctx context.Context, a transcription.Audio) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, a.Path)
	n := len(r.calls)
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.failAt == n {
		return "", errors.New("service unavailable")
	}
	return strings.TrimSuffix(filepath.Base(a.Path), ".wav"), nil
}

func (r *fakeRecognizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeStagedRecognizer struct {
	fakeRecognizer
}

func (r *fakeStagedRecognizer) RecognizeURI(ctx context.Context, uri string, a transcription.Audio) (string, error) {
	r.mu.Lock()
	r.uris = append(r.uris, uri)
	r.mu.Unlock()
	return "staged:" + filepath.Base(uri), nil
}

type fakeStager struct {
	mu       sync.Mutex
	staged   []string
	unstaged []string
}

func (s *fakeStager) Stage(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri := "gs://bucket/" + filepath.Base(path)
	s.staged = append(s.staged, uri)
	return uri, nil
}

func (s *fakeStager) Unstage(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unstaged = append(s.unstaged, uri)
	return nil
}

type fakeTranslator struct {
	err   error
	calls int
	got   []string
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls++
	f.got = append(f.got, text)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

type fakeNormalizer struct {
	got []string
}

func (f *fakeNormalizer) Combine(ctx context.Context, lines []string, lang string) (string, error) {
	f.got = append([]string(nil), lines...)
	return strings.Join(lines, " "), nil
}

type fakeSynth struct {
	audio []byte
	err   error
	texts []string
	voice tts.VoiceParams
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(ctx context.Context, text string, voice tts.VoiceParams) ([]byte, error) {
	f.texts = append(f.texts, text)
	f.voice = voice
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// recordingSink keeps every report in order.
type recordingSink struct {
	mu      sync.Mutex
	percent []int
	labels  []string
}

func (s *recordingSink) Report(percent int, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percent = append(s.percent, percent)
	s.labels = append(s.labels, label)
}

func (s *recordingSink) nonDecreasing() bool {
	for i := 1; i < len(s.percent); i++ {
		if s.percent[i] < s.percent[i-1] {
			return false
		}
	}
	return true
}

func (s *recordingSink) last() int {
	if len(s.percent) == 0 {
		return -1
	}
	return s.percent[len(s.percent)-1]
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
