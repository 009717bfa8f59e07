package chunker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"anime-dubber/internal/logger"
	"anime-dubber/models"
)

var mono16k = Format{SampleRate: 16000, Channels: 1, BitDepth: 16}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/256)
	}
	return b
}

// writeWAV writes a PCM WAV whose header declares declared bytes but which
// carries only payload.
func writeWAV(t *testing.T, path string, f Format, payload []byte, declared int64) {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteHeader(&buf, f, declared); err != nil {
		t.Fatal(err)
	}
	buf.Write(payload)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readPCM(t *testing.T, path string) []byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		t.Fatalf("FwdToPCM(%s): %v", path, err)
	}
	data := make([]byte, dec.PCMSize)
	if _, err := io.ReadFull(dec.PCMChunk, data); err != nil {
		t.Fatalf("read PCM of %s: %v", path, err)
	}
	return data
}

func checkPartition(t *testing.T, spans []Span, total, maxBytes int64) {
	t.Helper()
	var next int64
	for i, s := range spans {
		if s.Offset != next {
			t.Fatalf("span %d starts at %d, want %d", i, s.Offset, next)
		}
		if s.Size <= 0 {
			t.Fatalf("span %d is empty", i)
		}
		if i < len(spans)-1 && SerializedSize(s.Size) > maxBytes {
			t.Errorf("span %d serializes to %d bytes, budget %d", i, SerializedSize(s.Size), maxBytes)
		}
		next += s.Size
	}
	if next != total {
		t.Errorf("spans cover %d bytes, want %d", next, total)
	}
}

func TestSpans_Partition(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		maxBytes int64
		format   Format
	}{
		{"single small chunk", 5000, 1 << 20, mono16k},
		{"many chunks", 1_000_000, 100_000, mono16k},
		{"exact multiple", 320_000, 32_044, mono16k},
		{"budget below one second", 100_000, 10_044, mono16k},
		{"odd payload", 64_001, 20_000, mono16k},
		{"8-bit", 77_777, 9_000, Format{SampleRate: 8000, Channels: 1, BitDepth: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.maxBytes, logger.Discard())
			spans, err := c.Spans(tt.total, tt.format)
			if err != nil {
				t.Fatalf("Spans() error = %v", err)
			}
			checkPartition(t, spans, tt.total, tt.maxBytes)
		})
	}
}

func TestSpans_OneByteOverBudget(t *testing.T) {
	c := New(10_485_760, logger.Discard())

	spans, err := c.Spans(10_485_761, mono16k)
	if err != nil {
		t.Fatalf("Spans() error = %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %v", len(spans), spans)
	}
	if spans[0].Size != 10_483_200 {
		t.Errorf("first span = %d bytes, want 10483200", spans[0].Size)
	}
	if spans[1].Size != 2_561 {
		t.Errorf("second span = %d bytes, want 2561", spans[1].Size)
	}
	checkPartition(t, spans, 10_485_761, 10_485_760)
}

func TestSpans_Deterministic(t *testing.T) {
	c := New(50_000, logger.Discard())

	first, err := c.Spans(987_654, mono16k)
	if err != nil {
		t.Fatal(err)
	}
	for run := 0; run < 3; run++ {
		again, err := c.Spans(987_654, mono16k)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d spans, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: span %d = %v, want %v", run, i, again[i], first[i])
			}
		}
	}
}

func TestSpans_Empty(t *testing.T) {
	spans, err := New(1000, logger.Discard()).Spans(0, mono16k)
	if err != nil {
		t.Fatalf("Spans() error = %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("expected no spans, got %v", spans)
	}
}

func TestSpans_BudgetBelowOneFrame(t *testing.T) {
	_, err := New(HeaderSize+1, logger.Discard()).Spans(1000, mono16k)

	var sizeErr *models.ChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected ChunkSizeError, got %v", err)
	}
	if sizeErr.Index != 0 || sizeErr.Ceiling != HeaderSize+1 {
		t.Errorf("unexpected error fields: %+v", sizeErr)
	}
}

func TestSplit_Reassembles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mono.wav")
	payload := pattern(250_001)
	writeWAV(t, src, mono16k, payload, int64(len(payload)))

	c := New(40_000, logger.Discard())
	chunks, err := c.Split(context.Background(), src, filepath.Join(dir, "chunks"), "chunk")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	var joined []byte
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		info, err := os.Stat(ch.Path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() != ch.ByteSize {
			t.Errorf("chunk %d: file is %d bytes, ByteSize %d", i, info.Size(), ch.ByteSize)
		}
		if i < len(chunks)-1 && ch.ByteSize > c.MaxBytes {
			t.Errorf("chunk %d: %d bytes over budget %d", i, ch.ByteSize, c.MaxBytes)
		}
		joined = append(joined, readPCM(t, ch.Path)...)
	}
	if !bytes.Equal(joined, payload) {
		t.Errorf("reassembled %d bytes do not match the %d-byte source", len(joined), len(payload))
	}
	if want := filepath.Join(dir, "chunks", "chunk_0000.wav"); chunks[0].Path != want {
		t.Errorf("first chunk path = %s, want %s", chunks[0].Path, want)
	}
}

func TestSplit_OneByteOverBudget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mono.wav")
	payload := pattern(10_485_761)
	writeWAV(t, src, mono16k, payload, int64(len(payload)))

	chunks, err := New(10_485_760, logger.Discard()).Split(context.Background(), src, dir, "chunk")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ByteSize > 10_485_760 {
		t.Errorf("first chunk %d bytes exceeds budget", chunks[0].ByteSize)
	}
	joined := append(readPCM(t, chunks[0].Path), readPCM(t, chunks[1].Path)...)
	if !bytes.Equal(joined, payload) {
		t.Error("concatenated chunks differ from the source payload")
	}
}

func TestSplit_EmptyAudio(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mono.wav")
	writeWAV(t, src, mono16k, nil, 0)

	chunks, err := New(1000, logger.Discard()).Split(context.Background(), src, dir, "chunk")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected zero chunks, got %d", len(chunks))
	}
}

func TestSplit_DecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, path string)
	}{
		{"not a wav", func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
		{"stereo", func(t *testing.T, path string) {
			writeWAV(t, path, Format{SampleRate: 16000, Channels: 2, BitDepth: 16}, pattern(4000), 4000)
		}},
		{"truncated payload", func(t *testing.T, path string) {
			writeWAV(t, path, mono16k, pattern(50_000), 100_000)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "mono.wav")
			tt.write(t, src)
			out := filepath.Join(dir, "chunks")

			chunks, err := New(20_000, logger.Discard()).Split(context.Background(), src, out, "chunk")
			var decErr *models.DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if chunks != nil {
				t.Errorf("expected no chunks on failure, got %d", len(chunks))
			}

			entries, _ := os.ReadDir(out)
			if len(entries) != 0 {
				t.Errorf("expected no files left in %s, found %d", out, len(entries))
			}
		})
	}
}

func TestSplit_MissingSource(t *testing.T) {
	_, err := New(1000, logger.Discard()).Split(context.Background(), "/does/not/exist.wav", t.TempDir(), "chunk")
	var decErr *models.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestManifest_RoundTripAndVerify(t *testing.T) {
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "chunk_0000.wav")
	if err := os.WriteFile(chunkPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ManifestName)
	m := Manifest{
		Source:   "/w/mono.wav",
		MaxBytes: 1000,
		Chunks:   []models.AudioChunk{{Index: 0, Path: chunkPath, ByteSize: 45}},
	}

	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got.Source != m.Source || len(got.Chunks) != 1 || got.Chunks[0].Path != chunkPath {
		t.Errorf("ReadManifest() = %+v", got)
	}
	if err := got.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	got.Remove()
	if err := got.Verify(); err == nil {
		t.Error("Verify() should fail after Remove()")
	}
}
