// Package chunker splits mono PCM audio into WAV segments that each fit under a
// serialized byte budget.
//
// Chunk boundaries come from probing growth: start at one second, grow in
// fixed steps while the next step still fits, emit, repeat. Boundaries depend
// only on the payload length, the format and the budget, so identical input
// always yields identical chunks.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/internal/config"
	"anime-dubber/internal/logger"
	"anime-dubber/models"
)

// Format describes interleaved PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameBytes is the size of one sample across all channels.
func (f Format) FrameBytes() int64 {
	return int64(f.Channels) * int64((f.BitDepth+7)/8)
}

// BytesPerSecond is the PCM data rate.
func (f Format) BytesPerSecond() int64 {
	return int64(f.SampleRate) * f.FrameBytes()
}

func (f Format) bytesFor(d time.Duration) int64 {
	frames := int64(f.SampleRate) * int64(d) / int64(time.Second)
	if frames < 1 {
		frames = 1
	}
	return frames * f.FrameBytes()
}

// Span is one chunk's slice of the PCM payload.
type Span struct {
	Offset int64
	Size   int64
}

// Chunker splits audio under MaxBytes, where MaxBytes counts the WAV header.
type Chunker struct {
	MaxBytes int64
	Initial  time.Duration
	Step     time.Duration

	log *logger.Logger
}

// New returns a chunker with the standard one-second start and 100ms step.
func New(maxBytes int64, log *logger.Logger) *Chunker {
	return &Chunker{
		MaxBytes: maxBytes,
		Initial:  config.ChunkInitial,
		Step:     config.ChunkStep,
		log:      log,
	}
}

// Spans partitions a payload of total bytes. The spans are contiguous, cover
// the payload exactly and each serializes to at most MaxBytes, except that a
// trailing partial frame is folded into the final span.
func (c *Chunker) Spans(total int64, f Format) ([]Span, error) {
	frame := f.FrameBytes()
	if frame <= 0 || f.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %+v", f)
	}

	budget := c.MaxBytes - HeaderSize
	initial := f.bytesFor(c.Initial)
	step := f.bytesFor(c.Step)

	var spans []Span
	for offset := int64(0); offset < total; {
		remaining := total - offset
		size := min(initial, remaining)

		if SerializedSize(size) > c.MaxBytes {
			// Back off to the largest whole step, then the largest whole frame.
			shrunk := (budget / step) * step
			if shrunk <= 0 {
				shrunk = (budget / frame) * frame
			}
			if shrunk > 0 && SerializedSize(shrunk) > c.MaxBytes {
				shrunk -= frame
			}
			if shrunk <= 0 {
				return nil, &models.ChunkSizeError{
					Index:   len(spans),
					Size:    size + HeaderSize,
					Ceiling: c.MaxBytes,
				}
			}
			size = shrunk
		} else {
			for size < remaining {
				next := min(size+step, remaining)
				if SerializedSize(next) > c.MaxBytes {
					break
				}
				size = next
			}
		}

		if rest := remaining - size; rest > 0 && rest < frame {
			size = remaining
		}

		spans = append(spans, Span{Offset: offset, Size: size})
		offset += size
	}
	return spans, nil
}

// Split decodes the mono WAV at src and writes one WAV file per span into
// dir, named <prefix>_NNNN.wav. Every file is written atomically; on failure
// the files already written by this call are removed.
func (c *Chunker) Split(ctx context.Context, src, dir, prefix string) ([]models.AudioChunk, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, &models.DecodeError{Path: src, Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, &models.DecodeError{Path: src, Err: err}
	}
	if dec.NumChans < 1 || dec.BitDepth < 8 || dec.SampleRate == 0 {
		return nil, &models.DecodeError{Path: src, Err: errors.New("not a valid WAV file")}
	}
	if dec.WavAudioFormat != config.WAVFormatPCM {
		return nil, &models.DecodeError{Path: src, Err: fmt.Errorf("unsupported WAV format %d, want PCM", dec.WavAudioFormat)}
	}
	if dec.NumChans != 1 {
		return nil, &models.DecodeError{Path: src, Err: fmt.Errorf("expected mono audio, got %d channels", dec.NumChans)}
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, &models.DecodeError{Path: src, Err: err}
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	spans, err := c.Spans(int64(dec.PCMSize), format)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	chunks := make([]models.AudioChunk, 0, len(spans))
	fail := func(err error) ([]models.AudioChunk, error) {
		for _, ch := range chunks {
			_ = os.Remove(ch.Path)
		}
		return nil, err
	}

	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.wav", prefix, i))
		err := atomicfile.Write(path, func(w *os.File) error {
			if err := WriteHeader(w, format, span.Size); err != nil {
				return err
			}
			n, err := io.CopyN(w, dec.PCMChunk, span.Size)
			if err != nil {
				return fmt.Errorf("PCM data ended after %d of %d bytes: %w", n, span.Size, err)
			}
			if span.Size%2 == 1 {
				_, err = w.Write([]byte{0})
			}
			return err
		})
		if err != nil {
			return fail(&models.DecodeError{Path: src, Err: err})
		}

		chunks = append(chunks, models.AudioChunk{
			Index:    i,
			Path:     path,
			ByteSize: SerializedSize(span.Size),
			Offset:   span.Offset,
			Duration: time.Duration(span.Size * int64(time.Second) / format.BytesPerSecond()),
		})
		c.log.Debug("Chunk %d: %d bytes at offset %d (%s)", i, SerializedSize(span.Size), span.Offset, path)
	}

	c.log.Info("Split %s into %d chunks (budget %d bytes)", filepath.Base(src), len(chunks), c.MaxBytes)
	return chunks, nil
}
