package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/internal/config"
)

// WAVInfo summarizes a PCM WAV file.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// Duration is the playback length implied by the frame count.
func (i WAVInfo) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(i.Frames) * int64(time.Second) / int64(i.SampleRate))
}

func decodeWAV(path string) (*audio.IntBuffer, WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WAVInfo{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, WAVInfo{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, WAVInfo{}, fmt.Errorf("decode %s: missing format chunk", path)
	}

	info := WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Frames:     len(buf.Data) / int(dec.NumChans),
	}
	return buf, info, nil
}

// ReadWAVInfo decodes path and reports its format and length.
func ReadWAVInfo(path string) (WAVInfo, error) {
	_, info, err := decodeWAV(path)
	return info, err
}

// ReconcileWAV makes the audio at src exactly target long, measured in whole
// frames at the file's own rate. Longer audio is truncated; shorter audio is
// padded with trailing silence. When the length already matches, src is
// returned untouched; otherwise the result is written atomically to dst and
// dst is returned.
func ReconcileWAV(src, dst string, target time.Duration) (string, error) {
	if target <= 0 {
		return "", fmt.Errorf("target duration must be positive, got %s", target)
	}

	buf, info, err := decodeWAV(src)
	if err != nil {
		return "", err
	}

	want := int(math.Round(target.Seconds() * float64(info.SampleRate)))
	if want == info.Frames {
		return src, nil
	}

	samples := want * info.Channels
	if samples < len(buf.Data) {
		buf.Data = buf.Data[:samples]
	} else {
		buf.Data = append(buf.Data, make([]int, samples-len(buf.Data))...)
	}

	err = atomicfile.Write(dst, func(f *os.File) error {
		enc := wav.NewEncoder(f, info.SampleRate, info.BitDepth, info.Channels, config.WAVFormatPCM)
		if err := enc.Write(buf); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return "", fmt.Errorf("write reconciled audio: %w", err)
	}
	return dst, nil
}

// FixStreamedWAV repairs the size fields of a WAV produced by a streaming
// encoder, which writes placeholder lengths because the total is unknown up
// front. The data chunk is taken to run to the end of the buffer. A file whose
// sizes are already consistent is returned unchanged.
func FixStreamedWAV(data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "data" {
			remaining := int64(len(data) - body)
			riff := uint32(len(data) - 8)
			if size <= remaining && binary.LittleEndian.Uint32(data[4:8]) == riff {
				return data, nil
			}
			out := make([]byte, len(data))
			copy(out, data)
			binary.LittleEndian.PutUint32(out[4:8], riff)
			binary.LittleEndian.PutUint32(out[off+4:off+8], uint32(remaining))
			return out, nil
		}
		if size > int64(len(data)-body) {
			break
		}
		off = body + int(size) + int(size%2)
	}
	return nil, errors.New("WAV stream has no data chunk")
}
