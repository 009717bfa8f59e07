package chunker

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"anime-dubber/internal/config"
)

// HeaderSize is the length of a canonical RIFF/WAVE PCM header.
const HeaderSize = 44

// SerializedSize is the on-disk size of a chunk holding dataLen PCM bytes.
// RIFF pads odd-length chunks to an even boundary.
func SerializedSize(dataLen int64) int64 {
	return HeaderSize + dataLen + dataLen%2
}

// WriteHeader writes a canonical 44-byte PCM WAV header for dataLen bytes of
// payload. The caller writes the payload, plus one zero pad byte when dataLen
// is odd.
func WriteHeader(w io.Writer, f Format, dataLen int64) error {
	riffLen := SerializedSize(dataLen) - 8
	if dataLen < 0 || riffLen > math.MaxUint32 {
		return fmt.Errorf("PCM payload of %d bytes does not fit a WAV file", dataLen)
	}

	h := make([]byte, HeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(riffLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], config.WAVFormatPCM)
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(f.BytesPerSecond()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.FrameBytes()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(f.BitDepth))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))

	_, err := w.Write(h)
	return err
}
