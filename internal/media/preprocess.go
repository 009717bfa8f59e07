package media

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"anime-dubber/internal/atomicfile"
)

// Binarize converts the frame at src to black-and-white: pixels whose luma is
// at or above threshold become white, the rest black. The result is written
// to dst as PNG. OCR engines read hard-subbed text far better this way.
func Binarize(src, dst string, threshold uint8) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode frame %s: %w", src, err)
	}

	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y >= threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	return atomicfile.Write(dst, func(w *os.File) error {
		return png.Encode(w, out)
	})
}
