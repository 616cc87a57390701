// Package imgproc derives WebP thumbnails from raw image bytes.
package imgproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	DefaultBoxWidth  = 300
	DefaultBoxHeight = 300
	DefaultQuality   = 80
)

// Thumbnailer resizes images to fit a bounding box and re-encodes
// them as lossy WebP. The transform is deterministic: identical input
// bytes and settings produce identical output bytes.
type Thumbnailer struct {
	BoxWidth  int
	BoxHeight int
	Quality   float32
}

func NewThumbnailer() Thumbnailer {
	return Thumbnailer{
		BoxWidth:  DefaultBoxWidth,
		BoxHeight: DefaultBoxHeight,
		Quality:   DefaultQuality,
	}
}

// Thumbnail decodes original, scales it down to fit the bounding box
// preserving aspect ratio and encodes the result. Images already
// inside the box are re-encoded without resampling; nothing is ever
// upscaled.
func (t Thumbnailer) Thumbnail(original []byte) ([]byte, error) {
	const op = "Thumbnailer.Thumbnail"

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	img = t.fit(img)

	var buf bytes.Buffer
	err = webp.Encode(&buf, img, &webp.Options{Quality: t.Quality})
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}
	return buf.Bytes(), nil
}

func (t Thumbnailer) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= t.BoxWidth && b.Dy() <= t.BoxHeight {
		return img
	}
	return imaging.Fit(img, t.BoxWidth, t.BoxHeight, imaging.Lanczos)
}
