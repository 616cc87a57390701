package imgproc_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/shopworks/e-shop/pkg/imgproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeBounds(t *testing.T, data []byte) (width, height int) {
	t.Helper()
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestThumbnail(t *testing.T) {
	thumbnailer := imgproc.NewThumbnailer()

	t.Run("LandscapeFitsBox", func(t *testing.T) {
		original := encodePNG(t, 1200, 800)

		out, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)

		w, h := decodeBounds(t, out)
		assert.Equal(t, 300, w)
		assert.Equal(t, 200, h)
	})

	t.Run("PortraitFitsBox", func(t *testing.T) {
		original := encodePNG(t, 600, 900)

		out, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)

		w, h := decodeBounds(t, out)
		assert.Equal(t, 200, w)
		assert.Equal(t, 300, h)
	})

	t.Run("SmallImageNotUpscaled", func(t *testing.T) {
		original := encodePNG(t, 120, 90)

		out, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)

		w, h := decodeBounds(t, out)
		assert.Equal(t, 120, w)
		assert.Equal(t, 90, h)
	})

	t.Run("ExactBoxNotResampled", func(t *testing.T) {
		original := encodePNG(t, 300, 300)

		out, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)

		w, h := decodeBounds(t, out)
		assert.Equal(t, 300, w)
		assert.Equal(t, 300, h)
	})

	t.Run("Deterministic", func(t *testing.T) {
		original := encodePNG(t, 640, 480)

		out1, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)
		out2, err := thumbnailer.Thumbnail(original)
		require.NoError(t, err)

		assert.Equal(t, out1, out2)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := thumbnailer.Thumbnail([]byte("not image bytes"))
		require.Error(t, err)
	})
}
