package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mystuff/internal/domain"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxW, maxH int
		wantW      int
		wantH      int
	}{
		{"landscape", 1024, 768, 512, 512, 512, 384},
		{"portrait", 600, 1200, 512, 512, 256, 512},
		{"already fits", 100, 50, 512, 512, 100, 50},
		{"exact", 512, 512, 512, 512, 512, 512},
		{"page box", 2000, 1000, 495, 641, 495, 248},
		{"degenerate", 0, 10, 512, 512, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestInspect(t *testing.T) {
	info, err := Inspect(pngBytes(t, 30, 20, color.Black))
	require.NoError(t, err)
	assert.Equal(t, Info{Format: "png", Width: 30, Height: 20}, info)
}

func TestNormalizeJPEG(t *testing.T) {
	out, err := NormalizeJPEG(pngBytes(t, 40, 30, color.RGBA{R: 200, A: 255}))
	require.NoError(t, err)

	info, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 30, info.Height)
}

func TestNormalizeJPEGFlattensTransparency(t *testing.T) {
	out, err := NormalizeJPEG(pngBytes(t, 8, 8, color.RGBA{}))
	require.NoError(t, err)

	img, _, err := Decode(out)
	require.NoError(t, err)
	r, g, b, _ := img.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestPrepareForAnalysisDownscales(t *testing.T) {
	out, err := PrepareForAnalysis(pngBytes(t, 1024, 768, color.Gray{Y: 128}))
	require.NoError(t, err)

	info, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 512, info.Width)
	assert.Equal(t, 384, info.Height)
}

func TestPrepareForAnalysisKeepsSmallImages(t *testing.T) {
	out, err := PrepareForAnalysis(pngBytes(t, 64, 32, color.Gray{Y: 10}))
	require.NoError(t, err)

	info, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 32, info.Height)
}

func TestUnsupportedImage(t *testing.T) {
	garbage := []byte("definitely not an image")

	_, err := Inspect(garbage)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))

	_, err = NormalizeJPEG(garbage)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))

	_, err = PrepareForAnalysis(garbage)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))
}

// pngHeader builds a PNG holding only a signature and an IHDR chunk that
// claims w x h RGBA pixels.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestOversizedImageRejectedBeforeDecode(t *testing.T) {
	huge := pngHeader(60000, 60000)

	_, err := Inspect(huge)
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)
	assert.Contains(t, err.Error(), "60000x60000")

	_, _, err = Decode(huge)
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)

	_, err = NormalizeJPEG(huge)
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)

	_, err = PrepareForAnalysis(huge)
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)
}

func TestPixelBudgetBoundary(t *testing.T) {
	_, err := Inspect(pngHeader(10000, 5000))
	assert.NoError(t, err)

	_, err = Inspect(pngHeader(10000, 5001))
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)
}
