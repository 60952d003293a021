// Package imaging decodes uploaded photos and re-encodes them as JPEG for
// storage and analysis.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/mystuff/internal/domain"
)

const (
	// OriginalQuality is the JPEG quality of stored photos.
	OriginalQuality = 80
	// AnalysisQuality is the JPEG quality of the copy sent for analysis.
	AnalysisQuality = 70
	// AnalysisMaxSide bounds both dimensions of the analysis copy.
	AnalysisMaxSide = 512
	// MaxPixels bounds width*height of any image that gets decoded.
	MaxPixels = 50_000_000
)

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Format string
	Width  int
	Height int
}

// Inspect reads the format and pixel dimensions of data.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: empty %s image", domain.ErrUnsupportedImage, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Info{}, fmt.Errorf("%w: %dx%d %s image exceeds %d pixels",
			domain.ErrUnsupportedImage, cfg.Width, cfg.Height, format, MaxPixels)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode accepts JPEG, PNG, GIF and WebP. The header is checked against
// MaxPixels before any pixel memory is allocated.
func Decode(data []byte) (image.Image, string, error) {
	if _, err := Inspect(data); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// NormalizeJPEG re-encodes any supported image as a JPEG at OriginalQuality.
func NormalizeJPEG(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(flatten(img), OriginalQuality)
}

// PrepareForAnalysis returns a JPEG copy of data that fits within
// AnalysisMaxSide x AnalysisMaxSide, keeping the aspect ratio.
func PrepareForAnalysis(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), AnalysisMaxSide, AnalysisMaxSide)
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		return encodeJPEG(dst, AnalysisQuality)
	}
	return encodeJPEG(flatten(img), AnalysisQuality)
}

// Fit scales w x h uniformly to fit within maxW x maxH. Images that already
// fit are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h), 1)
	fw := max(int(float64(w)*scale+0.5), 1)
	fh := max(int(float64(h)*scale+0.5), 1)
	return fw, fh
}

// flatten composites images with transparency onto white, since JPEG has no
// alpha channel.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
