package thumbs

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultSize is the edge length used for result thumbnails.
const DefaultSize = 150

// MaxPixels caps the decoded size of a source image.
const MaxPixels = 50_000_000

// ErrTooManyPixels is returned for images whose header declares more than MaxPixels.
var ErrTooManyPixels = errors.New("image dimensions too large")

// Thumbnail decodes data and scales it to fit inside size×size, keeping the
// aspect ratio. Images already smaller than that are returned as decoded.
// The header is checked against MaxPixels before any pixels are decoded.
func Thumbnail(data []byte, size int) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if size <= 0 {
		size = DefaultSize
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return src, format, nil
	}

	tw, th := size, size
	if w > h {
		th = max(1, h*size/w)
	} else {
		tw = max(1, w*size/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst, format, nil
}
