package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// JPEGQuality is used when re-encoding resized images.
const JPEGQuality = 85

// MaxWidth bounds the width accepted for on-the-fly resizing.
const MaxWidth = 4096

// Resize scales encoded image data to width, keeping the aspect ratio, and
// re-encodes it as JPEG. Images already at or below width are returned as is.
func Resize(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= width {
		return data, nil
	}
	height := max(1, b.Dy()*width/b.Dx())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
