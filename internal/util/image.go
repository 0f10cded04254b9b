package util

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// ScalePicture decodes src, shrinks it to fit within maxDim on its longest side and
// writes it to dst as JPEG. Smaller images keep their size.
func ScalePicture(dst io.Writer, src io.Reader, maxDim int) error {
	reader := bufio.NewReader(src)
	head, _ := reader.Peek(512)
	if !IsPictureMIME(DetectMIME(head)) {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, DetectMIME(head))
	}

	img, _, err := image.Decode(reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	targetWidth, targetHeight := fitWithin(width, height, maxDim)
	canvas := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, draw.Over, nil)

	if err := jpeg.Encode(dst, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode picture: %w", err)
	}
	return nil
}

func fitWithin(width int, height int, maxDim int) (int, int) {
	longest := max(width, height)
	scale := 1.0
	if maxDim > 0 && longest > maxDim {
		scale = float64(maxDim) / float64(longest)
	}

	return max(1, int(math.Round(float64(width)*scale))), max(1, int(math.Round(float64(height)*scale)))
}
