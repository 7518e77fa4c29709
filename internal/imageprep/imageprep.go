// Package imageprep scales frame images down before they are uploaded to a
// model backend.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// MIMEType is the content type of the encoded images.
const MIMEType = "image/jpeg"

const jpegQuality = 90

// Load decodes the PNG or JPEG at path, scales it so its longest side is at
// most size pixels and re-encodes it as JPEG. Images are never upscaled;
// size <= 0 keeps the original dimensions.
func Load(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	img := Fit(src, size)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode image %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// DataURL loads the image like Load and returns it as a base64 data URL.
func DataURL(path string, size int) (string, error) {
	data, err := Load(path, size)
	if err != nil {
		return "", err
	}
	return "data:" + MIMEType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Fit returns src scaled so its longest side is at most size, keeping the
// aspect ratio.
func Fit(src image.Image, size int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if size <= 0 || longest <= size {
		return src
	}

	nw := max(1, w*size/longest)
	nh := max(1, h*size/longest)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
