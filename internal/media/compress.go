package media

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	defaultOutputMaxDim = 2400
	defaultJPEGQuality  = 82

	// OutputContentType is the content type of every compressed image.
	OutputContentType = "image/jpeg"
	// OutputExtension is the file extension of every compressed image.
	OutputExtension = ".jpg"
)

// Compressor re-encodes uploads for the web: EXIF orientation applied,
// longest side capped, JPEG output.
type Compressor struct {
	maxDim  int
	quality int
}

// Compressed is an encoded image ready for the bucket.
type Compressed struct {
	Data   []byte
	Width  int
	Height int
}

// NewCompressor returns a Compressor; non-positive values fall back to
// 2400px and quality 82.
func NewCompressor(maxDim, quality int) *Compressor {
	if maxDim <= 0 {
		maxDim = defaultOutputMaxDim
	}
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	return &Compressor{maxDim: maxDim, quality: quality}
}

// Compress decodes r and returns the re-encoded image.
func (c *Compressor) Compress(r io.Reader) (Compressed, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Compressed{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > c.maxDim || bounds.Dy() > c.maxDim {
		img = imaging.Fit(img, c.maxDim, c.maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return Compressed{}, fmt.Errorf("encode image: %w", err)
	}

	out := img.Bounds()
	return Compressed{Data: buf.Bytes(), Width: out.Dx(), Height: out.Dy()}, nil
}
