package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

// Rejection reasons reported to the operator.
const (
	ReasonFileTooLarge = "file too large"
	ReasonUnsupported  = "unsupported image format"
	ReasonTooSmall     = "too small"
	ReasonTooLarge     = "too large"
)

// Limits bounds accepted uploads.
type Limits struct {
	MaxBytes     int64
	MinDimension int
	MaxDimension int
}

// DefaultLimits caps uploads at 20MB and 400..8000px per side.
var DefaultLimits = Limits{
	MaxBytes:     20 << 20,
	MinDimension: 400,
	MaxDimension: 8000,
}

// RejectionError explains why an upload was refused.
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// Info is what Validate learned about an accepted file.
type Info struct {
	Format string
	Width  int
	Height int
	Bytes  int64
}

// Validate checks size first, then reads only the image header to check the
// pixel dimensions. A file over MaxBytes is rejected without decoding.
func (l Limits) Validate(size int64, r io.Reader) (Info, error) {
	if l.MaxBytes > 0 && size > l.MaxBytes {
		return Info{}, &RejectionError{
			Reason: ReasonFileTooLarge,
			Detail: fmt.Sprintf("%.1fMB exceeds %dMB", float64(size)/(1<<20), l.MaxBytes>>20),
		}
	}

	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, &RejectionError{Reason: ReasonUnsupported, Detail: err.Error()}
	}

	info := Info{Format: format, Width: cfg.Width, Height: cfg.Height, Bytes: size}
	if cfg.Width < l.MinDimension || cfg.Height < l.MinDimension {
		return info, &RejectionError{
			Reason: ReasonTooSmall,
			Detail: fmt.Sprintf("%dx%d is below %dpx", cfg.Width, cfg.Height, l.MinDimension),
		}
	}
	if l.MaxDimension > 0 && (cfg.Width > l.MaxDimension || cfg.Height > l.MaxDimension) {
		return info, &RejectionError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("%dx%d exceeds %dpx", cfg.Width, cfg.Height, l.MaxDimension),
		}
	}
	return info, nil
}
