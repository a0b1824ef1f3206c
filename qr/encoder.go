// Package qr renders short text, typically the pairing URL, into a
// two-colour bitmap a phone camera can scan.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrCapacity marks payloads larger than a version 40 symbol can hold
	// (2331 bytes of arbitrary text at Medium recovery).
	ErrCapacity = errors.New("payload exceeds QR capacity")
	ErrEmpty    = errors.New("nothing to encode")
)

// EncodingError is returned when text cannot be encoded. Callers skip the
// bitmap and keep showing the text.
type EncodingError struct {
	Length int
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("qr: cannot encode %d bytes: %v", e.Length, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Bitmap is a Width x Height monochrome grid; true is a dark pixel.
// The symbol sits centred with its quiet border included.
type Bitmap struct {
	Width   int
	Height  int
	Pix     []bool
	Modules int // symbol side in modules, quiet border included
	Scale   int // pixels per module
	OffsetX int
	OffsetY int
}

// Encode renders text at Medium recovery into a width x height bitmap.
// Identical input always yields an identical bitmap.
func Encode(text string, width, height int) (*Bitmap, error) {
	if text == "" {
		return nil, &EncodingError{Err: ErrEmpty}
	}
	code, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		// The only failure left for non-empty text is "content too long".
		return nil, &EncodingError{Length: len(text), Err: fmt.Errorf("%w: %v", ErrCapacity, err)}
	}
	code.DisableBorder = false
	modules := code.Bitmap()
	return scale(modules, width, height), nil
}

func scale(modules [][]bool, width, height int) *Bitmap {
	n := len(modules)
	side := min(width, height)
	s := side / n
	if s < 1 {
		s = 1
	}
	width = max(width, n*s)
	height = max(height, n*s)

	b := &Bitmap{
		Width:   width,
		Height:  height,
		Pix:     make([]bool, width*height),
		Modules: n,
		Scale:   s,
		OffsetX: (width - n*s) / 2,
		OffsetY: (height - n*s) / 2,
	}
	for my, row := range modules {
		for mx, dark := range row {
			if !dark {
				continue
			}
			for dy := 0; dy < s; dy++ {
				start := (b.OffsetY+my*s+dy)*width + b.OffsetX + mx*s
				for dx := 0; dx < s; dx++ {
					b.Pix[start+dx] = true
				}
			}
		}
	}
	return b
}

// At reports whether pixel (x, y) is dark. Out of range pixels are light.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Pix[y*b.Width+x]
}

// Module reports whether module (mx, my) of the symbol is dark.
func (b *Bitmap) Module(mx, my int) bool {
	if mx < 0 || my < 0 || mx >= b.Modules || my >= b.Modules {
		return false
	}
	return b.At(b.OffsetX+mx*b.Scale, b.OffsetY+my*b.Scale)
}

var palette = color.Palette{color.White, color.Black}

func (b *Bitmap) Image() *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, b.Width, b.Height), palette)
	for i, dark := range b.Pix {
		if dark {
			img.Pix[i] = 1
		}
	}
	return img
}

func (b *Bitmap) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.Image()); err != nil {
		return nil, fmt.Errorf("qr: png encode: %w", err)
	}
	return buf.Bytes(), nil
}
