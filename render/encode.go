package render

import (
	"image"
	"image/png"
	"io"
)

var encoder = png.Encoder{
	CompressionLevel: png.DefaultCompression,
}

// Encode writes the opaque image m to w as an 8-bit RGB PNG. The encoder
// picks the truecolor format without alpha for any opaque *image.RGBA and
// writes no ancillary chunks, so the output only depends on the pixels.
func Encode(w io.Writer, m *image.RGBA) error {
	if m.Rect.Dx() == 0 || m.Rect.Dy() == 0 {
		return &EncodeError{errBadSize}
	}
	if !m.Opaque() {
		return &EncodeError{errNotOpaque}
	}
	if err := encoder.Encode(w, m); err != nil {
		return &EncodeError{err}
	}
	return nil
}
