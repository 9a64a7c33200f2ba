/*
Package phash implements a perceptual hash of a minimap.

The image is resampled to 16 by 16 pixels with a Lanczos filter and converted
to luminance. Each pixel then contributes one bit, set if it is at least as
bright as the average of all 256 pixels. The bits are packed in raster order,
most significant bit first, into a 32 byte Fingerprint.

Similar images produce fingerprints with a small Hamming distance between
them. The hash is not resistant to deliberate manipulation.
*/
package phash

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/bits"

	"github.com/nfnt/resize"
)

const (
	side   = 16
	pixels = side * side

	// Size is the size of a Fingerprint in bytes.
	Size = pixels / 8
)

var (
	// ErrDecode is returned when the input is not a valid PNG.
	ErrDecode = errors.New("phash: unable to decode image")

	// ErrUnsupportedFormat is returned for anything other than an 8-bit
	// RGB image without alpha.
	ErrUnsupportedFormat = errors.New("phash: unsupported image format")
)

// Fingerprint is the perceptual hash of an image.
type Fingerprint [Size]byte

// Distance returns the number of bits that differ between f and o.
func (f Fingerprint) Distance(o Fingerprint) int {
	d := 0
	for i := range f {
		d += bits.OnesCount8(f[i] ^ o[i])
	}
	return d
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Parse parses the hexadecimal form of a Fingerprint as returned by String.
func Parse(s string) (Fingerprint, error) {
	var f Fingerprint
	b, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("phash: %w", err)
	}
	if len(b) != Size {
		return f, fmt.Errorf("phash: fingerprint is %d bytes, expected %d", len(b), Size)
	}
	copy(f[:], b)
	return f, nil
}

// luma uses the ITU-R BT.709 weights
func luma(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (2126*(r>>8) + 7152*(g>>8) + 722*(b>>8)) / 10000
}

// HashImage computes the Fingerprint of m.
func HashImage(m image.Image) Fingerprint {
	small := resize.Resize(side, side, m, resize.Lanczos3)
	b := small.Bounds()

	var (
		lum [pixels]uint32
		sum uint32
	)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			l := luma(small.At(b.Min.X+x, b.Min.Y+y))
			lum[y*side+x] = l
			sum += l
		}
	}
	avg := sum / pixels

	var f Fingerprint
	for i, l := range lum {
		f[i>>3] <<= 1
		if l >= avg {
			f[i>>3] |= 1
		}
	}
	return f
}

// Hash decodes the PNG in b and computes its Fingerprint. The PNG must be
// 8-bit RGB without an alpha channel or transparency.
func Hash(b []byte) (Fingerprint, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.ColorModel != color.RGBAModel {
		return Fingerprint{}, ErrUnsupportedFormat
	}

	m, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// A tRNS chunk turns truecolor into NRGBA
	if _, ok := m.(*image.RGBA); !ok {
		return Fingerprint{}, ErrUnsupportedFormat
	}

	return HashImage(m), nil
}
