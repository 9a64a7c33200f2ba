/*
Package render implements the minimap renderer.

A minimap has one pixel per map tile. Each tile identifier is looked up in the
tileset selected by the map era; any tile missing from the tileset is drawn
black. The result is encoded as an 8-bit RGB PNG with no alpha channel.
*/
package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"

	"github.com/bodgit/minimap/tileset"
)

var (
	errBadSize   = errors.New("invalid image size")
	errNotOpaque = errors.New("image is not opaque")
)

// EncodeError is returned when the minimap cannot be encoded.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "render: unable to encode minimap: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Tiles decodes a raw buffer of little-endian 16-bit tile identifiers. Any
// odd trailing byte is ignored.
func Tiles(b []byte) []uint16 {
	tiles := make([]uint16, len(b)>>1)
	for i := range tiles {
		tiles[i] = binary.LittleEndian.Uint16(b[i<<1:])
	}
	return tiles
}

// Renderer draws minimaps using the colors from a tileset.Registry.
type Renderer struct {
	registry *tileset.Registry
}

// New returns a Renderer that uses r.
func New(r *tileset.Registry) *Renderer {
	return &Renderer{
		registry: r,
	}
}

// Image draws the tiles as a width by height image. The tiles are in
// row-major order; if there are fewer than width*height of them the
// remainder are drawn as tile 0.
func (r *Renderer) Image(tiles []uint16, width, height int, era tileset.Era) (*image.RGBA, error) {
	if width < 0 || height < 0 {
		return nil, &EncodeError{errBadSize}
	}

	table, err := r.registry.Table(era)
	if err != nil {
		return nil, err
	}

	m := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var id uint16
			if offset := y*width + x; offset < len(tiles) {
				id = tiles[offset]
			}

			// A missing tile leaves c as black
			c := table[id]

			i := m.PixOffset(x, y)
			m.Pix[i+0] = c.R
			m.Pix[i+1] = c.G
			m.Pix[i+2] = c.B
			m.Pix[i+3] = 0xff
		}
	}

	return m, nil
}

// Render draws the tiles as a width by height image and returns it encoded as
// a PNG. The same arguments always produce the same bytes.
func (r *Renderer) Render(tiles []uint16, width, height int, era tileset.Era) ([]byte, error) {
	m, err := r.Image(tiles, width, height, era)
	if err != nil {
		return nil, err
	}

	b := new(bytes.Buffer)
	if err := Encode(b, m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
