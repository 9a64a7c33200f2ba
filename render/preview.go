package render

import (
	"errors"
	"image"
	"image/draw"
	"image/gif"
	"io"

	"github.com/disintegration/gift"
	"github.com/ericpauley/go-quantize/quantize"
)

const maxColors = 256

var errBadScale = errors.New("render: scale must be at least 1")

// PreviewOptions are the encoding parameters for Preview.
type PreviewOptions struct {
	// Scale is the integer factor each tile is enlarged by.
	Scale int

	// Colors is the maximum number of colors, from 1 to 256.
	Colors int
}

// DefaultPreviewOptions are used when Preview is passed nil.
var DefaultPreviewOptions = PreviewOptions{
	Scale:  4,
	Colors: maxColors,
}

// Preview writes an enlarged copy of the minimap m to w as a GIF. Each tile
// becomes a Scale by Scale block and the colors are reduced with a median cut
// quantizer without dithering.
func Preview(w io.Writer, m image.Image, o *PreviewOptions) error {
	if o == nil {
		o = &DefaultPreviewOptions
	}
	if o.Scale < 1 {
		return errBadScale
	}

	colors := o.Colors
	switch {
	case colors < 1:
		colors = 1
	case colors > maxColors:
		colors = maxColors
	}

	b := m.Bounds()
	g := gift.New(gift.Resize(b.Dx()*o.Scale, b.Dy()*o.Scale, gift.NearestNeighborResampling))

	dst := image.NewRGBA(g.Bounds(b))
	g.Draw(dst, m)

	return gif.Encode(w, dst, &gif.Options{
		NumColors: colors,
		Quantizer: &quantize.MedianCutQuantizer{},
		Drawer:    draw.Src,
	})
}
