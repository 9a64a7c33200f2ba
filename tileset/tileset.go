/*
Package tileset implements the per-era terrain color tables used to render
minimaps.

There are eight tilesets, one for each era. Each maps a 16-bit tile
identifier to a 24-bit color. The tables are loaded once from LST resource
files named 0 through 7 and are never modified afterwards, so a Registry can
be shared between any number of goroutines without locking.
*/
package tileset

import (
	"errors"
	"fmt"
)

// NumTilesets is the number of distinct tilesets. Any era value selects
// tileset era % NumTilesets.
const NumTilesets = 8

var names = [NumTilesets]string{
	"Badlands",
	"Space Platform",
	"Installation",
	"Ashworld",
	"Jungle",
	"Desert",
	"Arctic",
	"Twilight",
}

// ErrMissingTileset is returned when a Registry has no table for an era.
var ErrMissingTileset = errors.New("tileset: no table for era")

// Era selects a tileset.
type Era uint16

// Index returns the tileset index selected by the era.
func (e Era) Index() int {
	return int(e % NumTilesets)
}

func (e Era) String() string {
	return names[e.Index()]
}

// Color is a 24-bit color. It implements the color.Color interface and is
// always opaque.
type Color struct {
	R, G, B uint8
}

// RGBA returns the alpha-premultiplied color components.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

// Table maps tile identifiers to colors.
type Table map[uint16]Color

// Registry holds a Table for each era.
type Registry struct {
	tables [NumTilesets]Table
}

// NewRegistry returns a Registry built from the given tables. Every table
// must be non-nil.
func NewRegistry(tables [NumTilesets]Table) (*Registry, error) {
	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w %d (%s)", ErrMissingTileset, i, Era(i))
		}
	}
	return &Registry{
		tables: tables,
	}, nil
}

// Table returns the table selected by era.
func (r *Registry) Table(era Era) (Table, error) {
	t := r.tables[era.Index()]
	if t == nil {
		return nil, fmt.Errorf("%w %d (%s)", ErrMissingTileset, era.Index(), era)
	}
	return t, nil
}

// Lookup returns the color of tile id in the tileset selected by era.
func (r *Registry) Lookup(era Era, id uint16) (Color, bool) {
	c, ok := r.tables[era.Index()][id]
	return c, ok
}

// Len returns the number of entries in the tileset selected by era.
func (r *Registry) Len(era Era) int {
	return len(r.tables[era.Index()])
}
