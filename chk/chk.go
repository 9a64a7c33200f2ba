/*
Package chk reads the terrain of a map from its scenario data.

Scenario data is a sequence of chunks. Each chunk starts with a four byte name
and a little-endian 32-bit length, followed by that many bytes. Only the
chunks needed to draw a minimap are decoded:

	ERA   the tileset, a 16-bit value
	DIM   the width and height in tiles, two 16-bit values
	MTXM  the tile identifiers in row-major order, 16-bit values

If a chunk appears more than once the last one is used. Nothing else about the
scenario is checked.
*/
package chk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/minimap/render"
	"github.com/bodgit/minimap/tileset"
)

const headerSize = 8

// MaxDimension is the largest width or height in tiles that Parse accepts.
const MaxDimension = 256

var (
	// ErrNoDimensions is returned when there is no DIM chunk.
	ErrNoDimensions = errors.New("chk: no dimensions")

	// ErrNoTiles is returned when there is no MTXM chunk.
	ErrNoTiles = errors.New("chk: no tiles")

	// ErrBadDimensions is returned when the width or height is larger than
	// MaxDimension.
	ErrBadDimensions = errors.New("chk: dimensions too large")

	errShortChunk = errors.New("chk: chunk too short")
)

var (
	chunkEra  = [4]byte{'E', 'R', 'A', ' '}
	chunkDim  = [4]byte{'D', 'I', 'M', ' '}
	chunkMTXM = [4]byte{'M', 'T', 'X', 'M'}
)

// Scenario is the terrain of a map.
type Scenario struct {
	Era    tileset.Era
	Width  int
	Height int
	Tiles  []uint16
}

type header struct {
	Name   [4]byte
	Length int32
}

// Parse decodes the terrain from the scenario data in b. A chunk that runs
// past the end of b is cut short rather than rejected.
func Parse(b []byte) (*Scenario, error) {
	var (
		s            Scenario
		dim, mtxm    []byte
		hasDim, hasM bool
	)

	r := bytes.NewReader(b)
	for r.Len() >= headerSize {
		var h header
		if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
			return nil, err
		}
		if h.Length < 0 {
			return nil, fmt.Errorf("chk: chunk %q has negative length %d", h.Name[:], h.Length)
		}

		data := make([]byte, min(int(h.Length), r.Len()))
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}

		switch h.Name {
		case chunkEra:
			if len(data) < 2 {
				return nil, fmt.Errorf("%w: %q", errShortChunk, h.Name[:])
			}
			s.Era = tileset.Era(binary.LittleEndian.Uint16(data))
		case chunkDim:
			dim, hasDim = data, true
		case chunkMTXM:
			mtxm, hasM = data, true
		}
	}

	if !hasDim {
		return nil, ErrNoDimensions
	}
	if len(dim) < 4 {
		return nil, fmt.Errorf("%w: %q", errShortChunk, chunkDim[:])
	}
	s.Width = int(binary.LittleEndian.Uint16(dim[0:]))
	s.Height = int(binary.LittleEndian.Uint16(dim[2:]))
	if s.Width > MaxDimension || s.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, s.Width, s.Height)
	}

	if !hasM {
		return nil, ErrNoTiles
	}
	s.Tiles = render.Tiles(mtxm)

	return &s, nil
}

// MarshalBinary encodes the scenario as ERA, DIM and MTXM chunks.
func (s *Scenario) MarshalBinary() ([]byte, error) {
	if s.Width < 0 || s.Width > 0xffff || s.Height < 0 || s.Height > 0xffff {
		return nil, fmt.Errorf("chk: invalid dimensions %dx%d", s.Width, s.Height)
	}

	b := new(bytes.Buffer)

	chunks := []struct {
		name [4]byte
		data interface{}
	}{
		{chunkEra, uint16(s.Era)},
		{chunkDim, [2]uint16{uint16(s.Width), uint16(s.Height)}},
		{chunkMTXM, s.Tiles},
	}

	for _, c := range chunks {
		h := header{
			Name:   c.name,
			Length: int32(binary.Size(c.data)),
		}
		if err := binary.Write(b, binary.LittleEndian, &h); err != nil {
			return nil, err
		}
		if err := binary.Write(b, binary.LittleEndian, c.data); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}
