/*
Package minimap is a library for rendering minimaps of real-time-strategy maps
and finding maps that look alike.

Each map's terrain is drawn with one pixel per tile and the resulting image is
reduced to a perceptual fingerprint. Fingerprints are stored in a database so
near-duplicate maps can be found by comparing them.
*/
package minimap

import (
	"bytes"
	"errors"
	"image/png"
	"io"

	"github.com/bodgit/minimap/chk"
	"github.com/bodgit/minimap/phash"
	"github.com/bodgit/minimap/render"
	"github.com/bodgit/minimap/tileset"
	"github.com/rs/zerolog"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Minimap renders, fingerprints and catalogues maps.
type Minimap struct {
	db       *DB
	registry *tileset.Registry
	renderer *render.Renderer
	logger   zerolog.Logger
}

// New returns a Minimap using the tilesets in reg. db may be nil if no
// database operations are needed.
func New(db *DB, reg *tileset.Registry, logger zerolog.Logger) *Minimap {
	return &Minimap{
		db:       db,
		registry: reg,
		renderer: render.New(reg),
		logger:   logger,
	}
}

// Render draws the tiles as a width by height PNG using the tileset selected
// by era.
func (m *Minimap) Render(tiles []uint16, width, height int, era tileset.Era) ([]byte, error) {
	b, err := m.renderer.Render(tiles, width, height, era)

	e := m.logger.Debug()
	if err != nil {
		e = m.logger.Error().Err(err)
	}
	e.Str("tileset", era.String()).Int("width", width).Int("height", height).Int("tiles", len(tiles)).Int("bytes", len(b)).Msg("Rendered minimap")

	return b, err
}

// Hash returns the perceptual fingerprint of the PNG in b.
func (m *Minimap) Hash(b []byte) (phash.Fingerprint, error) {
	f, err := phash.Hash(b)
	if err != nil {
		m.logger.Error().Err(err).Int("bytes", len(b)).Msg("Unable to hash minimap")
		return f, err
	}
	m.logger.Debug().Stringer("fingerprint", f).Int("bytes", len(b)).Msg("Hashed minimap")
	return f, nil
}

// RenderScenario draws the minimap of the scenario data in b.
func (m *Minimap) RenderScenario(b []byte) ([]byte, *chk.Scenario, error) {
	s, err := chk.Parse(b)
	if err != nil {
		return nil, nil, err
	}
	p, err := m.Render(s.Tiles, s.Width, s.Height, s.Era)
	if err != nil {
		return nil, nil, err
	}
	return p, s, nil
}

// Preview draws the minimap of the scenario data in b and writes an enlarged
// copy as a GIF to w.
func (m *Minimap) Preview(w io.Writer, b []byte, o *render.PreviewOptions) error {
	p, _, err := m.RenderScenario(b)
	if err != nil {
		return err
	}
	img, err := png.Decode(bytes.NewReader(p))
	if err != nil {
		return err
	}
	return render.Preview(w, img, o)
}

// Fingerprint returns the fingerprint of b which is either a PNG minimap or
// scenario data.
func (m *Minimap) Fingerprint(b []byte) (phash.Fingerprint, error) {
	if !bytes.HasPrefix(b, pngSignature) {
		p, _, err := m.RenderScenario(b)
		if err != nil {
			return phash.Fingerprint{}, err
		}
		b = p
	}
	return m.Hash(b)
}

var errNoDB = errors.New("minimap: no database")

// Similar returns the maps in the database whose fingerprint is within
// maxDistance bits of the fingerprint of b.
func (m *Minimap) Similar(b []byte, maxDistance int) ([]Match, error) {
	if m.db == nil {
		return nil, errNoDB
	}
	f, err := m.Fingerprint(b)
	if err != nil {
		return nil, err
	}
	return m.db.FindSimilar(f, maxDistance)
}

// Duplicates returns every pair of distinct minimaps in the database whose
// fingerprints are within maxDistance bits of each other.
func (m *Minimap) Duplicates(maxDistance int) ([]Pair, error) {
	if m.db == nil {
		return nil, errNoDB
	}
	return m.db.Duplicates(maxDistance)
}
