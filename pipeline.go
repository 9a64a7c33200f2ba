package minimap

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bodgit/minimap/chk"
	"github.com/bodgit/minimap/phash"
	"golang.org/x/sync/errgroup"
)

// Ext is the file extension of scenario data.
const Ext = ".chk"

type scanned struct {
	name        string
	scenario    *chk.Scenario
	png         []byte
	fingerprint phash.Fingerprint
}

func (m *Minimap) findMaps(ctx context.Context, base string, out chan<- string) error {
	return filepath.WalkDir(base, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
		if file != base && d.Name()[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Ignore anything that isn't a normal file
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(file), Ext) {
			return nil
		}

		select {
		case out <- file:
		case <-ctx.Done():
			return errors.New("walk cancelled")
		}

		return nil
	})
}

func (m *Minimap) mapWorker(ctx context.Context, base string, in <-chan string, out chan<- scanned) error {
	for file := range in {
		b, err := os.ReadFile(file)
		if err != nil {
			m.logger.Warn().Err(err).Str("file", file).Msg("Skipping map")
			continue
		}

		name, err := filepath.Rel(base, file)
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)

		png, s, err := m.RenderScenario(b)
		if err != nil {
			m.logger.Warn().Err(err).Str("file", file).Msg("Skipping map")
			continue
		}

		f, err := m.Hash(png)
		if err != nil {
			return err
		}

		select {
		case out <- scanned{name, s, png, f}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Minimap) store(in <-chan scanned) error {
	for r := range in {
		if _, err := m.db.AddMap(r.name, r.scenario, r.png, r.fingerprint); err != nil {
			return err
		}
		m.logger.Info().Str("map", r.name).Str("tileset", r.scenario.Era.String()).Stringer("fingerprint", r.fingerprint).Msg("Added map")
	}
	return nil
}

// Scan renders every scenario file found under path and adds it to the
// database, named by its path relative to path.
func (m *Minimap) Scan(ctx context.Context, path string) error {
	if m.db == nil {
		return errNoDB
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	files := make(chan string)
	results := make(chan scanned)

	g.Go(func() error {
		defer close(files)
		return m.findMaps(ctx, dir, files)
	})

	var wg sync.WaitGroup
	for i := 0; i < runtime.NumCPU(); i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return m.mapWorker(ctx, dir, files, results)
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// A single writer avoids contending for the database lock
	g.Go(func() error {
		return m.store(results)
	})

	return g.Wait()
}
