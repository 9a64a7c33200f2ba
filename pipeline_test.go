package minimap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/minimap/chk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, file string, b []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, os.WriteFile(file, b, 0644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	left := marshal(t, testScenario(0, 64, 64, leftDark))
	top := marshal(t, testScenario(5, 64, 64, topDark))

	writeFile(t, filepath.Join(dir, "a", "x.chk"), left)
	writeFile(t, filepath.Join(dir, "a", "y.CHK"), left)
	writeFile(t, filepath.Join(dir, "b", "c", "z.chk"), top)
	writeFile(t, filepath.Join(dir, ".hidden", "w.chk"), left)
	writeFile(t, filepath.Join(dir, "b", ".v.chk"), left)
	writeFile(t, filepath.Join(dir, "bad.chk"), []byte("not a scenario"))
	writeFile(t, filepath.Join(dir, "huge.chk"), marshal(t, &chk.Scenario{Width: 0xffff, Height: 0xffff, Tiles: []uint16{tileDark}}))
	writeFile(t, filepath.Join(dir, "notes.txt"), left)

	db := testDB(t)
	m := New(db, testRegistry(t), zerolog.Nop())

	require.NoError(t, m.Scan(context.Background(), dir))

	pairs, err := m.Duplicates(256)
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{"a/x.chk", "a/y.CHK", 0},
		{"a/x.chk", "b/c/z.chk", 128},
		{"a/y.CHK", "b/c/z.chk", 128},
	}, pairs)

	matches, err := m.Similar(top, 0)
	require.NoError(t, err)
	assert.Equal(t, []Match{{Name: "b/c/z.chk", Era: 5, Width: 64, Height: 64}}, matches)

	// Scanning again is idempotent
	require.NoError(t, m.Scan(context.Background(), dir))
	pairs, err = m.Duplicates(0)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"a/x.chk", "a/y.CHK", 0}}, pairs)
}

func TestMapWorkerSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.chk"), marshal(t, testScenario(0, 8, 8, leftDark)))

	m := New(nil, testRegistry(t), zerolog.Nop())

	in := make(chan string, 2)
	in <- filepath.Join(dir, "gone.chk")
	in <- filepath.Join(dir, "ok.chk")
	close(in)

	out := make(chan scanned, 2)
	require.NoError(t, m.mapWorker(context.Background(), dir, in, out))
	close(out)

	var names []string
	for r := range out {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{"ok.chk"}, names)
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.chk", "2.chk", "3.chk"} {
		writeFile(t, filepath.Join(dir, name), marshal(t, testScenario(0, 8, 8, leftDark)))
	}

	m := New(testDB(t), testRegistry(t), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, m.Scan(ctx, dir))
}

func TestScanMissing(t *testing.T) {
	m := New(testDB(t), testRegistry(t), zerolog.Nop())

	assert.Error(t, m.Scan(context.Background(), filepath.Join(t.TempDir(), "missing")))
}
