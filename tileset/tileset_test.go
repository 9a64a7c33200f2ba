package tileset

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lstLine(id int, r, g, b int) string {
	return fmt.Sprintf("%d\t(%d,%d,%d)\t0\t0\t0\n", id, r, g, b)
}

func testFS(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := make(fstest.MapFS)
	for i := 0; i < NumTilesets; i++ {
		var b strings.Builder
		// Tile 0 differs per era, tile 1 is the same everywhere
		b.WriteString(lstLine(0, i*10, i*20, i*30))
		b.WriteString(lstLine(1, 255, 255, 255))
		fsys[strconv.Itoa(i)] = &fstest.MapFile{Data: []byte(b.String())}
	}
	return fsys
}

func TestEra(t *testing.T) {
	tables := []struct {
		era   Era
		index int
		name  string
	}{
		{0, 0, "Badlands"},
		{1, 1, "Space Platform"},
		{2, 2, "Installation"},
		{3, 3, "Ashworld"},
		{4, 4, "Jungle"},
		{5, 5, "Desert"},
		{6, 6, "Arctic"},
		{7, 7, "Twilight"},
		{8, 0, "Badlands"},
		{12, 4, "Jungle"},
		{0xffff, 7, "Twilight"},
	}

	for _, table := range tables {
		t.Run(strconv.Itoa(int(table.era)), func(t *testing.T) {
			assert.Equal(t, table.index, table.era.Index())
			assert.Equal(t, table.name, table.era.String())
		})
	}
}

func TestColorRGBA(t *testing.T) {
	r, g, b, a := Color{0x12, 0x80, 0xff}.RGBA()
	assert.Equal(t, uint32(0x1212), r)
	assert.Equal(t, uint32(0x8080), g)
	assert.Equal(t, uint32(0xffff), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestParse(t *testing.T) {
	src := "" +
		lstLine(0, 1, 2, 3) +
		"\n" +
		"not\ta\tvalid\tline\n" +
		"7\t(4,5,6)\ttoo\tmany\tfields\there\n" +
		lstLine(65535, 255, 0, 128) +
		lstLine(42, 9, 9, 9) +
		lstLine(42, 10, 11, 12) +
		"99\t(1,2,3,4)\ta\tb\tc"

	table, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, Table{
		0:     {1, 2, 3},
		42:    {10, 11, 12},
		99:    {1, 2, 3},
		65535: {255, 0, 128},
	}, table)
}

func TestParseCRLF(t *testing.T) {
	table, err := Parse(strings.NewReader("3\t(7,8,9)\ta\tb\tc\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Table{3: {7, 8, 9}}, table)
}

func TestParseLongLines(t *testing.T) {
	long := strings.Repeat("x", 1<<17)
	src := "" +
		"1\t(1,2,3)\t" + long + "\n" +
		"2\t(4,5,6)\t0\t0\t" + long + "\n" +
		lstLine(3, 7, 8, 9)

	table, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, Table{2: {4, 5, 6}, 3: {7, 8, 9}}, table)
}

func TestParsePlusSign(t *testing.T) {
	table, err := Parse(strings.NewReader("+5\t(+1,2,+3)\t0\t0\t0\n"))
	require.NoError(t, err)
	assert.Equal(t, Table{5: {1, 2, 3}}, table)

	for _, src := range []string{"+\t(1,2,3)\t0\t0\t0\n", "++5\t(1,2,3)\t0\t0\t0\n", "5\t(1,+-2,3)\t0\t0\t0\n"} {
		_, err := Parse(strings.NewReader(src))
		assert.Error(t, err, src)
	}
}

func TestParseErrors(t *testing.T) {
	tables := []struct {
		name string
		src  string
		line int
	}{
		{"id not a number", "x\t(1,2,3)\t0\t0\t0\n", 1},
		{"id out of range", "65536\t(1,2,3)\t0\t0\t0\n", 1},
		{"negative id", "-1\t(1,2,3)\t0\t0\t0\n", 1},
		{"channel out of range", lstLine(1, 1, 2, 3) + lstLine(2, 256, 0, 0), 2},
		{"channel not a number", "1\t(1,a,3)\t0\t0\t0\n", 1},
		{"two channels", "1\t(1,2)\t0\t0\t0\n", 1},
		{"empty color", "1\t()\t0\t0\t0\n", 1},
		{"short color", "1\t(\t0\t0\t0\n", 1},
		{"after blank line", "\n\n" + "1\t(1,2,x)\t0\t0\t0\n", 3},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(table.src))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, -1, le.Era)
			assert.Equal(t, table.line, le.Line)
		})
	}
}

func TestLoad(t *testing.T) {
	r, err := Load(testFS(t))
	require.NoError(t, err)

	for i := 0; i < NumTilesets; i++ {
		era := Era(i)
		assert.Equal(t, 2, r.Len(era))

		c, ok := r.Lookup(era, 0)
		assert.True(t, ok)
		assert.Equal(t, Color{uint8(i * 10), uint8(i * 20), uint8(i * 30)}, c)

		_, ok = r.Lookup(era, 2)
		assert.False(t, ok)

		table, err := r.Table(era)
		require.NoError(t, err)
		assert.Len(t, table, 2)
	}

	// Era wraps around
	c, ok := r.Lookup(9, 0)
	assert.True(t, ok)
	assert.Equal(t, Color{10, 20, 30}, c)
}

func TestLoadMissingFile(t *testing.T) {
	fsys := testFS(t)
	delete(fsys, "5")

	r, err := Load(fsys)
	assert.Nil(t, r)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 5, le.Era)
	assert.Contains(t, err.Error(), "Desert")
}

func TestLoadMalformed(t *testing.T) {
	fsys := testFS(t)
	fsys["3"] = &fstest.MapFile{Data: []byte(lstLine(0, 1, 2, 3) + "1\t(1,2,300)\t0\t0\t0\n")}

	r, err := Load(fsys)
	assert.Nil(t, r)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 3, le.Era)
	assert.Equal(t, 2, le.Line)
	assert.Contains(t, err.Error(), "era 3 (Ashworld): line 2:")
}

func TestNewRegistryMissingTable(t *testing.T) {
	var tables [NumTilesets]Table
	for i := range tables {
		tables[i] = Table{}
	}
	tables[6] = nil

	_, err := NewRegistry(tables)
	assert.True(t, errors.Is(err, ErrMissingTileset))
}

func TestRegistryZeroValue(t *testing.T) {
	var r Registry

	_, ok := r.Lookup(0, 0)
	assert.False(t, ok)

	_, err := r.Table(4)
	assert.True(t, errors.Is(err, ErrMissingTileset))
}

func TestRegistryConcurrentLookup(t *testing.T) {
	r, err := Load(testFS(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(era Era) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c, ok := r.Lookup(era, 1)
				assert.True(t, ok)
				assert.Equal(t, Color{255, 255, 255}, c)
			}
		}(Era(i))
	}
	wg.Wait()
}

// TestLoadSnapshot checks the entry counts of the remastered LST snapshot. It
// only runs when MINIMAP_TILESETS points at a directory containing it.
func TestLoadSnapshot(t *testing.T) {
	dir := os.Getenv("MINIMAP_TILESETS")
	if dir == "" {
		t.Skip("MINIMAP_TILESETS not set")
	}

	r, err := LoadDir(dir)
	require.NoError(t, err)

	counts := [NumTilesets]int{31664, 32736, 20240, 22688, 32736, 32736, 32624, 32752}
	for i, n := range counts {
		assert.Equal(t, n, r.Len(Era(i)), Era(i).String())
	}
}
