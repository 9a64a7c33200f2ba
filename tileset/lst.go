package tileset

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

const lstFields = 5

// LoadError records a malformed LST resource.
type LoadError struct {
	Era  int // -1 when parsing a single table
	Line int // 0 when the error is not tied to a line
	Err  error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("tileset: ")
	if e.Era >= 0 {
		fmt.Fprintf(&b, "era %d (%s): ", e.Era, Era(e.Era))
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// parseColor parses a string of the form "(r,g,b)". The enclosing
// characters are not checked. Components after the third must still be valid
// numbers but are otherwise ignored.
func parseColor(s string) (Color, error) {
	if len(s) < 2 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	rgb := make([]uint8, 0, len(parts))
	for _, p := range parts {
		v, err := parseUint(p, 8)
		if err != nil {
			return Color{}, err
		}
		rgb = append(rgb, uint8(v))
	}
	if len(rgb) < 3 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return Color{rgb[0], rgb[1], rgb[2]}, nil
}

// parseUint parses an unsigned decimal number that may carry a single leading
// plus sign.
func parseUint(s string, bitSize int) (uint64, error) {
	if len(s) > 1 && s[0] == '+' {
		s = s[1:]
	}
	return strconv.ParseUint(s, 10, bitSize)
}

// parseLine returns the tile identifier and color of a line, ok is false for a
// line that doesn't have exactly five fields.
func parseLine(line string) (id uint16, c Color, ok bool, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) != lstFields {
		return 0, Color{}, false, nil
	}

	v, err := parseUint(fields[0], 16)
	if err != nil {
		return 0, Color{}, false, err
	}

	if c, err = parseColor(fields[1]); err != nil {
		return 0, Color{}, false, err
	}

	return uint16(v), c, true, nil
}

// Parse reads an LST table from r. Each line holds five tab-separated
// fields; the first is the decimal tile identifier and the second its color
// as "(r,g,b)". The remaining fields are ignored. Lines with any other number
// of fields are skipped, however a malformed number in an otherwise valid
// line is an error.
func Parse(r io.Reader) (Table, error) {
	t := make(Table)

	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, &LoadError{Era: -1, Line: n, Err: err}
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if len(line) > 0 {
			id, c, ok, perr := parseLine(line)
			if perr != nil {
				return nil, &LoadError{Era: -1, Line: n, Err: perr}
			}
			if ok {
				t[id] = c
			}
		}

		if err == io.EOF {
			return t, nil
		}
	}
}

func loadTable(fsys fs.FS, era int) (Table, error) {
	f, err := fsys.Open(strconv.Itoa(era))
	if err != nil {
		return nil, &LoadError{Era: era, Err: err}
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		le := err.(*LoadError)
		le.Era = era
		return nil, le
	}
	return t, nil
}

// Load reads the LST files named "0" to "7" from fsys and returns the
// resulting Registry. Any error aborts the load; a partial Registry is
// never returned.
func Load(fsys fs.FS) (*Registry, error) {
	var tables [NumTilesets]Table
	for i := range tables {
		t, err := loadTable(fsys, i)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return NewRegistry(tables)
}

// LoadDir is like Load but reads the LST files from the directory dir.
func LoadDir(dir string) (*Registry, error) {
	return Load(os.DirFS(dir))
}
