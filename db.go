package minimap

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"sort"

	"github.com/bodgit/minimap/chk"
	"github.com/bodgit/minimap/phash"
	_ "github.com/mattn/go-sqlite3"
)

// DB stores minimaps and their fingerprints.
type DB struct {
	db *sql.DB
}

// Match is a map found by a similarity search.
type Match struct {
	Name     string
	Era      int
	Width    int
	Height   int
	Distance int
}

// Pair is two maps whose minimaps look alike.
type Pair struct {
	A, B     string
	Distance int
}

// NewDB opens or creates the database in file.
func NewDB(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS minimap (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, era INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, phash BLOB NOT NULL, png BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS map (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, minimap_id INTEGER NOT NULL, FOREIGN KEY(minimap_id) REFERENCES minimap(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) addMinimap(s *chk.Scenario, png []byte, f phash.Fingerprint) (int64, error) {
	sha := fmt.Sprintf("%X", sha1.Sum(png))

	if _, err := db.db.Exec("INSERT OR IGNORE INTO minimap (sha1, era, width, height, phash, png) VALUES (?, ?, ?, ?, ?, ?)", sha, s.Era.Index(), s.Width, s.Height, f[:], png); err != nil {
		return 0, err
	}

	var id int64
	if err := db.db.QueryRow("SELECT id FROM minimap WHERE sha1 = ?", sha).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// AddMap records the minimap png of the named map along with its
// fingerprint. Identical minimaps are only stored once. Adding a name that
// already exists replaces it.
func (db *DB) AddMap(name string, s *chk.Scenario, png []byte, f phash.Fingerprint) (int64, error) {
	id, err := db.addMinimap(s, png, f)
	if err != nil {
		return 0, err
	}
	if _, err := db.db.Exec("INSERT OR REPLACE INTO map (name, minimap_id) VALUES (?, ?)", name, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Minimap returns the stored minimap of the named map, or nil if there is no
// such map.
func (db *DB) Minimap(name string) ([]byte, error) {
	var png []byte
	switch err := db.db.QueryRow("SELECT i.png FROM map AS m JOIN minimap AS i ON m.minimap_id = i.id WHERE m.name = ?", name).Scan(&png); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return png, nil
	default:
		return nil, err
	}
}

type entry struct {
	Match
	minimap     int64
	fingerprint phash.Fingerprint
}

func (db *DB) entries() ([]entry, error) {
	rows, err := db.db.Query("SELECT m.name, i.id, i.era, i.width, i.height, i.phash FROM map AS m JOIN minimap AS i ON m.minimap_id = i.id ORDER BY m.name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var (
			e    entry
			hash []byte
		)
		if err := rows.Scan(&e.Name, &e.minimap, &e.Era, &e.Width, &e.Height, &hash); err != nil {
			return nil, err
		}
		if len(hash) != phash.Size {
			return nil, fmt.Errorf("minimap: fingerprint of %q is %d bytes", e.Name, len(hash))
		}
		copy(e.fingerprint[:], hash)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// FindSimilar returns the maps whose fingerprint is within maxDistance bits
// of f, closest first.
func (db *DB) FindSimilar(f phash.Fingerprint, maxDistance int) ([]Match, error) {
	entries, err := db.entries()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, e := range entries {
		if d := f.Distance(e.fingerprint); d <= maxDistance {
			e.Distance = d
			matches = append(matches, e.Match)
		}
	}

	// Entries are already in name order
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })

	return matches, nil
}

// Duplicates returns each pair of maps whose fingerprints are within
// maxDistance bits of each other, closest first. Maps that share an identical
// minimap are always paired.
func (db *DB) Duplicates(maxDistance int) ([]Pair, error) {
	entries, err := db.entries()
	if err != nil {
		return nil, err
	}

	var pairs []Pair
	for i, a := range entries {
		for _, b := range entries[i+1:] {
			d := a.fingerprint.Distance(b.fingerprint)
			if a.minimap == b.minimap {
				d = 0
			}
			if d <= maxDistance {
				pairs = append(pairs, Pair{a.Name, b.Name, d})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Distance < pairs[j].Distance })

	return pairs, nil
}
