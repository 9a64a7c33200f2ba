package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bodgit/minimap"
	"github.com/bodgit/minimap/phash"
	"github.com/bodgit/minimap/render"
	"github.com/bodgit/minimap/tileset"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const (
	defaultDB       = "minimap.db"
	defaultDistance = 8
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	if !c.Bool("verbose") {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// newMinimap loads the tilesets and, if withDB is set, opens the database.
// The returned function releases anything that was opened.
func newMinimap(c *cli.Context, withDB bool) (*minimap.Minimap, func(), error) {
	logger := newLogger(c)

	dir := c.String("tilesets")
	if dir == "" {
		return nil, nil, fmt.Errorf("no tileset directory, use --tilesets or MINIMAP_TILESETS")
	}

	reg, err := tileset.LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().Str("directory", dir).Msg("Loaded tilesets")

	if !withDB {
		return minimap.New(nil, reg, logger), func() {}, nil
	}

	db, err := minimap.NewDB(c.String("db"))
	if err != nil {
		return nil, nil, err
	}

	return minimap.New(db, reg, logger), func() { db.Close() }, nil
}

func needArgs(c *cli.Context, n int) {
	if c.NArg() < n {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
}

func renderAction(c *cli.Context) error {
	needArgs(c, 2)

	m, done, err := newMinimap(c, false)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	b, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var p []byte
	if c.Bool("raw") {
		p, err = m.Render(render.Tiles(b), c.Int("width"), c.Int("height"), tileset.Era(c.Uint("era")))
	} else {
		p, _, err = m.RenderScenario(b)
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := os.WriteFile(c.Args().Get(1), p, 0644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func hashAction(c *cli.Context) error {
	needArgs(c, 1)

	for _, file := range c.Args().Slice() {
		b, err := os.ReadFile(file)
		if err != nil {
			return cli.Exit(err, 1)
		}

		f, err := phash.Hash(b)
		if err != nil {
			return cli.Exit(fmt.Errorf("%s: %w", file, err), 1)
		}

		fmt.Printf("%s  %s\n", f, file)
	}

	return nil
}

func previewAction(c *cli.Context) error {
	needArgs(c, 2)

	m, done, err := newMinimap(c, false)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	b, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	if err := m.Preview(f, b, &render.PreviewOptions{
		Scale:  c.Int("scale"),
		Colors: c.Int("colors"),
	}); err != nil {
		return cli.Exit(err, 1)
	}

	return f.Close()
}

func scanAction(c *cli.Context) error {
	needArgs(c, 1)

	m, done, err := newMinimap(c, true)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if err := m.Scan(ctx, c.Args().First()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func similarAction(c *cli.Context) error {
	needArgs(c, 1)

	m, done, err := newMinimap(c, true)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	b, err := os.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	matches, err := m.Similar(b, c.Int("distance"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, match := range matches {
		fmt.Printf("%3d  %-14s %4dx%-4d  %s\n", match.Distance, tileset.Era(match.Era), match.Width, match.Height, match.Name)
	}

	return nil
}

func exportAction(c *cli.Context) error {
	needArgs(c, 2)

	db, err := minimap.NewDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	p, err := db.Minimap(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	if p == nil {
		return cli.Exit(fmt.Sprintf("no map named %q", c.Args().Get(0)), 1)
	}

	if err := os.WriteFile(c.Args().Get(1), p, 0644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func duplicatesAction(c *cli.Context) error {
	m, done, err := newMinimap(c, true)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	pairs, err := m.Duplicates(c.Int("distance"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, p := range pairs {
		fmt.Printf("%3d  %s  %s\n", p.Distance, p.A, p.B)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "minimap"
	app.Usage = "Minimap rendering and duplicate map detection utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	distanceFlag := &cli.IntFlag{
		Name:    "distance",
		Aliases: []string{"d"},
		Value:   defaultDistance,
		Usage:   "maximum number of differing fingerprint bits",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"MINIMAP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.StringFlag{
			Name:    "tilesets",
			EnvVars: []string{"MINIMAP_TILESETS"},
			Usage:   "directory containing the LST files 0 to 7",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "render",
			Usage:     "Render the minimap of a map as a PNG",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "raw",
					Usage: "FILE is raw little-endian tile data rather than scenario data",
				},
				&cli.IntFlag{
					Name:  "width",
					Value: 128,
					Usage: "width in tiles of raw tile data",
				},
				&cli.IntFlag{
					Name:  "height",
					Value: 128,
					Usage: "height in tiles of raw tile data",
				},
				&cli.UintFlag{
					Name:  "era",
					Usage: "tileset of raw tile data",
				},
			},
			Action: renderAction,
		},
		{
			Name:      "hash",
			Usage:     "Print the perceptual fingerprint of PNG minimaps",
			ArgsUsage: "FILE...",
			Action:    hashAction,
		},
		{
			Name:      "preview",
			Usage:     "Render an enlarged minimap of a map as a GIF",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: render.DefaultPreviewOptions.Scale,
					Usage: "size in pixels of each tile",
				},
				&cli.IntFlag{
					Name:  "colors",
					Value: render.DefaultPreviewOptions.Colors,
					Usage: "maximum number of colors",
				},
			},
			Action: previewAction,
		},
		{
			Name:      "scan",
			Usage:     "Scan filesystem and add maps to the database",
			ArgsUsage: "DIRECTORY",
			Action:    scanAction,
		},
		{
			Name:      "similar",
			Usage:     "List maps in the database that look like a map or PNG",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{distanceFlag},
			Action:    similarAction,
		},
		{
			Name:      "export",
			Usage:     "Write the stored minimap of a map in the database as a PNG",
			ArgsUsage: "NAME OUTPUT",
			Action:    exportAction,
		},
		{
			Name:   "duplicates",
			Usage:  "List pairs of maps in the database that look alike",
			Flags:  []cli.Flag{distanceFlag},
			Action: duplicatesAction,
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
