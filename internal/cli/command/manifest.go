package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
	"github.com/yndnr/snapetl-go/internal/snapshot/source"
)

// ManifestCommand returns the manifest command.
func ManifestCommand() *cli.Command {
	return &cli.Command{
		Name:      "manifest",
		Aliases:   []string{"info"},
		Usage:     "Decode and print the snapshot manifest",
		ArgsUsage: "SOURCE",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "segments",
				Usage: "List the indexed storage segments instead of the summary",
			},
		}, sourceFlags()...),
		Action: manifestAction,
	}
}

func manifestAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("manifest: expected exactly one SOURCE argument")
	}

	ctx, env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	m, err := loadManifest(ctx, env, c.Args().First())
	if err != nil {
		return err
	}
	if c.Bool("segments") {
		return env.print(env.Stdout, m.Storage.Segments())
	}
	return env.print(env.Stdout, m.Summary())
}

// loadManifest reads the manifest of an archive or an unpacked directory.
// Archives are read only up to the manifest entry.
func loadManifest(ctx context.Context, env *Env, location string) (*manifest.Manifest, error) {
	if source.IsDir(location) {
		u, err := extract.OpenUnpacked(location, env.extractOptions()...)
		if err != nil {
			return nil, err
		}
		return u.Manifest, nil
	}

	src, err := env.openSource(ctx, location)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	stopProgress := env.watchProgress(ctx, src)
	defer stopProgress()

	m, _, err := extract.ReadManifest(ctx, src.Reader(), env.extractOptions()...)
	return m, err
}
