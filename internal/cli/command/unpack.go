package command

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
)

// UnpackCommand returns the unpack command.
func UnpackCommand() *cli.Command {
	return &cli.Command{
		Name:      "unpack",
		Usage:     "Write the manifest and live segments of an archive to a directory",
		ArgsUsage: "SOURCE DIR",
		Description: "The directory can be passed to 'snapetl extract' later, which then\n" +
			"maps the segments instead of streaming them.",
		Flags:  sourceFlags(),
		Action: unpackAction,
	}
}

func unpackAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("unpack: expected SOURCE and DIR arguments")
	}
	location, dir := c.Args().Get(0), c.Args().Get(1)

	ctx, env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	src, err := env.openSource(ctx, location)
	if err != nil {
		return err
	}
	defer src.Close()
	stopProgress := env.watchProgress(ctx, src)

	stats, err := extract.Unpack(ctx, src.Reader(), dir, env.extractOptions()...)
	stopProgress()
	if err != nil {
		return err
	}
	env.Log.Info("archive unpacked", "dir", dir, "segments", stats.Written, "bytes", stats.Bytes)
	return env.print(env.Stdout, stats)
}
