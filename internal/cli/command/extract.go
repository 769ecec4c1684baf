package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/cli/output"
	"github.com/yndnr/snapetl-go/internal/sink"
	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
	"github.com/yndnr/snapetl-go/internal/snapshot/source"
)

// ExtractCommand returns the extract command.
func ExtractCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Write pubkey,owner,data_len,lamports rows to FILE (- for stdout)",
		},
		&cli.StringFlag{
			Name:  "badger",
			Usage: "Build a Badger account and token index in DIR",
		},
		&cli.StringFlag{
			Name:  "programs",
			Usage: "Write executable programs as a tar of <pubkey>.so to FILE (- for stdout)",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Report per-owner account statistics",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of owners in the statistics report (0 = all)",
			Value: 20,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Parse segments with N workers; N > 1 unpacks the archive first",
		},
		&cli.StringFlag{
			Name:  "scratch",
			Usage: "Directory for the unpacked archive in parallel mode",
		},
		&cli.BoolFlag{
			Name:  "keep-scratch",
			Usage: "Keep the unpacked archive after a parallel run",
		},
	}
	return &cli.Command{
		Name:      "extract",
		Usage:     "Stream every live account of a snapshot into the selected outputs",
		ArgsUsage: "SOURCE",
		Description: "SOURCE is a snapshot archive path, - for stdin, an http(s) URL, or a\n" +
			"directory produced by 'snapetl unpack'. Archives may be plain tar or\n" +
			"zstd, gzip or bzip2 compressed.",
		Flags:  append(flags, sourceFlags()...),
		Action: extractAction,
	}
}

// extractReport is the structured result of an extract run.
type extractReport struct {
	Run    *extract.Stats    `json:"run" yaml:"run"`
	Owners []sink.OwnerStats `json:"owners,omitempty" yaml:"owners,omitempty"`
}

func extractAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("extract: expected exactly one SOURCE argument")
	}
	location := c.Args().First()

	ctx, env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	outs, err := openOutputs(c, env)
	if err != nil {
		return err
	}
	env.Shutdown.OnShutdown(func(context.Context) error {
		return outs.multi.Close()
	})

	stats, runErr := runExtract(ctx, env, location, outs.multi)
	if runErr == nil && outs.badger != nil {
		runErr = outs.badger.Commit()
	}
	closeErr := env.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	report := extractReport{Run: stats}
	if outs.stats != nil {
		report.Owners = outs.stats.Top(c.Int("top"))
	}
	return env.printReport(outs.reportWriter, report)
}

// runExtract dispatches between the streaming, parallel and unpacked
// directory paths.
func runExtract(ctx context.Context, env *Env, location string, s extract.Sink) (*extract.Stats, error) {
	opts := env.extractOptions()
	workers := env.Config.Extract.Workers

	if source.IsDir(location) {
		u, err := extract.OpenUnpacked(location, opts...)
		if err != nil {
			return nil, err
		}
		return u.Run(ctx, s, max(workers, 1))
	}

	src, err := env.openSource(ctx, location)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	stopProgress := env.watchProgress(ctx, src)
	defer stopProgress()

	if workers <= 1 {
		return extract.New(opts...).Run(ctx, src.Reader(), s)
	}
	return extractParallel(ctx, env, src.Reader(), s, workers)
}

// extractParallel unpacks the archive into a scratch directory and walks
// the segments with a worker pool.
func extractParallel(ctx context.Context, env *Env, r io.Reader, s extract.Sink, workers int) (*extract.Stats, error) {
	opts := env.extractOptions()
	scratch, err := os.MkdirTemp(env.Config.Extract.ScratchDir, "snapetl-")
	if err != nil {
		return nil, fmt.Errorf("scratch: %w", err)
	}
	if env.Config.Extract.KeepScratch {
		defer env.Log.Info("unpacked archive kept", "dir", scratch)
	} else {
		defer os.RemoveAll(scratch)
	}

	env.Log.Info("unpacking archive", "dir", scratch, "workers", workers)
	us, err := extract.Unpack(ctx, r, scratch, opts...)
	if err != nil {
		return nil, err
	}
	u, err := extract.OpenUnpacked(scratch, opts...)
	if err != nil {
		return nil, err
	}
	u.Orphans = append(u.Orphans, us.Skipped...)
	stats, err := u.Run(ctx, s, workers)
	if stats != nil {
		stats.Entries += us.Entries
	}
	return stats, err
}

// outputs holds the sinks selected on the command line.
type outputs struct {
	multi    *sink.Multi
	stats    *sink.Stats
	badger   *sink.Badger
	csv      *sink.CSV
	programs *sink.Programs

	// reportWriter receives the run report; stderr when an output owns stdout.
	reportWriter io.Writer
}

func openOutputs(c *cli.Context, env *Env) (_ *outputs, err error) {
	csvPath, programsPath := c.String("csv"), c.String("programs")
	if csvPath == "-" && programsPath == "-" {
		return nil, errors.New("extract: --csv and --programs cannot both write to stdout")
	}

	outs := &outputs{reportWriter: env.Stdout}
	var opened []sink.Sink
	defer func() {
		if err != nil {
			_ = sink.NewMulti(opened...).Close()
		}
	}()

	if csvPath != "" {
		w, err := outputWriter(csvPath, env)
		if err != nil {
			return nil, err
		}
		if csvPath == "-" {
			outs.reportWriter = env.Stderr
		}
		if outs.csv, err = sink.NewCSV(w); err != nil {
			return nil, err
		}
		opened = append(opened, outs.csv)
	}
	if programsPath != "" {
		w, err := outputWriter(programsPath, env)
		if err != nil {
			return nil, err
		}
		if programsPath == "-" {
			outs.reportWriter = env.Stderr
		}
		outs.programs = sink.NewPrograms(w, env.Log)
		opened = append(opened, outs.programs)
	}
	if dir := c.String("badger"); dir != "" {
		cfg := sink.BadgerConfig{
			SyncWrites: env.Config.Badger.SyncWrites,
			CacheMB:    env.Config.Badger.CacheMB,
		}
		b, err := sink.OpenBadger(dir, cfg, env.Log)
		if err != nil {
			return nil, err
		}
		outs.badger = b.RegisterMetrics(env.Metrics.Prometheus())
		opened = append(opened, outs.badger)
	}
	if c.Bool("stats") {
		outs.stats = sink.NewStats()
		opened = append(opened, outs.stats)
	}

	if len(opened) == 0 {
		return nil, errors.New("extract: no output selected (use --csv, --badger, --programs or --stats)")
	}
	outs.multi = sink.NewMulti(opened...)
	return outs, nil
}

// outputWriter opens path for writing; "-" is the command's stdout.
func outputWriter(path string, env *Env) (io.Writer, error) {
	if path == "-" {
		return env.Stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

// printReport writes the run report. The table format renders the run and
// the owner statistics as two tables.
func (e *Env) printReport(w io.Writer, r extractReport) error {
	if e.Format != output.FormatTable {
		return e.print(w, r)
	}
	if err := e.print(w, r.Run); err != nil {
		return err
	}
	if len(r.Owners) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return e.print(w, r.Owners)
}
