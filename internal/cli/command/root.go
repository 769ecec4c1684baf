package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "snapetl",
		Usage:                "Extract accounts from validator snapshot archives",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			ExtractCommand(),
			ManifestCommand(),
			UnpackCommand(),
			ConfigCommand(),
		},
		Metadata: map[string]any{},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"SNAPETL_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (e.g., :9102)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Report format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// flagKeys maps flags that override configuration to their config path.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-addr": "metrics.addr",
	"workers":      "extract.workers",
	"scratch":      "extract.scratch_dir",
	"keep-scratch": "extract.keep_scratch",
	"http-timeout": "source.http_timeout",
	"proxy":        "source.proxy",
	"ca-file":      "source.ca_file",
}

// sourceFlags are shared by the commands that read an archive.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "http-timeout",
			Usage: "Bound the download of a remote archive (0 = no limit)",
		},
		&cli.StringFlag{
			Name:  "proxy",
			Usage: "HTTP proxy URL for remote archives",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "Trust the CA certificates in this PEM file or directory for https sources",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a progress bar on stderr",
		},
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
