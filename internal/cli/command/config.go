package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/cli/config"
	"github.com/yndnr/snapetl-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	_, env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()
	// Nested sections do not fit a flat table.
	if env.Format == output.FormatTable {
		env.Format = output.FormatYAML
	}
	return env.print(env.Stdout, config.Sanitize(env.Config))
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("config")
	}
	if path == "" {
		return fmt.Errorf("config validate: no FILE given")
	}
	if _, err := config.Load(path, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
	return nil
}
