// Package command provides the CLI command definitions for snapetl.
//
// It uses urfave/cli/v2 for command parsing. Every command builds an Env
// from the layered configuration (defaults, YAML file, SNAPETL_* environment,
// flags), runs under a signal-aware context and releases its outputs through
// the shutdown handler.
package command
