// Package output provides output formatting for the snapetl CLI.
//
// This package handles all CLI output formatting:
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Table rendering with wide mode support
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
//   - progress.go: byte progress bar for archive reads
//
// Reports go to stdout; the progress bar writes to stderr so that piped
// CSV or tar output stays clean.
package output
