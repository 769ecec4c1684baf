// Package config provides the snapetl configuration.
//
// This package defines the run configuration:
//
//   - spec.go: Config struct and its sections (koanf tags)
//   - default.go: default values
//   - loader.go: layered loading through confloader
//   - verify.go: validation
//   - sanitize.go: masking for logs
//
// The configuration file is optional; SNAPETL_* environment variables and
// command-line flags override it.
package config
