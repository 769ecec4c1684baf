// Package confloader provides configuration loading mechanism.
//
// This package implements a layered configuration loader on top of koanf.
// Values come from a YAML file, SNAPETL_* environment variables and a map
// of command-line flag overrides, and are unmarshaled into a typed struct
// that already holds the defaults.
//
// Priority (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Default values
package confloader
