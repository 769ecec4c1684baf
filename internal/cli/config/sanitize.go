package config

import "github.com/yndnr/snapetl-go/internal/telemetry/logger"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	if sanitized.Source.Proxy != "" {
		sanitized.Source.Proxy = logger.RedactURL(sanitized.Source.Proxy)
	}
	return &sanitized
}
