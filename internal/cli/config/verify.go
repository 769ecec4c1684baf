package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/yndnr/snapetl-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if err := verifyExtract(&cfg.Extract); err != nil {
		return err
	}
	if err := verifySource(&cfg.Source); err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}
	if cfg.Badger.CacheMB < 0 {
		return errors.New("badger.cache_mb must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}

func verifyExtract(cfg *ExtractSection) error {
	if cfg.Workers < 0 {
		return errors.New("extract.workers must not be negative")
	}
	if cfg.Workers > 1 && cfg.ScratchDir == "" {
		return errors.New("extract.scratch_dir is required when extract.workers > 1")
	}
	if cfg.MaxManifestBytes <= 0 {
		return errors.New("extract.max_manifest_bytes must be positive")
	}
	if cfg.MaxSegmentBytes <= 0 {
		return errors.New("extract.max_segment_bytes must be positive")
	}
	return nil
}

func verifySource(cfg *SourceSection) error {
	if cfg.HTTPTimeout < 0 {
		return errors.New("source.http_timeout must not be negative")
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil || u.Host == "" {
			return fmt.Errorf("source.proxy: invalid URL %q", logger.RedactURL(cfg.Proxy))
		}
	}
	return nil
}
