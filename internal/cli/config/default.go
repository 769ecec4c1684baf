package config

import (
	"os"
	"time"
)

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultWorkers          = 1
	DefaultMaxManifestBytes = 1 << 30
	DefaultMaxSegmentBytes  = 16 << 30

	DefaultHTTPTimeout = 30 * time.Second
	DefaultBadgerCache = 256
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Extract: ExtractSection{
			Workers:          DefaultWorkers,
			ScratchDir:       os.TempDir(),
			MaxManifestBytes: DefaultMaxManifestBytes,
			MaxSegmentBytes:  DefaultMaxSegmentBytes,
		},
		Source: SourceSection{
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Badger: BadgerSection{
			CacheMB: DefaultBadgerCache,
		},
	}
}
