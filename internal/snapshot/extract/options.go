package extract

import (
	"github.com/yndnr/snapetl-go/internal/telemetry/logger"
)

const (
	// DefaultMaxManifestBytes bounds the manifest entry read into memory.
	DefaultMaxManifestBytes = 1 << 30
	// DefaultMaxSegmentBytes bounds a single segment read into memory.
	DefaultMaxSegmentBytes = 16 << 30
)

type options struct {
	log              logger.Logger
	observer         Observer
	maxManifestBytes int64
	maxSegmentBytes  int64
}

func defaultOptions() options {
	return options{
		log:              logger.Nop(),
		observer:         nopObserver{},
		maxManifestBytes: DefaultMaxManifestBytes,
		maxSegmentBytes:  DefaultMaxSegmentBytes,
	}
}

// Option configures an Extractor.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithMaxManifestBytes caps the manifest size. Values <= 0 keep the default.
func WithMaxManifestBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxManifestBytes = n
		}
	}
}

// WithMaxSegmentBytes caps the size of a buffered segment. Values <= 0 keep
// the default.
func WithMaxSegmentBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSegmentBytes = n
		}
	}
}
