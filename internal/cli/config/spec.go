package config

import "time"

// Config is the root configuration for snapetl.
type Config struct {
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Extract ExtractSection `koanf:"extract" json:"extract" yaml:"extract"`
	Source  SourceSection  `koanf:"source" json:"source" yaml:"source"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Badger  BadgerSection  `koanf:"badger" json:"badger" yaml:"badger"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`    // debug, info, warn, error
	Format string `koanf:"format" json:"format" yaml:"format"` // text, json
}

// ExtractSection configures the extraction run.
type ExtractSection struct {
	// Workers > 1 unpacks the archive to ScratchDir and walks segments in
	// parallel.
	Workers          int    `koanf:"workers" json:"workers" yaml:"workers"`
	ScratchDir       string `koanf:"scratch_dir" json:"scratch_dir" yaml:"scratch_dir"`
	KeepScratch      bool   `koanf:"keep_scratch" json:"keep_scratch" yaml:"keep_scratch"`
	MaxManifestBytes int64  `koanf:"max_manifest_bytes" json:"max_manifest_bytes" yaml:"max_manifest_bytes"`
	MaxSegmentBytes  int64  `koanf:"max_segment_bytes" json:"max_segment_bytes" yaml:"max_segment_bytes"`
}

// SourceSection configures archive retrieval.
type SourceSection struct {
	HTTPTimeout time.Duration `koanf:"http_timeout" json:"http_timeout" yaml:"http_timeout"`
	// Proxy is an optional HTTP proxy URL for remote archives.
	Proxy string `koanf:"proxy" json:"proxy" yaml:"proxy"`
	// CAFile adds a PEM bundle, or a directory of them, to the system roots.
	CAFile string `koanf:"ca_file" json:"ca_file" yaml:"ca_file"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr enables /metrics on this address when set.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}

// BadgerSection tunes the Badger index sink.
type BadgerSection struct {
	SyncWrites bool `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
	CacheMB    int  `koanf:"cache_mb" json:"cache_mb" yaml:"cache_mb"`
}
