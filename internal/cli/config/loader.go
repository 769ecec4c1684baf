package config

import (
	"github.com/yndnr/snapetl-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional YAML file at
// path, SNAPETL_* environment variables and flag overrides keyed by dotted
// config path. The result is verified before it is returned.
func Load(path string, flags map[string]any) (*Config, error) {
	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithFlags(flags),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
