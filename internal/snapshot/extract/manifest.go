package extract

import (
	"context"
	"io"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
)

// manifestOnly stops the run as soon as the manifest is decoded.
type manifestOnly struct {
	m *manifest.Manifest
}

func (s *manifestOnly) OnAccount(*domain.AccountView) error { return ErrStop }
func (s *manifestOnly) OnSegmentSkipped(uint64, uint64)     {}
func (s *manifestOnly) OnError(error) error                 { return nil }

func (s *manifestOnly) OnManifest(m *manifest.Manifest) error {
	s.m = m
	return ErrStop
}

// ReadManifest reads r up to the manifest entry and returns it together with
// the partial run statistics. Segments are never read.
func ReadManifest(ctx context.Context, r io.Reader, opts ...Option) (*manifest.Manifest, *Stats, error) {
	sink := &manifestOnly{}
	stats, err := New(opts...).Run(ctx, r, sink)
	if err != nil {
		return nil, stats, err
	}
	if sink.m == nil {
		return nil, stats, domain.ErrMissingManifest
	}
	return sink.m, stats, nil
}
