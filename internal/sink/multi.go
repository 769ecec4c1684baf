package sink

import (
	"errors"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
)

// Multi delivers every callback to each of its sinks in order.
//
// OnAccount stops at the first sink that returns an error, including
// extract.ErrStop, so later sinks do not see that account.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks into one.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Len returns the number of combined sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// OnAccount implements extract.Sink.
func (m *Multi) OnAccount(v *domain.AccountView) error {
	for _, s := range m.sinks {
		if err := s.OnAccount(v); err != nil {
			return err
		}
	}
	return nil
}

// OnSegmentSkipped implements extract.Sink.
func (m *Multi) OnSegmentSkipped(slot, id uint64) {
	for _, s := range m.sinks {
		s.OnSegmentSkipped(slot, id)
	}
}

// OnError implements extract.Sink. Every sink sees the error; any refusal
// aborts the run.
func (m *Multi) OnError(err error) error {
	var errs []error
	for _, s := range m.sinks {
		if serr := s.OnError(err); serr != nil {
			errs = append(errs, serr)
		}
	}
	return errors.Join(errs...)
}

// OnSegmentDone implements extract.SegmentCompleter.
func (m *Multi) OnSegmentDone(slot, id uint64, accounts int) {
	for _, s := range m.sinks {
		if sc, ok := s.(extract.SegmentCompleter); ok {
			sc.OnSegmentDone(slot, id, accounts)
		}
	}
}

// OnManifest implements extract.ManifestReceiver.
func (m *Multi) OnManifest(mf *manifest.Manifest) error {
	for _, s := range m.sinks {
		if mr, ok := s.(extract.ManifestReceiver); ok {
			if err := mr.OnManifest(mf); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink in reverse order.
func (m *Multi) Close() error {
	var errs []error
	for i := len(m.sinks) - 1; i >= 0; i-- {
		if err := m.sinks[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
