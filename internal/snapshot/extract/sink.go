package extract

import (
	"errors"
	"time"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
)

// ErrStop may be returned by Sink.OnAccount to end the run early without error.
var ErrStop = errors.New("extract: stop requested")

// Sink receives the accounts of a snapshot.
//
// All methods are called from a single goroutine.
type Sink interface {
	// OnAccount receives one account. v and v.Data are only valid until
	// OnAccount returns. Returning ErrStop ends the run cleanly; any other
	// error aborts it.
	OnAccount(v *domain.AccountView) error

	// OnSegmentSkipped reports a segment that the manifest does not list.
	OnSegmentSkipped(slot, id uint64)

	// OnError is called for every error the extractor encounters. For
	// recoverable errors (see domain.IsRecoverable) returning nil continues
	// with the next segment; for all other errors the run aborts regardless.
	OnError(err error) error
}

// SegmentCompleter is implemented by sinks that want to know when every
// account of a segment has been delivered.
type SegmentCompleter interface {
	OnSegmentDone(slot, id uint64, accounts int)
}

// ManifestReceiver is implemented by sinks that want the decoded manifest
// before the first account. Returning ErrStop ends the run cleanly before
// any segment is read.
type ManifestReceiver interface {
	OnManifest(m *manifest.Manifest) error
}

// Observer receives run metrics. metric.Registry implements it.
type Observer interface {
	ObserveManifest(slot uint64)
	ObserveSegment(result string, declared uint64, accounts int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveManifest(uint64) {}
func (nopObserver) ObserveSegment(string, uint64, int, time.Duration) {}
