package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
	"github.com/yndnr/snapetl-go/internal/snapshot/archive"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
	"github.com/yndnr/snapetl-go/internal/telemetry/metric"
)

// State is the extractor's position in the archive.
type State int

const (
	StateAwaitingManifest State = iota
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingManifest:
		return "awaiting_manifest"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats summarises a run.
type Stats struct {
	State           State         `json:"state" yaml:"state"`
	VersionText     string        `json:"version_text" yaml:"version_text"`
	ManifestVersion string        `json:"manifest_version" yaml:"manifest_version"`
	ManifestSlot    uint64        `json:"manifest_slot" yaml:"manifest_slot"`
	IndexedSegments int           `json:"indexed_segments" yaml:"indexed_segments"`
	Entries         int           `json:"entries" yaml:"entries"`
	SegmentsParsed  int           `json:"segments_parsed" yaml:"segments_parsed"`
	SegmentsSkipped int           `json:"segments_skipped" yaml:"segments_skipped"`
	SegmentsTrunc   int           `json:"segments_truncated" yaml:"segments_truncated"`
	Accounts        uint64        `json:"accounts" yaml:"accounts"`
	SegmentBytes    uint64        `json:"segment_bytes" yaml:"segment_bytes"`
	Stopped         bool          `json:"stopped" yaml:"stopped"`
	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
}

// MissingSegments returns how many indexed segments were never seen.
func (s *Stats) MissingSegments() int {
	n := s.IndexedSegments - s.SegmentsParsed - s.SegmentsTrunc
	if n < 0 {
		return 0
	}
	return n
}

// Extractor runs the sequential extraction.
type Extractor struct {
	opts options
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{opts: o}
}

const maxVersionBytes = 64

// errStopped marks a run ended by ErrStop.
var errStopped = errors.New("extract: stopped")

// run is the state of one Run call.
type run struct {
	x        *Extractor
	sink     Sink
	stats    *Stats
	manifest *manifest.Manifest
	progress *rate.Limiter
}

// Run walks the archive in r and delivers every live account to sink.
//
// It returns the run statistics together with the first fatal error, if
// any. A run ended by ErrStop returns a nil error and Stats.Stopped.
func (x *Extractor) Run(ctx context.Context, r io.Reader, sink Sink) (*Stats, error) {
	start := time.Now()
	rn := &run{
		x:        x,
		sink:     sink,
		stats:    &Stats{State: StateAwaitingManifest},
		progress: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	err := rn.walk(ctx, archive.NewWalker(r))
	rn.stats.Elapsed = time.Since(start)

	switch {
	case err == nil:
		rn.stats.State = StateDone
	case errors.Is(err, errStopped):
		rn.stats.State = StateDone
		rn.stats.Stopped = true
		err = nil
	default:
		rn.stats.State = StateFailed
		rn.fail(err)
		return rn.stats, err
	}

	x.opts.log.Info("extraction finished",
		"slot", rn.stats.ManifestSlot,
		"accounts", rn.stats.Accounts,
		"segments_parsed", rn.stats.SegmentsParsed,
		"segments_skipped", rn.stats.SegmentsSkipped,
		"segments_truncated", rn.stats.SegmentsTrunc,
		"stopped", rn.stats.Stopped,
		"elapsed", rn.stats.Elapsed,
	)
	if n := rn.stats.MissingSegments(); n > 0 && !rn.stats.Stopped {
		x.opts.log.Warn("indexed segments missing from archive", "count", n)
	}
	return rn.stats, nil
}

func (rn *run) fail(err error) {
	if domain.IsDomainError(err, "") {
		_ = rn.sink.OnError(err)
	}
	rn.x.opts.log.Error("extraction failed", "state", rn.stats.State, "kind", domain.Kind(err), "error", err)
}

func (rn *run) walk(ctx context.Context, w *archive.Walker) error {
	log := rn.x.opts.log
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rn.stats.Entries++

		if archive.IsVersionPath(e.Path) {
			if err := rn.readVersion(e); err != nil {
				return err
			}
			continue
		}
		if slot, ok := archive.ParseManifestPath(e.Path); ok {
			if rn.manifest != nil {
				log.Warn("ignoring additional manifest entry", "path", e.Path)
				continue
			}
			if err := rn.readManifest(e, slot); err != nil {
				return err
			}
			continue
		}
		if slot, id, ok := archive.ParseSegmentPath(e.Path); ok {
			// Validators write snapshots/ before accounts/. Without the
			// storage index every later segment would be dropped unread.
			if rn.manifest == nil {
				return domain.ErrMalformedArchive.WithDetailsf("segment %s precedes manifest", e.Path)
			}
			if err := rn.segment(ctx, e, slot, id); err != nil {
				return err
			}
			continue
		}
		log.Debug("skipping entry", "path", e.Path, "size", e.Size)
	}

	if rn.manifest == nil {
		return domain.ErrMissingManifest.WithDetailsf("archive ended after %d entries", rn.stats.Entries)
	}
	return nil
}

func (rn *run) readVersion(e *archive.Entry) error {
	if e.Size > maxVersionBytes {
		rn.x.opts.log.Warn("ignoring oversized version entry", "size", e.Size)
		return nil
	}
	b, err := e.ReadAll(maxVersionBytes)
	if err != nil {
		return err
	}
	rn.stats.VersionText = strings.TrimSpace(string(b))
	rn.checkVersion()
	return nil
}

func (rn *run) checkVersion() {
	if rn.manifest == nil || rn.stats.VersionText == "" {
		return
	}
	if v, ok := manifest.ParseVersion(rn.stats.VersionText); !ok || v != rn.manifest.Version {
		rn.x.opts.log.Warn("version entry does not match manifest layout",
			"version_entry", rn.stats.VersionText,
			"manifest_version", rn.manifest.Version.String())
	}
}

func (rn *run) readManifest(e *archive.Entry, slot uint64) error {
	b, err := readManifestEntry(e, rn.x.opts.maxManifestBytes)
	if err != nil {
		return err
	}
	m, err := manifest.Decode(b)
	if err != nil {
		return fmt.Errorf("manifest %s: %w", e.Path, err)
	}
	if m.Slot() != slot {
		rn.x.opts.log.Warn("manifest path slot differs from bank slot", "path", e.Path, "bank_slot", m.Slot())
	}
	return rn.accept(m)
}

// readManifestEntry reads a manifest entry. An entry over limit fails the
// same way as an oversized manifest file in an unpacked directory.
func readManifestEntry(e *archive.Entry, limit int64) ([]byte, error) {
	if e.Size > limit {
		return nil, domain.ErrDecodeSkew.WithDetailsf("%s: %d bytes exceeds limit %d", e.Path, e.Size, limit)
	}
	return e.ReadAll(limit)
}

// accept installs the manifest and moves the run to streaming.
func (rn *run) accept(m *manifest.Manifest) error {
	rn.manifest = m
	rn.stats.State = StateStreaming
	rn.stats.ManifestSlot = m.Slot()
	rn.stats.ManifestVersion = m.Version.String()
	rn.stats.IndexedSegments = m.Storage.Len()
	rn.x.opts.observer.ObserveManifest(m.Slot())
	rn.x.opts.log.Info("manifest decoded",
		"slot", m.Slot(),
		"version", m.Version.String(),
		"segments", m.Storage.Len(),
		"storage_bytes", m.Storage.TotalBytes(),
	)
	rn.checkVersion()
	if mr, ok := rn.sink.(ManifestReceiver); ok {
		if err := mr.OnManifest(m); err != nil {
			if errors.Is(err, ErrStop) {
				return errStopped
			}
			return fmt.Errorf("sink: %w", err)
		}
	}
	return nil
}

func (rn *run) segment(ctx context.Context, e *archive.Entry, slot, id uint64) error {
	declared, ok := rn.manifest.Storage.Lookup(slot, id)
	if !ok {
		rn.stats.SegmentsSkipped++
		rn.x.opts.observer.ObserveSegment(metric.ResultSkipped, 0, 0, 0)
		rn.sink.OnSegmentSkipped(slot, id)
		return nil
	}

	// Bytes past the declared length are padding and are never read.
	n := e.Size
	if declared < uint64(n) {
		n = int64(declared)
	}
	if n > rn.x.opts.maxSegmentBytes {
		return domain.ErrMalformedArchive.WithDetailsf("segment %s: %d bytes exceeds limit %d", e.Path, n, rn.x.opts.maxSegmentBytes)
	}

	start := time.Now()
	seg, err := appendvec.ReadSegment(e, n)
	if err != nil {
		if domain.IsDomainError(err, "") {
			return err
		}
		return domain.ErrMalformedArchive.WithDetails(e.Path).WithCause(err)
	}
	defer seg.Close()

	accounts, werr := rn.deliver(ctx, seg.Reader(declared).WithSegment(slot, id))
	rn.stats.Accounts += uint64(accounts)
	result, err := rn.finishSegment(slot, id, accounts, werr)
	if result != "" {
		rn.x.opts.observer.ObserveSegment(result, declared, accounts, time.Since(start))
		rn.stats.SegmentBytes += declared
	}
	if err != nil {
		return err
	}

	if rn.progress.Allow() {
		rn.x.opts.log.Info("extract progress",
			"accounts", rn.stats.Accounts,
			"segments", rn.stats.SegmentsParsed+rn.stats.SegmentsTrunc,
			"of", rn.stats.IndexedSegments)
	}
	return nil
}

// deliver hands every record of r to the sink. It returns the number of
// accounts delivered and the error that ended the walk, if any.
func (rn *run) deliver(ctx context.Context, r *appendvec.Reader) (int, error) {
	var n int
	for {
		if n&255 == 255 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		v, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := rn.sink.OnAccount(v); err != nil {
			if errors.Is(err, ErrStop) {
				return n + 1, errStopped
			}
			return n, fmt.Errorf("sink: %w", err)
		}
		n++
	}
}

// finishSegment classifies the outcome of a segment walk, notifies the sink
// and returns the metric result label ("" when the run is aborting) and the
// error that should end the run.
func (rn *run) finishSegment(slot, id uint64, accounts int, werr error) (string, error) {
	switch {
	case werr == nil:
		rn.stats.SegmentsParsed++
		rn.complete(slot, id, accounts)
		return metric.ResultParsed, nil
	case domain.IsRecoverable(werr):
		rn.stats.SegmentsTrunc++
		rn.x.opts.log.Warn("segment truncated", "slot", slot, "id", id, "accounts", accounts, "error", werr)
		rn.complete(slot, id, accounts)
		if err := rn.sink.OnError(werr); err != nil {
			return metric.ResultTruncated, fmt.Errorf("sink aborted after truncated segment %d.%d: %w", slot, id, err)
		}
		return metric.ResultTruncated, nil
	default:
		return "", werr
	}
}

func (rn *run) complete(slot, id uint64, accounts int) {
	if sc, ok := rn.sink.(SegmentCompleter); ok {
		sc.OnSegmentDone(slot, id, accounts)
	}
}
