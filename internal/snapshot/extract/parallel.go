package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
	"github.com/yndnr/snapetl-go/internal/telemetry/metric"
)

// errAggregatorDone tells a worker that its batch was not (fully) consumed.
var errAggregatorDone = errors.New("extract: aggregator stopped")

// batch carries every record of one segment from a worker to the aggregator.
// Views alias the worker's mapping, which stays open until ack is signalled.
type batch struct {
	seg     UnpackedSegment
	views   []domain.AccountView
	walkErr error
	elapsed time.Duration
	ack     chan error
}

// Run walks all live segments with up to workers goroutines. A value < 1
// uses GOMAXPROCS.
//
// Sink callbacks are made from the calling goroutine only. Accounts of one
// segment are delivered together, followed by OnSegmentDone; segment order
// is unspecified.
func (u *Unpacked) Run(ctx context.Context, sink Sink, workers int) (*Stats, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()
	m := u.Manifest
	stats := &Stats{
		State:           StateStreaming,
		VersionText:     readVersionFile(u.Dir),
		ManifestVersion: m.Version.String(),
		ManifestSlot:    m.Slot(),
		IndexedSegments: m.Storage.Len(),
	}
	u.opts.observer.ObserveManifest(m.Slot())

	rn := &run{x: &Extractor{opts: u.opts}, sink: sink, stats: stats}
	if mr, ok := sink.(ManifestReceiver); ok {
		if err := mr.OnManifest(m); err != nil {
			if errors.Is(err, ErrStop) {
				stats.State = StateDone
				stats.Stopped = true
				return stats, nil
			}
			stats.State = StateFailed
			return stats, fmt.Errorf("sink: %w", err)
		}
	}
	for _, k := range u.Orphans {
		stats.SegmentsSkipped++
		u.opts.observer.ObserveSegment(metric.ResultSkipped, 0, 0, 0)
		sink.OnSegmentSkipped(k.Slot, k.ID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	tasks := make(chan UnpackedSegment)
	results := make(chan *batch, workers)

	g.Go(func() error {
		defer close(tasks)
		for _, s := range u.Segments {
			select {
			case tasks <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for s := range tasks {
				if err := walkSegment(gctx, s, results); err != nil {
					return err
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	aggErr := rn.aggregate(ctx, results, cancel)
	groupErr := g.Wait()
	stats.Elapsed = time.Since(start)

	err := aggErr
	if err == nil && groupErr != nil && !errors.Is(groupErr, errAggregatorDone) {
		err = groupErr
	}
	switch {
	case err == nil:
		stats.State = StateDone
	case errors.Is(err, errStopped):
		stats.State = StateDone
		stats.Stopped = true
		err = nil
	default:
		stats.State = StateFailed
		rn.fail(err)
		return stats, err
	}

	u.opts.log.Info("parallel extraction finished",
		"slot", stats.ManifestSlot,
		"workers", workers,
		"accounts", stats.Accounts,
		"segments_parsed", stats.SegmentsParsed,
		"segments_truncated", stats.SegmentsTrunc,
		"stopped", stats.Stopped,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// aggregate delivers batches to the sink until results is closed. After the
// first error it cancels the workers and keeps draining so that every batch
// is acknowledged and its mapping released.
func (rn *run) aggregate(ctx context.Context, results <-chan *batch, cancel context.CancelFunc) error {
	var runErr error
	for b := range results {
		if runErr == nil {
			if err := ctx.Err(); err != nil {
				runErr = err
			}
		}
		if runErr != nil {
			b.ack <- errAggregatorDone
			continue
		}
		runErr = rn.deliverBatch(b)
		if runErr != nil {
			cancel()
			b.ack <- errAggregatorDone
			continue
		}
		b.ack <- nil
	}
	return runErr
}

func (rn *run) deliverBatch(b *batch) error {
	var n int
	var err error
	for i := range b.views {
		if serr := rn.sink.OnAccount(&b.views[i]); serr != nil {
			if errors.Is(serr, ErrStop) {
				n++
				err = errStopped
			} else {
				err = fmt.Errorf("sink: %w", serr)
			}
			break
		}
		n++
	}
	rn.stats.Accounts += uint64(n)
	if err != nil {
		return err
	}

	result, err := rn.finishSegment(b.seg.Slot, b.seg.ID, n, b.walkErr)
	if result != "" {
		rn.x.opts.observer.ObserveSegment(result, b.seg.Length, n, b.elapsed)
		rn.stats.SegmentBytes += b.seg.Length
	}
	return err
}

// walkSegment maps one segment, sends its records to the aggregator and
// waits for the acknowledgement before unmapping.
func walkSegment(ctx context.Context, s UnpackedSegment, results chan<- *batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seg, err := appendvec.MapFile(s.Path)
	if err != nil {
		return domain.ErrIO.WithDetails(s.Path).WithCause(err)
	}
	defer seg.Close()

	start := time.Now()
	b := &batch{seg: s, ack: make(chan error, 1)}
	r := seg.Reader(s.Length).WithSegment(s.Slot, s.ID)
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.walkErr = err
			break
		}
		b.views = append(b.views, *v)
	}
	b.elapsed = time.Since(start)

	select {
	case results <- b:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-b.ack
}
