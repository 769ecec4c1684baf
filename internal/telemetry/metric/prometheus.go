package metric

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapetl"

// Segment results used as the "result" label.
const (
	ResultParsed    = "parsed"
	ResultSkipped   = "skipped"
	ResultTruncated = "truncated"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	AccountsTotal prometheus.Counter
	SegmentsTotal *prometheus.CounterVec
	SegmentBytes  prometheus.Counter
	ManifestSlot  prometheus.Gauge
	SegmentParse  prometheus.Histogram
}

// NewRegistry creates a registry with all snapetl metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		AccountsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "accounts_total",
			Help:      "Accounts delivered to the sink.",
		}),
		SegmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "segments_total",
			Help:      "Storage segments by result.",
		}, []string{"result"}),
		SegmentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "segment_bytes_total",
			Help:      "Declared bytes of parsed segments.",
		}),
		ManifestSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "manifest_slot",
			Help:      "Bank slot of the decoded manifest.",
		}),
		SegmentParse: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "segment_parse_seconds",
			Help:      "Time spent walking one segment, including sink callbacks.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}
	r.registry.MustRegister(
		r.AccountsTotal,
		r.SegmentsTotal,
		r.SegmentBytes,
		r.ManifestSlot,
		r.SegmentParse,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// ObserveManifest records the manifest slot.
func (r *Registry) ObserveManifest(slot uint64) {
	r.ManifestSlot.Set(float64(slot))
}

// ObserveSegment records the outcome of one segment.
func (r *Registry) ObserveSegment(result string, declared uint64, accounts int, elapsed time.Duration) {
	r.SegmentsTotal.WithLabelValues(result).Inc()
	if result == ResultSkipped {
		return
	}
	r.SegmentBytes.Add(float64(declared))
	r.AccountsTotal.Add(float64(accounts))
	r.SegmentParse.Observe(elapsed.Seconds())
}

// Handler returns the /metrics handler for r.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes r on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, r *Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
