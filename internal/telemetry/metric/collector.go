package metric

import "github.com/prometheus/client_golang/prometheus"

// SourceCollector reports the raw bytes consumed from the archive source.
// The value is read at scrape time so the hot read path stays lock-free.
type SourceCollector struct {
	bytesRead func() int64
	size      func() int64
	readDesc  *prometheus.Desc
	sizeDesc  *prometheus.Desc
}

// NewSourceCollector creates a collector over the given counters. size may
// return a negative value when the total is unknown.
func NewSourceCollector(bytesRead, size func() int64) *SourceCollector {
	return &SourceCollector{
		bytesRead: bytesRead,
		size:      size,
		readDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "source", "bytes_read_total"),
			"Raw archive bytes read from the source.", nil, nil),
		sizeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "source", "size_bytes"),
			"Raw archive size, when known.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SourceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readDesc
	ch <- c.sizeDesc
}

// Collect implements prometheus.Collector.
func (c *SourceCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.readDesc, prometheus.CounterValue, float64(c.bytesRead()))
	if s := c.size(); s >= 0 {
		ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, float64(s))
	}
}
