// Package metric exposes extraction metrics in Prometheus format.
//
//   - prometheus.go: the Registry of snapetl metrics and the /metrics handler
//   - collector.go: a collector reading live byte counters from the source
package metric
