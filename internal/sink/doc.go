// Package sink provides the account consumers used by the snapetl command:
// CSV rows, a Badger account index, a program dumper, per-owner statistics
// and a fan-out combining several of them.
//
// Every sink implements extract.Sink and io.Closer. Sinks are driven from a
// single goroutine; only Stats may be read concurrently while a run is in
// progress.
package sink
