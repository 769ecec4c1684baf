// Package snaptest builds synthetic snapshot archives for tests.
//
// It encodes manifests and segments in the on-disk formats and packs them
// into tar streams, optionally zstd or gzip compressed. Builders panic on
// failure since they only write to memory.
package snaptest
