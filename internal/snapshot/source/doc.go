// Package source opens a snapshot archive from a file, stdin or an HTTP(S)
// URL and transparently removes its compression.
package source
