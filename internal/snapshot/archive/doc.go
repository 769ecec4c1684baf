// Package archive walks the tar container of a snapshot as a forward-only
// stream of entries.
//
// Framing errors surface as domain.ErrMalformedArchive and failures of the
// underlying reader as domain.ErrIO. The end of the archive is io.EOF.
package archive
