// Package extract drives a snapshot archive through the manifest decoder and
// the segment reader and hands every live account to a Sink.
//
// The canonical path, Extractor.Run, is a single forward pass over the
// archive stream. The manifest must appear before any storage segment;
// segments that the manifest does not list are skipped without parsing.
//
// The accelerated path first unpacks the archive to disk with Unpack, then
// loads the tree with OpenUnpacked and walks the segments with a bounded pool
// of workers (Unpacked.Run). All sink callbacks are still made from a single
// goroutine, but segments arrive in no particular order.
package extract
