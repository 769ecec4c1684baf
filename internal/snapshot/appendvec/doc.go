// Package appendvec walks the packed account records of a storage segment.
//
// A segment ("append vec") is a blob of back-to-back records, each aligned to
// an 8-byte boundary:
//
//	[write_version:8][pubkey:32][data_len:8]            stored meta
//	[lamports:8][owner:32][executable:1][pad:7][rent_epoch:8]  account meta
//	[hash:32]
//	[data:data_len][pad to 8]
//
// All integers are little-endian. There is no end marker: a walk stops when
// the next header no longer fits inside the declared length. A header whose
// data_len overruns the declared length ends the walk with ErrTruncatedSegment;
// records yielded before it stay valid.
//
// The declared length comes from the snapshot manifest and takes precedence
// over the physical size of the segment, which may carry trailing padding.
package appendvec
