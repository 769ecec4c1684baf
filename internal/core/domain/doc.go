// Package domain defines the core domain models for snapetl.
//
// Domain models are plain values without IO dependencies:
//
//   - Pubkey / Hash: 32-byte account addresses and digests (base58 text form)
//   - AccountView: one account record borrowed from a storage segment
//   - SegmentKey: the (slot, id) name of a storage segment
//   - Errors: coded error kinds shared by the decoding pipeline
//
// Only TruncatedSegment is recoverable; every other kind aborts a run.
package domain
