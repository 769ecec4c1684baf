// Package manifest decodes the snapshot manifest stored at
// snapshots/<slot>/<slot>.
//
// The manifest is a bincode stream (fixed-width little-endian integers, u64
// length prefixes, one-byte option tags, u32 enum variants). It opens with a
// u32 version discriminator that selects one of a closed set of layouts,
// followed by the bank fields and the accounts-db fields. The accounts-db
// section lists, per slot, the storage segments that are live and their
// authoritative lengths; Decode turns it into a StorageIndex.
//
// Every count prefix is checked against the remaining input before anything
// is allocated, so a corrupted manifest fails with domain.ErrDecodeSkew
// instead of exhausting memory.
package manifest
