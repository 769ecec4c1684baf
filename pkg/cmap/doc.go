// Package cmap provides a sharded concurrent map for snapetl.
//
// Keys are spread over a power-of-two number of shards by a caller-supplied
// hash function; HashString and HashArray32 use MurmurHash3. Each shard has
// its own RWMutex, so writers touching different shards never contend.
//
// Usage:
//
//	m := cmap.New[domain.Pubkey, *OwnerStats](cmap.HashArray32[domain.Pubkey])
//	m.Update(owner, func(s *OwnerStats, ok bool) *OwnerStats { ... })
//	m.Range(func(k domain.Pubkey, v *OwnerStats) bool { ... })
package cmap
