// Package main provides the entry point for snapetl.
//
// snapetl streams a validator snapshot archive and delivers every live
// account to one or more outputs:
//
//   - CSV rows (pubkey, owner, data_len, lamports)
//   - a Badger index of accounts and SPL token state
//   - a tar of deployed BPF programs
//   - per-owner statistics
//
// Usage:
//
//	snapetl extract --csv accounts.csv snapshot-123.tar.zst
//	snapetl extract --badger ./index --workers 8 https://example.com/snapshot.tar.zst
//	snapetl -o json manifest snapshot-123.tar.zst
//	snapetl unpack snapshot-123.tar.zst ./unpacked
package main
