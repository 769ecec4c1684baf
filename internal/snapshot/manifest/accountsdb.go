package manifest

import "github.com/yndnr/snapetl-go/internal/core/domain"

// AccountsDB holds the accounts-db fields of a snapshot.
type AccountsDB struct {
	// Storage lists the live segments per slot in manifest order.
	Storage      map[uint64][]StorageEntry
	WriteVersion uint64
	Slot         uint64
	BankHashInfo BankHashInfo
	// HistoricalRoots and HistoricalRootsWithHash are absent in older
	// snapshots and decode as empty.
	HistoricalRoots         []uint64
	HistoricalRootsWithHash []RootHash
}

// StorageEntry is one live segment of a slot.
type StorageEntry struct {
	ID  uint64
	Len uint64
	// Count and Status are only present in the 1.1.0 layout.
	Count  uint64
	Status uint32
}

type BankHashInfo struct {
	Hash         domain.Hash
	SnapshotHash domain.Hash
	Stats        BankHashStats
}

type BankHashStats struct {
	NumUpdatedAccounts    uint64
	NumRemovedAccounts    uint64
	NumLamportsStored     uint64
	TotalDataLen          uint64
	NumExecutableAccounts uint64
}

type RootHash struct {
	Slot uint64
	Hash domain.Hash
}

const (
	sizeSlotEntries  = 8 + 8
	sizeEntryV1_2_0  = 16
	sizeEntryV1_1_0  = 8 + 8 + 8 + 4
	sizeRootWithHash = 8 + 32
)

func decodeAccountsDB(d *decoder, v Version) AccountsDB {
	var a AccountsDB

	n := d.length("storage slots", sizeSlotEntries)
	a.Storage = make(map[uint64][]StorageEntry, n)
	for i := 0; i < n && d.err == nil; i++ {
		slot := d.u64("storage slot")
		a.Storage[slot] = append(a.Storage[slot], decodeStorageEntries(d, v)...)
	}

	a.WriteVersion = d.u64("write version")
	a.Slot = d.u64("accounts db slot")
	a.BankHashInfo = BankHashInfo{
		Hash:         d.hash("bank hash info hash"),
		SnapshotHash: d.hash("snapshot hash"),
		Stats: BankHashStats{
			NumUpdatedAccounts:    d.u64("num updated accounts"),
			NumRemovedAccounts:    d.u64("num removed accounts"),
			NumLamportsStored:     d.u64("num lamports stored"),
			TotalDataLen:          d.u64("total data len"),
			NumExecutableAccounts: d.u64("num executable accounts"),
		},
	}

	if d.exhausted() {
		return a
	}
	n = d.length("historical roots", 8)
	a.HistoricalRoots = make([]uint64, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		a.HistoricalRoots = append(a.HistoricalRoots, d.u64("historical root"))
	}

	if d.exhausted() {
		return a
	}
	n = d.length("historical roots with hash", sizeRootWithHash)
	a.HistoricalRootsWithHash = make([]RootHash, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		a.HistoricalRootsWithHash = append(a.HistoricalRootsWithHash, RootHash{
			Slot: d.u64("historical root slot"),
			Hash: d.hash("historical root hash"),
		})
	}
	return a
}

func decodeStorageEntries(d *decoder, v Version) []StorageEntry {
	minSize := sizeEntryV1_2_0
	if v == V1_1_0 {
		minSize = sizeEntryV1_1_0
	}
	n := d.length("storage entries", minSize)
	out := make([]StorageEntry, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		var e StorageEntry
		e.ID = d.u64("storage id")
		e.Len = d.u64("storage current len")
		if v == V1_1_0 {
			e.Count = d.u64("storage count")
			e.Status = d.u32("storage status")
		}
		out = append(out, e)
	}
	return out
}
