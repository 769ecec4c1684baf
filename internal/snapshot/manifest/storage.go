package manifest

import (
	"sort"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// SegmentDescriptor names one live segment and its authoritative length.
type SegmentDescriptor struct {
	Slot   uint64 `json:"slot" yaml:"slot"`
	ID     uint64 `json:"id" yaml:"id"`
	Length uint64 `json:"length" yaml:"length"`
}

// Key returns the (slot, id) pair.
func (s SegmentDescriptor) Key() domain.SegmentKey {
	return domain.SegmentKey{Slot: s.Slot, ID: s.ID}
}

// StorageIndex maps (slot, segment id) to the segment's authoritative length.
//
// It is immutable after construction and safe for concurrent use.
type StorageIndex struct {
	lengths  map[domain.SegmentKey]uint64
	segments []SegmentDescriptor
	total    uint64
}

// NewStorageIndex builds an index from descriptors. When a (slot, id) pair
// appears more than once the last descriptor wins.
func NewStorageIndex(descs []SegmentDescriptor) *StorageIndex {
	idx := &StorageIndex{lengths: make(map[domain.SegmentKey]uint64, len(descs))}
	for _, d := range descs {
		idx.lengths[d.Key()] = d.Length
	}
	idx.segments = make([]SegmentDescriptor, 0, len(idx.lengths))
	for k, l := range idx.lengths {
		idx.segments = append(idx.segments, SegmentDescriptor{Slot: k.Slot, ID: k.ID, Length: l})
		idx.total += l
	}
	sort.Slice(idx.segments, func(i, j int) bool {
		a, b := idx.segments[i], idx.segments[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.ID < b.ID
	})
	return idx
}

func indexFromStorage(storage map[uint64][]StorageEntry) *StorageIndex {
	var descs []SegmentDescriptor
	for slot, entries := range storage {
		for _, e := range entries {
			descs = append(descs, SegmentDescriptor{Slot: slot, ID: e.ID, Length: e.Len})
		}
	}
	return NewStorageIndex(descs)
}

// Lookup returns the declared length of segment (slot, id).
func (x *StorageIndex) Lookup(slot, id uint64) (uint64, bool) {
	l, ok := x.lengths[domain.SegmentKey{Slot: slot, ID: id}]
	return l, ok
}

// Len returns the number of live segments.
func (x *StorageIndex) Len() int {
	return len(x.segments)
}

// TotalBytes returns the sum of all declared lengths.
func (x *StorageIndex) TotalBytes() uint64 {
	return x.total
}

// Slots returns the distinct slots in ascending order.
func (x *StorageIndex) Slots() []uint64 {
	var out []uint64
	for _, s := range x.segments {
		if n := len(out); n == 0 || out[n-1] != s.Slot {
			out = append(out, s.Slot)
		}
	}
	return out
}

// Segments returns a copy of the descriptors sorted by (slot, id).
func (x *StorageIndex) Segments() []SegmentDescriptor {
	out := make([]SegmentDescriptor, len(x.segments))
	copy(out, x.segments)
	return out
}
