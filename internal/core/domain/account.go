package domain

// AccountView is one stored account record as found in a segment.
//
// Data aliases the segment's backing memory. It is only valid until the sink
// callback that received the view returns; use CloneData to keep it.
type AccountView struct {
	// Slot and SegmentID name the segment the record came from.
	Slot      uint64
	SegmentID uint64
	// Offset is the record's byte offset inside the segment.
	Offset uint64

	WriteVersion uint64
	Pubkey       Pubkey
	Owner        Pubkey
	Lamports     uint64
	Executable   bool
	RentEpoch    uint64
	Hash         Hash

	Data []byte
}

// DataLen returns the payload length.
func (v *AccountView) DataLen() uint64 {
	return uint64(len(v.Data))
}

// CloneData returns a copy of the payload that outlives the callback.
func (v *AccountView) CloneData() []byte {
	if v.Data == nil {
		return nil
	}
	out := make([]byte, len(v.Data))
	copy(out, v.Data)
	return out
}

// SegmentKey identifies a storage segment by (slot, id).
type SegmentKey struct {
	Slot uint64
	ID   uint64
}
