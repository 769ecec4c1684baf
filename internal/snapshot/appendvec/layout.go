package appendvec

import "encoding/binary"

// Record header layout.
const (
	offWriteVersion = 0
	offPubkey       = 8
	offDataLen      = 40
	offLamports     = 48
	offOwner        = 56
	offExecutable   = 88
	offRentEpoch    = 96
	offHash         = 104

	// StoredMetaSize covers write_version, pubkey and data_len.
	StoredMetaSize = 48
	// AccountMetaSize covers lamports, owner, executable (+7 pad) and rent_epoch.
	AccountMetaSize = 56
	// HeaderSize is the fixed part of every record.
	HeaderSize = StoredMetaSize + AccountMetaSize + 32

	// Alignment is the record alignment inside a segment.
	Alignment = 8
)

// AlignUp rounds n up to the next multiple of Alignment.
func AlignUp(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// RecordSize returns the aligned on-disk stride of a record with dataLen bytes.
func RecordSize(dataLen uint64) uint64 {
	return AlignUp(HeaderSize + dataLen)
}

// Header is the decoded fixed part of a record.
type Header struct {
	WriteVersion uint64
	Pubkey       [32]byte
	DataLen      uint64
	Lamports     uint64
	Owner        [32]byte
	Executable   byte
	RentEpoch    uint64
	Hash         [32]byte
}

// decodeHeader reads a header from b, which must hold at least HeaderSize bytes.
func decodeHeader(b []byte) Header {
	_ = b[HeaderSize-1]
	var h Header
	h.WriteVersion = binary.LittleEndian.Uint64(b[offWriteVersion:])
	copy(h.Pubkey[:], b[offPubkey:offPubkey+32])
	h.DataLen = binary.LittleEndian.Uint64(b[offDataLen:])
	h.Lamports = binary.LittleEndian.Uint64(b[offLamports:])
	copy(h.Owner[:], b[offOwner:offOwner+32])
	h.Executable = b[offExecutable]
	h.RentEpoch = binary.LittleEndian.Uint64(b[offRentEpoch:])
	copy(h.Hash[:], b[offHash:offHash+32])
	return h
}

// PutHeader encodes h into b, which must hold at least HeaderSize bytes.
// Padding bytes are zeroed.
func PutHeader(b []byte, h Header) {
	_ = b[HeaderSize-1]
	binary.LittleEndian.PutUint64(b[offWriteVersion:], h.WriteVersion)
	copy(b[offPubkey:offPubkey+32], h.Pubkey[:])
	binary.LittleEndian.PutUint64(b[offDataLen:], h.DataLen)
	binary.LittleEndian.PutUint64(b[offLamports:], h.Lamports)
	copy(b[offOwner:offOwner+32], h.Owner[:])
	b[offExecutable] = h.Executable
	for i := offExecutable + 1; i < offRentEpoch; i++ {
		b[i] = 0
	}
	binary.LittleEndian.PutUint64(b[offRentEpoch:], h.RentEpoch)
	copy(b[offHash:offHash+32], h.Hash[:])
}
