package appendvec

// Record is the input to Builder.Append.
type Record struct {
	WriteVersion uint64
	Pubkey       [32]byte
	Owner        [32]byte
	Lamports     uint64
	Executable   bool
	RentEpoch    uint64
	Hash         [32]byte
	Data         []byte
}

// Builder assembles segment bytes in the on-disk record format.
type Builder struct {
	buf []byte
}

// Append encodes rec at the next aligned offset and returns that offset.
func (b *Builder) Append(rec Record) uint64 {
	off := uint64(len(b.buf))
	size := RecordSize(uint64(len(rec.Data)))
	b.buf = append(b.buf, make([]byte, size)...)

	var exec byte
	if rec.Executable {
		exec = 1
	}
	PutHeader(b.buf[off:], Header{
		WriteVersion: rec.WriteVersion,
		Pubkey:       rec.Pubkey,
		DataLen:      uint64(len(rec.Data)),
		Lamports:     rec.Lamports,
		Owner:        rec.Owner,
		Executable:   exec,
		RentEpoch:    rec.RentEpoch,
		Hash:         rec.Hash,
	})
	copy(b.buf[off+HeaderSize:], rec.Data)
	return off
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() uint64 {
	return uint64(len(b.buf))
}

// Bytes returns the segment, zero-padded to at least size bytes.
func (b *Builder) Bytes(size uint64) []byte {
	if uint64(len(b.buf)) >= size {
		return b.buf
	}
	out := make([]byte, size)
	copy(out, b.buf)
	return out
}
