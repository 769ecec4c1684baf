package appendvec

import (
	"io"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// Reader walks the records of one segment in order.
//
// A Reader is single-pass; walking the same segment again needs a new Reader.
type Reader struct {
	data     []byte
	declared uint64
	limit    uint64

	slot      uint64
	segmentID uint64

	cursor uint64
	count  int
	err    error
	view   domain.AccountView
}

// NewReader creates a reader over data, trusting at most declaredLen bytes.
func NewReader(data []byte, declaredLen uint64) *Reader {
	limit := declaredLen
	if n := uint64(len(data)); n < limit {
		limit = n
	}
	return &Reader{
		data:     data,
		declared: declaredLen,
		limit:    limit,
	}
}

// WithSegment tags every view produced by r with the segment's (slot, id).
func (r *Reader) WithSegment(slot, id uint64) *Reader {
	r.slot = slot
	r.segmentID = id
	return r
}

// Next returns the next record.
//
// The returned view and its Data are only valid until the next call to Next.
// At the clean end of the segment Next returns io.EOF; a record that does not
// fit returns an error matching domain.ErrTruncatedSegment. Both are sticky.
func (r *Reader) Next() (*domain.AccountView, error) {
	if r.err != nil {
		return nil, r.err
	}

	if r.cursor > r.limit || r.limit-r.cursor < HeaderSize {
		if r.declared > uint64(len(r.data)) {
			r.err = domain.ErrTruncatedSegment.WithDetailsf(
				"segment %d.%d: declared length %d exceeds %d available bytes",
				r.slot, r.segmentID, r.declared, len(r.data))
		} else {
			r.err = io.EOF
		}
		return nil, r.err
	}

	hdr := decodeHeader(r.data[r.cursor : r.cursor+HeaderSize])
	dataStart := r.cursor + HeaderSize
	if hdr.DataLen > r.limit-dataStart {
		r.err = domain.ErrTruncatedSegment.WithDetailsf(
			"segment %d.%d offset %d: data_len %d overruns declared length %d",
			r.slot, r.segmentID, r.cursor, hdr.DataLen, r.declared)
		return nil, r.err
	}
	if hdr.Executable > 1 {
		r.err = domain.ErrTruncatedSegment.WithDetailsf(
			"segment %d.%d offset %d: invalid executable flag %d",
			r.slot, r.segmentID, r.cursor, hdr.Executable)
		return nil, r.err
	}
	dataEnd := dataStart + hdr.DataLen

	r.view = domain.AccountView{
		Slot:         r.slot,
		SegmentID:    r.segmentID,
		Offset:       r.cursor,
		WriteVersion: hdr.WriteVersion,
		Pubkey:       hdr.Pubkey,
		Owner:        hdr.Owner,
		Lamports:     hdr.Lamports,
		Executable:   hdr.Executable == 1,
		RentEpoch:    hdr.RentEpoch,
		Hash:         hdr.Hash,
		Data:         r.data[dataStart:dataEnd:dataEnd],
	}

	r.cursor = AlignUp(dataEnd)
	r.count++
	return &r.view, nil
}

// Offset returns the byte offset of the next record.
func (r *Reader) Offset() uint64 {
	return r.cursor
}

// Count returns the number of records yielded so far.
func (r *Reader) Count() int {
	return r.count
}

// Walk calls fn for every record of data in order.
//
// It returns nil at the clean end of the segment, the truncation error if
// the segment ends inside a record, or the first error returned by fn.
func Walk(data []byte, declaredLen uint64, fn func(*domain.AccountView) error) error {
	r := NewReader(data, declaredLen)
	for {
		v, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}
