package manifest

import (
	"encoding/binary"
	"math"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// maxCollectionLen caps any single count prefix regardless of input size.
const maxCollectionLen = 1 << 28

// decoder reads bincode fixint values from an in-memory buffer.
//
// Errors are sticky: after the first failure every read returns a zero value
// and err keeps the first error, so decode routines check it once per section.
type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(b []byte) *decoder {
	return &decoder{buf: b}
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) exhausted() bool {
	return d.err == nil && d.off >= len(d.buf)
}

func (d *decoder) fail(format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = domain.ErrDecodeSkew.WithDetailsf(format, args...)
}

// take returns the next n bytes, or nil after recording a truncation.
func (d *decoder) take(n int, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > d.remaining() {
		d.fail("offset %d: %s needs %d bytes, %d remain", d.off, what, n, d.remaining())
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8(what string) uint8 {
	b := d.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u32(what string) uint32 {
	b := d.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64(what string) uint64 {
	b := d.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) i64(what string) int64 {
	return int64(d.u64(what))
}

func (d *decoder) f64(what string) float64 {
	return math.Float64frombits(d.u64(what))
}

func (d *decoder) u128(what string) Uint128 {
	lo := d.u64(what)
	hi := d.u64(what)
	return Uint128{Hi: hi, Lo: lo}
}

func (d *decoder) bool(what string) bool {
	off := d.off
	switch v := d.u8(what); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("offset %d: %s has invalid bool byte %d", off, what, v)
		return false
	}
}

// option reads a one-byte Option tag.
func (d *decoder) option(what string) bool {
	off := d.off
	switch v := d.u8(what); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("offset %d: %s has invalid option tag %d", off, what, v)
		return false
	}
}

func (d *decoder) hash(what string) domain.Hash {
	var h domain.Hash
	copy(h[:], d.take(domain.HashSize, what))
	return h
}

func (d *decoder) pubkey(what string) domain.Pubkey {
	var pk domain.Pubkey
	copy(pk[:], d.take(domain.PubkeySize, what))
	return pk
}

// length reads a u64 count prefix for elements of at least minElem bytes each.
func (d *decoder) length(what string, minElem int) int {
	off := d.off
	n := d.u64(what)
	if d.err != nil {
		return 0
	}
	if n > maxCollectionLen {
		d.fail("offset %d: %s count %d exceeds cap %d", off, what, n, maxCollectionLen)
		return 0
	}
	if minElem > 0 && n > uint64(d.remaining()/minElem) {
		d.fail("offset %d: %s count %d needs at least %d bytes, %d remain",
			off, what, n, n*uint64(minElem), d.remaining())
		return 0
	}
	return int(n)
}

// bytes reads a length-prefixed byte vector without copying.
func (d *decoder) bytes(what string) []byte {
	n := d.length(what, 1)
	return d.take(n, what)
}

// Uint128 is a bincode u128.
type Uint128 struct {
	Hi, Lo uint64
}
