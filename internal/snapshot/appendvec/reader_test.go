package appendvec

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

func key(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 0},
		{1, 8},
		{7, 8},
		{8, 8},
		{136, 136},
		{137, 144},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.in); got != tt.want {
			t.Fatalf("AlignUp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := RecordSize(3); got != 144 {
		t.Fatalf("RecordSize(3) = %d, want 144", got)
	}
}

func TestReader_RoundTrip(t *testing.T) {
	lens := []int{0, 1, 7, 8, 9, 100, 0, 1024}
	var b Builder
	var offsets []uint64
	for i, n := range lens {
		data := bytes.Repeat([]byte{byte(i + 1)}, n)
		offsets = append(offsets, b.Append(Record{
			WriteVersion: uint64(i),
			Pubkey:       key(byte(i + 1)),
			Owner:        key(0xAA),
			Lamports:     uint64(1000 + i),
			Executable:   i%2 == 0,
			RentEpoch:    uint64(i * 3),
			Hash:         key(0x55),
			Data:         data,
		}))
	}
	seg := b.Bytes(0)

	r := NewReader(seg, uint64(len(seg))).WithSegment(42, 7)
	for i, n := range lens {
		v, err := r.Next()
		if err != nil {
			t.Fatalf("Next(%d) error = %v", i, err)
		}
		if v.Slot != 42 || v.SegmentID != 7 {
			t.Fatalf("record %d segment = %d.%d, want 42.7", i, v.Slot, v.SegmentID)
		}
		if v.Offset != offsets[i] {
			t.Fatalf("record %d offset = %d, want %d", i, v.Offset, offsets[i])
		}
		if v.Offset%Alignment != 0 {
			t.Fatalf("record %d offset %d not aligned", i, v.Offset)
		}
		if v.WriteVersion != uint64(i) || v.Lamports != uint64(1000+i) || v.RentEpoch != uint64(i*3) {
			t.Fatalf("record %d meta mismatch: %+v", i, v)
		}
		if v.Executable != (i%2 == 0) {
			t.Fatalf("record %d executable = %v", i, v.Executable)
		}
		if v.Pubkey != domain.Pubkey(key(byte(i+1))) || v.Owner != domain.Pubkey(key(0xAA)) {
			t.Fatalf("record %d keys mismatch", i)
		}
		if !bytes.Equal(v.Data, bytes.Repeat([]byte{byte(i + 1)}, n)) {
			t.Fatalf("record %d data mismatch (len %d, want %d)", i, len(v.Data), n)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() at end error = %v, want io.EOF", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() after EOF error = %v, want io.EOF", err)
	}
	if r.Count() != len(lens) {
		t.Fatalf("Count() = %d, want %d", r.Count(), len(lens))
	}
}

func TestReader_Idempotent(t *testing.T) {
	var b Builder
	for i := 0; i < 5; i++ {
		b.Append(Record{Pubkey: key(byte(i)), Lamports: uint64(i), Data: make([]byte, i*11)})
	}
	seg := b.Bytes(0)

	collect := func() []uint64 {
		var out []uint64
		if err := Walk(seg, uint64(len(seg)), func(v *domain.AccountView) error {
			out = append(out, v.Offset, v.Lamports, v.DataLen())
			return nil
		}); err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		return out
	}
	first, second := collect(), collect()
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs differ at %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestReader_Boundaries(t *testing.T) {
	var b Builder
	b.Append(Record{Pubkey: key(1), Data: []byte("abc")})
	b.Append(Record{Pubkey: key(2), Data: []byte("defgh")})
	seg := b.Bytes(0)
	first := RecordSize(3)

	tests := []struct {
		name      string
		data      []byte
		declared  uint64
		wantCount int
		wantTrunc bool
	}{
		{"exact", seg, uint64(len(seg)), 2, false},
		{"trailing slack below header", b.Bytes(uint64(len(seg)) + HeaderSize - 1), uint64(len(seg)) + HeaderSize - 1, 2, false},
		{"declared cuts second header", seg, first + 10, 1, false},
		{"declared cuts second payload", seg, first + HeaderSize + 2, 1, true},
		{"declared beyond physical", seg, uint64(len(seg)) + 64, 2, true},
		{"empty", nil, 0, 0, false},
		{"declared zero", seg, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int
			err := Walk(tt.data, tt.declared, func(*domain.AccountView) error {
				n++
				return nil
			})
			if n != tt.wantCount {
				t.Fatalf("records = %d, want %d", n, tt.wantCount)
			}
			if got := errors.Is(err, domain.ErrTruncatedSegment); got != tt.wantTrunc {
				t.Fatalf("Walk() error = %v, want truncated %v", err, tt.wantTrunc)
			}
			if !tt.wantTrunc && err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
		})
	}
}

func TestReader_HugeDataLen(t *testing.T) {
	seg := make([]byte, HeaderSize+8)
	PutHeader(seg, Header{Pubkey: key(9), DataLen: ^uint64(0)})

	r := NewReader(seg, uint64(len(seg)))
	_, err := r.Next()
	if !errors.Is(err, domain.ErrTruncatedSegment) {
		t.Fatalf("Next() error = %v, want truncated", err)
	}
	if !domain.IsRecoverable(err) {
		t.Fatalf("truncation should be recoverable")
	}
	if _, err2 := r.Next(); err2 != err {
		t.Fatalf("error not sticky: %v", err2)
	}
}

func TestReader_BadExecutableFlag(t *testing.T) {
	var b Builder
	b.Append(Record{Pubkey: key(1)})
	off := b.Append(Record{Pubkey: key(2)})
	seg := b.Bytes(0)
	seg[off+offExecutable] = 7

	var n int
	err := Walk(seg, uint64(len(seg)), func(*domain.AccountView) error { n++; return nil })
	if n != 1 || !errors.Is(err, domain.ErrTruncatedSegment) {
		t.Fatalf("Walk() = %d records, err %v; want 1 and truncated", n, err)
	}
}

func TestReader_ZeroPlaceholder(t *testing.T) {
	var b Builder
	b.Append(Record{})
	b.Append(Record{Pubkey: key(3), Data: []byte{1}})
	seg := b.Bytes(0)

	var keys []domain.Pubkey
	if err := Walk(seg, uint64(len(seg)), func(v *domain.AccountView) error {
		keys = append(keys, v.Pubkey)
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(keys) != 2 || !keys[0].IsZero() || keys[1] != domain.Pubkey(key(3)) {
		t.Fatalf("keys = %v", keys)
	}
}

func TestWalk_CallbackError(t *testing.T) {
	var b Builder
	b.Append(Record{Pubkey: key(1)})
	b.Append(Record{Pubkey: key(2)})
	seg := b.Bytes(0)

	stop := errors.New("stop")
	var n int
	err := Walk(seg, uint64(len(seg)), func(*domain.AccountView) error {
		n++
		return stop
	})
	if err != stop || n != 1 {
		t.Fatalf("Walk() = %d, %v; want 1, stop", n, err)
	}
}

func TestReadSegment(t *testing.T) {
	var b Builder
	b.Append(Record{Pubkey: key(1), Data: []byte("payload")})
	raw := b.Bytes(0)

	s, err := ReadSegment(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("ReadSegment() error = %v", err)
	}
	if !bytes.Equal(s.Bytes(), raw) {
		t.Fatalf("Bytes() mismatch")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if s.Bytes() != nil {
		t.Fatalf("Bytes() after Close should be nil")
	}

	if _, err := ReadSegment(bytes.NewReader(raw[:10]), int64(len(raw))); err == nil {
		t.Fatalf("ReadSegment() short input should fail")
	}
}

func TestMapFile(t *testing.T) {
	var b Builder
	b.Append(Record{Pubkey: key(1), Lamports: 5, Data: []byte("mapped")})
	raw := b.Bytes(0)

	dir := t.TempDir()
	path := filepath.Join(dir, "100.7")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := MapFile(path)
	if err != nil {
		t.Fatalf("MapFile() error = %v", err)
	}
	defer s.Close()

	v, err := s.Reader(uint64(s.Len())).Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if v.Lamports != 5 || string(v.Data) != "mapped" {
		t.Fatalf("view mismatch: %+v", v)
	}

	empty := filepath.Join(dir, "100.8")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	es, err := MapFile(empty)
	if err != nil {
		t.Fatalf("MapFile(empty) error = %v", err)
	}
	if es.Len() != 0 {
		t.Fatalf("empty Len() = %d", es.Len())
	}
	_ = es.Close()
}
