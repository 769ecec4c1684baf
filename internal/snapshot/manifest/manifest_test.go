package manifest

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/snaptest"
)

func sample(version uint32) snaptest.Manifest {
	return snaptest.Manifest{
		Version:          version,
		Slot:             100,
		ParentSlot:       99,
		Epoch:            3,
		BlockHeight:      90,
		Capitalization:   500_000_000,
		TransactionCount: 1234,
		Hash:             snaptest.Key(0x11),
		CollectorID:      snaptest.Key(0x22),
		Ancestors:        []uint64{98, 99},
		VoteAccounts: []snaptest.VoteAccount{
			{Pubkey: snaptest.Key(0x30), Stake: 10, Lamports: 27, Data: []byte("vote-state")},
		},
		Delegations: []snaptest.Delegation{
			{Pubkey: snaptest.Key(0x40), Voter: snaptest.Key(0x30), Stake: 10},
			{Pubkey: snaptest.Key(0x41), Voter: snaptest.Key(0x30), Stake: 15},
		},
		Storage: []snaptest.Storage{
			{Slot: 100, ID: 7, Len: 4096},
			{Slot: 98, ID: 2, Len: 512},
			{Slot: 98, ID: 1, Len: 1024},
		},
		WriteVersion:    77,
		HistoricalRoots: []uint64{90, 95},
	}
}

func TestDecode_Versions(t *testing.T) {
	tests := []struct {
		name    string
		version uint32
		want    Version
	}{
		{"newer", 0, V1_2_0},
		{"older", 1, V1_1_0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := sample(tt.version).Encode()
			m, err := Decode(raw)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if m.Version != tt.want {
				t.Fatalf("Version = %v, want %v", m.Version, tt.want)
			}
			if m.Slot() != 100 || m.Bank.ParentSlot != 99 || m.Bank.Epoch != 3 || m.Bank.BlockHeight != 90 {
				t.Fatalf("bank identity mismatch: %+v", m.Bank)
			}
			if m.Bank.Hash != domain.Hash(snaptest.Key(0x11)) {
				t.Fatalf("Hash = %s", m.Bank.Hash)
			}
			if m.Bank.CollectorID != domain.Pubkey(snaptest.Key(0x22)) {
				t.Fatalf("CollectorID = %s", m.Bank.CollectorID)
			}
			if len(m.Bank.Ancestors) != 2 || len(m.Bank.Stakes.VoteAccounts) != 1 || len(m.Bank.Stakes.StakeDelegations) != 2 {
				t.Fatalf("collections mismatch: ancestors=%d votes=%d delegations=%d",
					len(m.Bank.Ancestors), len(m.Bank.Stakes.VoteAccounts), len(m.Bank.Stakes.StakeDelegations))
			}
			va := m.Bank.Stakes.VoteAccounts[domain.Pubkey(snaptest.Key(0x30))]
			if va.Stake != 10 || va.DataLen != uint64(len("vote-state")) {
				t.Fatalf("vote account = %+v", va)
			}
			if m.Bank.HashesPerTick == nil || *m.Bank.HashesPerTick != 12_500 {
				t.Fatalf("HashesPerTick = %v", m.Bank.HashesPerTick)
			}
			es, ok := m.Bank.EpochStakes[3]
			if !ok || es.TotalStake != 25 {
				t.Fatalf("EpochStakes[3] = %+v, ok=%v", es, ok)
			}
			if m.AccountsDB.WriteVersion != 77 || len(m.AccountsDB.HistoricalRoots) != 2 {
				t.Fatalf("accounts db mismatch: %+v", m.AccountsDB)
			}
			if m.Size != len(raw) {
				t.Fatalf("Size = %d, want %d", m.Size, len(raw))
			}
		})
	}
}

func TestDecode_StorageIndex(t *testing.T) {
	m, err := Decode(sample(0).Encode())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	idx := m.Storage
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}
	if l, ok := idx.Lookup(100, 7); !ok || l != 4096 {
		t.Fatalf("Lookup(100,7) = %d, %v", l, ok)
	}
	if _, ok := idx.Lookup(100, 3); ok {
		t.Fatalf("Lookup(100,3) should miss")
	}
	slots := idx.Slots()
	if len(slots) != 2 || slots[0] != 98 || slots[1] != 100 {
		t.Fatalf("Slots() = %v", slots)
	}
	segs := idx.Segments()
	if segs[0].Slot != 98 || segs[0].ID != 1 || segs[2].Slot != 100 {
		t.Fatalf("Segments() not sorted: %+v", segs)
	}
	if idx.TotalBytes() != 4096+512+1024 {
		t.Fatalf("TotalBytes() = %d", idx.TotalBytes())
	}
	segs[0].Length = 1
	if l, _ := idx.Lookup(98, 1); l != 1024 {
		t.Fatalf("Segments() must return a copy")
	}
}

func TestDecode_DefaultOnEOF(t *testing.T) {
	s := sample(0)
	s.OmitTrailing = true
	m, err := Decode(s.Encode())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(m.AccountsDB.HistoricalRoots) != 0 || len(m.AccountsDB.HistoricalRootsWithHash) != 0 {
		t.Fatalf("trailing sections should be empty")
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	for _, v := range []uint32{2, 7, 0xFFFFFFFF} {
		_, err := Decode(sample(v).Encode())
		if !errors.Is(err, domain.ErrUnsupportedManifestVersion) {
			t.Fatalf("Decode(version %d) error = %v, want unsupported", v, err)
		}
	}
}

func TestDecode_Truncated(t *testing.T) {
	raw := sample(0).Encode()
	for _, n := range []int{0, 3, 4, 40, len(raw) / 2} {
		_, err := Decode(raw[:n])
		if !errors.Is(err, domain.ErrDecodeSkew) {
			t.Fatalf("Decode(%d bytes) error = %v, want decode skew", n, err)
		}
	}
}

func TestDecode_ImplausibleCount(t *testing.T) {
	raw := sample(0).Encode()
	// The blockhash ages count sits after the discriminator, the last hash
	// index and the optional last hash.
	off := 4 + 8 + 1 + 32
	bad := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint64(bad[off:], 1<<40)
	_, err := Decode(bad)
	if !errors.Is(err, domain.ErrDecodeSkew) {
		t.Fatalf("Decode() error = %v, want decode skew", err)
	}

	binary.LittleEndian.PutUint64(bad[off:], 1000)
	_, err = Decode(bad)
	if !errors.Is(err, domain.ErrDecodeSkew) {
		t.Fatalf("Decode() error = %v, want decode skew", err)
	}
}

func TestDecode_InvalidBool(t *testing.T) {
	raw := sample(0).Encode()
	// Option tag of the blockhash queue's last hash.
	bad := append([]byte(nil), raw...)
	bad[4+8] = 9
	if _, err := Decode(bad); !errors.Is(err, domain.ErrDecodeSkew) {
		t.Fatalf("Decode() error = %v, want decode skew", err)
	}
}

func TestVersion(t *testing.T) {
	if V1_2_0.String() != "1.2.0" || V1_1_0.String() != "1.1.0" {
		t.Fatalf("String() mismatch")
	}
	if v, ok := ParseVersion("1.2.0\n"); !ok || v != V1_2_0 {
		t.Fatalf("ParseVersion(1.2.0) = %v, %v", v, ok)
	}
	if _, ok := ParseVersion("9.9.9"); ok {
		t.Fatalf("ParseVersion(9.9.9) should fail")
	}
	if Version(5).Known() {
		t.Fatalf("Version(5) should be unknown")
	}
}

func TestSummary(t *testing.T) {
	m, err := Decode(sample(1).Encode())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	s := m.Summary()
	if s.Version != "1.1.0" || s.Slot != 100 || s.StorageSegments != 3 || s.StorageSlots != 2 {
		t.Fatalf("Summary() = %+v", s)
	}
	if s.StakeDelegations != 2 || s.VoteAccounts != 1 || s.Capitalization != 500_000_000 {
		t.Fatalf("Summary() = %+v", s)
	}
}

func TestNewStorageIndex_LastWins(t *testing.T) {
	idx := NewStorageIndex([]SegmentDescriptor{
		{Slot: 1, ID: 1, Length: 10},
		{Slot: 1, ID: 1, Length: 20},
	})
	if l, _ := idx.Lookup(1, 1); l != 20 || idx.Len() != 1 {
		t.Fatalf("Lookup = %d, Len = %d", l, idx.Len())
	}
}
