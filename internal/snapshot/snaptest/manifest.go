package snaptest

import (
	"encoding/binary"
	"math"
)

// Manifest describes a manifest to encode.
type Manifest struct {
	Version          uint32
	Slot             uint64
	ParentSlot       uint64
	Epoch            uint64
	BlockHeight      uint64
	Capitalization   uint64
	TransactionCount uint64
	Hash             [32]byte
	CollectorID      [32]byte
	Ancestors        []uint64
	VoteAccounts     []VoteAccount
	Delegations      []Delegation
	Storage          []Storage
	WriteVersion     uint64
	HistoricalRoots  []uint64
	// OmitTrailing drops the optional historical root sections.
	OmitTrailing bool
}

// Storage is one accounts-db storage entry.
type Storage struct {
	Slot uint64
	ID   uint64
	Len  uint64
}

type VoteAccount struct {
	Pubkey   [32]byte
	Stake    uint64
	Lamports uint64
	Data     []byte
}

type Delegation struct {
	Pubkey [32]byte
	Voter  [32]byte
	Stake  uint64
}

// Encode returns the bincode form of m. Versions other than 0 and 1 only
// produce the discriminator followed by the 1.2.0 body.
func (m Manifest) Encode() []byte {
	var e encoder
	e.u32(m.Version)
	withDataLen := m.Version != 1

	// blockhash queue
	e.u64(1)
	e.u8(1)
	e.key(m.Hash)
	e.u64(1)
	e.key(m.Hash)
	e.u64(5000)
	e.u64(1)
	e.u64(1_600_000_000)
	e.u64(300)

	e.u64(uint64(len(m.Ancestors)))
	for _, a := range m.Ancestors {
		e.u64(a)
		e.u64(0)
	}
	e.key(m.Hash)
	e.key([32]byte{})
	e.u64(m.ParentSlot)

	// hard forks
	e.u64(1)
	e.u64(m.ParentSlot)
	e.u64(1)

	e.u64(m.TransactionCount)
	e.u64(m.Slot * 64)
	e.u64(0)
	e.u64(m.Capitalization)
	e.u64((m.Slot + 1) * 64)
	e.u8(1)
	e.u64(12_500)
	e.u64(64)
	e.u64(400_000_000)
	e.u64(0)
	e.u64(1_584_368_940)
	e.f64(78_892_314.984)
	if withDataLen {
		e.u64(1 << 30)
	}
	e.u64(m.Slot)
	e.u64(m.Epoch)
	e.u64(m.BlockHeight)
	e.key(m.CollectorID)
	e.u64(2500)
	e.u64(5000)

	// fee rate governor
	e.u64(10_000)
	e.u64(20_000)
	e.u64(5_000)
	e.u64(100_000)
	e.u8(50)

	e.u64(0)

	// rent collector
	e.u64(m.Epoch)
	e.epochSchedule()
	e.f64(78_892_314.984)
	e.u64(3480)
	e.f64(2.0)
	e.u8(50)

	e.epochSchedule()

	// inflation
	e.f64(0.08)
	e.f64(0.015)
	e.f64(0.15)
	e.f64(0.05)
	e.f64(7.0)
	e.f64(0)

	e.stakes(m)

	// unused accounts
	e.u64(0)
	e.u64(0)
	e.u64(0)

	// epoch stakes
	e.u64(1)
	e.u64(m.Epoch)
	e.stakes(m)
	var total uint64
	for _, d := range m.Delegations {
		total += d.Stake
	}
	e.u64(total)
	e.u64(0)
	e.u64(0)

	e.u8(0)

	// accounts db
	slots := map[uint64][]Storage{}
	var order []uint64
	for _, s := range m.Storage {
		if _, ok := slots[s.Slot]; !ok {
			order = append(order, s.Slot)
		}
		slots[s.Slot] = append(slots[s.Slot], s)
	}
	e.u64(uint64(len(order)))
	for _, slot := range order {
		e.u64(slot)
		e.u64(uint64(len(slots[slot])))
		for _, s := range slots[slot] {
			e.u64(s.ID)
			if withDataLen {
				e.u64(s.Len)
			} else {
				e.u64(s.Len)
				e.u64(1)
				e.u32(0)
			}
		}
	}
	e.u64(m.WriteVersion)
	e.u64(m.Slot)
	e.key(m.Hash)
	e.key(m.Hash)
	for i := 0; i < 5; i++ {
		e.u64(uint64(i))
	}

	if !m.OmitTrailing {
		e.u64(uint64(len(m.HistoricalRoots)))
		for _, r := range m.HistoricalRoots {
			e.u64(r)
		}
		e.u64(uint64(len(m.HistoricalRoots)))
		for _, r := range m.HistoricalRoots {
			e.u64(r)
			e.key(m.Hash)
		}
	}
	return e.b
}

type encoder struct {
	b []byte
}

func (e *encoder) u8(v uint8) {
	e.b = append(e.b, v)
}

func (e *encoder) u32(v uint32) {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
}

func (e *encoder) u64(v uint64) {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
}

func (e *encoder) f64(v float64) {
	e.u64(math.Float64bits(v))
}

func (e *encoder) key(k [32]byte) {
	e.b = append(e.b, k[:]...)
}

func (e *encoder) epochSchedule() {
	e.u64(432_000)
	e.u64(432_000)
	e.u8(0)
	e.u64(0)
	e.u64(0)
}

func (e *encoder) stakes(m Manifest) {
	e.u64(uint64(len(m.VoteAccounts)))
	for _, va := range m.VoteAccounts {
		e.key(va.Pubkey)
		e.u64(va.Stake)
		e.u64(va.Lamports)
		e.u64(uint64(len(va.Data)))
		e.b = append(e.b, va.Data...)
		e.key([32]byte{7})
		e.u8(0)
		e.u64(0)
	}
	e.u64(uint64(len(m.Delegations)))
	for _, d := range m.Delegations {
		e.key(d.Pubkey)
		e.key(d.Voter)
		e.u64(d.Stake)
		e.u64(0)
		e.u64(math.MaxUint64)
		e.f64(0.25)
	}
	e.u64(0)
	e.u64(m.Epoch)
	e.u64(1)
	e.u64(m.Epoch)
	e.u64(1)
	e.u64(2)
	e.u64(3)
}
