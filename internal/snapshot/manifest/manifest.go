package manifest

import (
	"fmt"
	"strings"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// Version is the manifest layout discriminator.
type Version uint32

const (
	// V1_2_0 is the newer layout: bank fields include accounts_data_len and
	// storage entries are {id, current_len}.
	V1_2_0 Version = 0
	// V1_1_0 is the older layout: no accounts_data_len and storage entries
	// carry a count and status.
	V1_1_0 Version = 1
)

// String returns the version as written in the archive's version entry.
func (v Version) String() string {
	switch v {
	case V1_2_0:
		return "1.2.0"
	case V1_1_0:
		return "1.1.0"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(v))
	}
}

// Known reports whether v is a supported layout.
func (v Version) Known() bool {
	return v == V1_2_0 || v == V1_1_0
}

// ParseVersion maps the text of the archive's version entry to a Version.
func ParseVersion(s string) (Version, bool) {
	switch strings.TrimSpace(s) {
	case "1.2.0":
		return V1_2_0, true
	case "1.1.0":
		return V1_1_0, true
	default:
		return 0, false
	}
}

// Manifest is a decoded snapshot manifest.
type Manifest struct {
	Version    Version
	Bank       Bank
	AccountsDB AccountsDB
	Storage    *StorageIndex
	// Size is the encoded size in bytes.
	Size int
}

// Slot returns the bank slot of the snapshot.
func (m *Manifest) Slot() uint64 {
	return m.Bank.Slot
}

// Decode parses a manifest.
//
// It fails with domain.ErrUnsupportedManifestVersion when the leading
// discriminator is unknown and with domain.ErrDecodeSkew when the input is
// truncated or a field fails a sanity bound.
func Decode(b []byte) (*Manifest, error) {
	d := newDecoder(b)
	tag := d.u32("version discriminator")
	if d.err != nil {
		return nil, d.err
	}
	v := Version(tag)
	if !v.Known() {
		return nil, domain.ErrUnsupportedManifestVersion.WithDetailsf("discriminator %d", tag)
	}

	m := &Manifest{Version: v, Size: len(b)}
	m.Bank = decodeBank(d, v == V1_2_0)
	if d.err != nil {
		return nil, fmt.Errorf("decode bank fields: %w", d.err)
	}
	m.AccountsDB = decodeAccountsDB(d, v)
	if d.err != nil {
		return nil, fmt.Errorf("decode accounts db fields: %w", d.err)
	}
	m.Storage = indexFromStorage(m.AccountsDB.Storage)
	return m, nil
}

// Summary is a flat, printable view of a manifest.
type Summary struct {
	Version           string  `json:"version" yaml:"version"`
	Slot              uint64  `json:"slot" yaml:"slot"`
	ParentSlot        uint64  `json:"parent_slot" yaml:"parent_slot"`
	Epoch             uint64  `json:"epoch" yaml:"epoch"`
	BlockHeight       uint64  `json:"block_height" yaml:"block_height"`
	Hash              string  `json:"hash" yaml:"hash"`
	ParentHash        string  `json:"parent_hash" yaml:"parent_hash"`
	Capitalization    uint64  `json:"capitalization" yaml:"capitalization"`
	TransactionCount  uint64  `json:"transaction_count" yaml:"transaction_count"`
	CollectorID       string  `json:"collector_id" yaml:"collector_id"`
	SlotsPerEpoch     uint64  `json:"slots_per_epoch" yaml:"slots_per_epoch"`
	InflationInitial  float64 `json:"inflation_initial" yaml:"inflation_initial"`
	InflationTerminal float64 `json:"inflation_terminal" yaml:"inflation_terminal"`
	VoteAccounts      int     `json:"vote_accounts" yaml:"vote_accounts"`
	StakeDelegations  int     `json:"stake_delegations" yaml:"stake_delegations"`
	WriteVersion      uint64  `json:"write_version" yaml:"write_version"`
	StorageSlots      int     `json:"storage_slots" yaml:"storage_slots"`
	StorageSegments   int     `json:"storage_segments" yaml:"storage_segments"`
	StorageBytes      uint64  `json:"storage_bytes" yaml:"storage_bytes"`
	HistoricalRoots   int     `json:"historical_roots" yaml:"historical_roots"`
	ManifestBytes     int     `json:"manifest_bytes" yaml:"manifest_bytes"`
}

// Summary returns the printable view of m.
func (m *Manifest) Summary() Summary {
	return Summary{
		Version:           m.Version.String(),
		Slot:              m.Bank.Slot,
		ParentSlot:        m.Bank.ParentSlot,
		Epoch:             m.Bank.Epoch,
		BlockHeight:       m.Bank.BlockHeight,
		Hash:              m.Bank.Hash.String(),
		ParentHash:        m.Bank.ParentHash.String(),
		Capitalization:    m.Bank.Capitalization,
		TransactionCount:  m.Bank.TransactionCount,
		CollectorID:       m.Bank.CollectorID.String(),
		SlotsPerEpoch:     m.Bank.EpochSchedule.SlotsPerEpoch,
		InflationInitial:  m.Bank.Inflation.Initial,
		InflationTerminal: m.Bank.Inflation.Terminal,
		VoteAccounts:      len(m.Bank.Stakes.VoteAccounts),
		StakeDelegations:  len(m.Bank.Stakes.StakeDelegations),
		WriteVersion:      m.AccountsDB.WriteVersion,
		StorageSlots:      len(m.Storage.Slots()),
		StorageSegments:   m.Storage.Len(),
		StorageBytes:      m.Storage.TotalBytes(),
		HistoricalRoots:   len(m.AccountsDB.HistoricalRoots),
		ManifestBytes:     m.Size,
	}
}
