package sink

import (
	"sort"
	"sync/atomic"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/pkg/cmap"
)

// OwnerStats aggregates the accounts owned by one program.
type OwnerStats struct {
	Owner     domain.Pubkey `json:"owner" yaml:"owner"`
	Accounts  uint64        `json:"accounts" yaml:"accounts"`
	Lamports  uint64        `json:"lamports" yaml:"lamports"`
	DataBytes uint64        `json:"data_bytes" yaml:"data_bytes"`
}

// Stats counts accounts, lamports and payload bytes per owner.
// Snapshot and Totals may be called while a run is in progress.
type Stats struct {
	passive
	owners   *cmap.Map[domain.Pubkey, OwnerStats]
	accounts atomic.Uint64
	skipped  atomic.Uint64
}

// NewStats creates an empty statistics sink.
func NewStats() *Stats {
	return &Stats{owners: cmap.New[domain.Pubkey, OwnerStats](cmap.HashArray32[domain.Pubkey])}
}

// OnAccount implements extract.Sink.
func (s *Stats) OnAccount(v *domain.AccountView) error {
	s.owners.Update(v.Owner, func(o OwnerStats, _ bool) OwnerStats {
		o.Owner = v.Owner
		o.Accounts++
		o.Lamports += v.Lamports
		o.DataBytes += v.DataLen()
		return o
	})
	s.accounts.Add(1)
	return nil
}

// OnSegmentSkipped implements extract.Sink.
func (s *Stats) OnSegmentSkipped(uint64, uint64) {
	s.skipped.Add(1)
}

// Totals returns the overall account count and the number of skipped
// segments seen so far.
func (s *Stats) Totals() (accounts, skippedSegments uint64) {
	return s.accounts.Load(), s.skipped.Load()
}

// Owners returns the number of distinct owners.
func (s *Stats) Owners() int {
	return s.owners.Count()
}

// Top returns the n owners with the most accounts, ties broken by owner
// key. n <= 0 returns all owners.
func (s *Stats) Top(n int) []OwnerStats {
	out := make([]OwnerStats, 0, s.owners.Count())
	s.owners.Range(func(_ domain.Pubkey, o OwnerStats) bool {
		out = append(out, o)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accounts != out[j].Accounts {
			return out[i].Accounts > out[j].Accounts
		}
		return string(out[i].Owner[:]) < string(out[j].Owner[:])
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Close implements io.Closer.
func (s *Stats) Close() error { return nil }
