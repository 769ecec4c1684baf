package extract

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
	"github.com/yndnr/snapetl-go/internal/snapshot/snaptest"
	"github.com/yndnr/snapetl-go/internal/snapshot/source"
)

type recorded struct {
	Slot, ID uint64
	Offset   uint64
	Pubkey   domain.Pubkey
	Lamports uint64
	Data     []byte
}

func (r recorded) String() string {
	return fmt.Sprintf("%d.%d@%d %s %d %x", r.Slot, r.ID, r.Offset, r.Pubkey, r.Lamports, r.Data)
}

type doneEvent struct {
	key      domain.SegmentKey
	accounts int
	seen     int
}

// recordingSink keeps copies of everything it is given.
type recordingSink struct {
	mu        sync.Mutex
	accounts  []recorded
	perSeg    map[domain.SegmentKey]int
	skipped   []domain.SegmentKey
	errs      []error
	done      []doneEvent
	manifest  *manifest.Manifest
	stopAfter int
	abortErr  error
	onErr     error
}

func newSink() *recordingSink {
	return &recordingSink{perSeg: map[domain.SegmentKey]int{}}
}

func (s *recordingSink) OnAccount(v *domain.AccountView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, recorded{
		Slot:     v.Slot,
		ID:       v.SegmentID,
		Offset:   v.Offset,
		Pubkey:   v.Pubkey,
		Lamports: v.Lamports,
		Data:     v.CloneData(),
	})
	s.perSeg[domain.SegmentKey{Slot: v.Slot, ID: v.SegmentID}]++
	if s.abortErr != nil {
		return s.abortErr
	}
	if s.stopAfter > 0 && len(s.accounts) >= s.stopAfter {
		return ErrStop
	}
	return nil
}

func (s *recordingSink) OnSegmentSkipped(slot, id uint64) {
	s.skipped = append(s.skipped, domain.SegmentKey{Slot: slot, ID: id})
}

func (s *recordingSink) OnError(err error) error {
	s.errs = append(s.errs, err)
	return s.onErr
}

func (s *recordingSink) OnSegmentDone(slot, id uint64, accounts int) {
	k := domain.SegmentKey{Slot: slot, ID: id}
	s.done = append(s.done, doneEvent{key: k, accounts: accounts, seen: s.perSeg[k]})
}

func (s *recordingSink) OnManifest(m *manifest.Manifest) error {
	s.manifest = m
	return nil
}

func (s *recordingSink) sorted() []string {
	out := make([]string, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.String()
	}
	sort.Strings(out)
	return out
}

func rec(k byte, lamports uint64, data string) appendvec.Record {
	return appendvec.Record{
		WriteVersion: uint64(k),
		Pubkey:       snaptest.Key(k),
		Owner:        snaptest.Key(0xEE),
		Lamports:     lamports,
		Data:         []byte(data),
	}
}

func testManifest(slot uint64, storage ...snaptest.Storage) snaptest.Manifest {
	return snaptest.Manifest{
		Slot:       slot,
		ParentSlot: slot - 1,
		Epoch:      1,
		Hash:       snaptest.Key(0x11),
		Storage:    storage,
	}
}

// scenario is the archive with one indexed segment (100,7) holding three
// records and an orphaned segment (100,3). The entry for (100,7) is zero
// padded to 4096 bytes past its declared length.
func scenario() *snaptest.Archive {
	recs := []appendvec.Record{rec(1, 10, "a"), rec(2, 20, ""), rec(3, 30, "ccc")}
	used := uint64(len(snaptest.Segment(0, recs...)))

	var a snaptest.Archive
	a.AddVersion("1.2.0").
		AddManifest(testManifest(100, snaptest.Storage{Slot: 100, ID: 7, Len: used})).
		Add(archiveStatusCache, []byte("status")).
		AddSegment(100, 7, snaptest.Segment(4096, recs...)).
		AddSegment(100, 3, snaptest.Segment(1024, rec(9, 90, "orphan")))
	return &a
}

const archiveStatusCache = "snapshots/status_cache"

func reader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func mustDecompressed(t *testing.T, b []byte) []byte {
	t.Helper()
	rc, _, err := source.Decompress(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return out
}
