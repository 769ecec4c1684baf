package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
	"github.com/yndnr/snapetl-go/internal/snapshot/snaptest"
)

// manySegments builds an archive with n indexed segments of 5 records each
// and one orphan.
func manySegments(n int) *snaptest.Archive {
	var storage []snaptest.Storage
	var segs [][]byte
	for i := 0; i < n; i++ {
		var recs []appendvec.Record
		for j := 0; j < 5; j++ {
			recs = append(recs, rec(byte(i*5+j), uint64(i*100+j), string(make([]byte, j*3))))
		}
		seg := snaptest.Segment(0, recs...)
		segs = append(segs, seg)
		storage = append(storage, snaptest.Storage{Slot: 200 + uint64(i%3), ID: uint64(i), Len: uint64(len(seg))})
	}

	var a snaptest.Archive
	a.AddVersion("1.2.0").
		AddManifest(testManifest(202, storage...)).
		Add(archiveStatusCache, []byte("status"))
	for i, seg := range segs {
		a.AddSegment(storage[i].Slot, storage[i].ID, seg)
	}
	a.AddSegment(150, 999, snaptest.Segment(0, rec(0xAA, 1, "gone")))
	return &a
}

func unpacked(t *testing.T, a *snaptest.Archive) *Unpacked {
	t.Helper()
	dir := t.TempDir()
	if _, err := Unpack(context.Background(), reader(a.Tar()), dir); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	u, err := OpenUnpacked(dir)
	if err != nil {
		t.Fatalf("OpenUnpacked() error = %v", err)
	}
	return u
}

func TestUnpack(t *testing.T) {
	dir := t.TempDir()
	stats, err := Unpack(context.Background(), reader(scenario().Tar()), dir)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if stats.ManifestSlot != 100 || stats.SegmentsSkipped != 1 || stats.Written != 4 {
		t.Fatalf("stats = %+v", stats)
	}
	for _, p := range []string{"version", "snapshots/100/100", "snapshots/status_cache", "accounts/100.7"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p))); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "accounts", "100.3")); !os.IsNotExist(err) {
		t.Errorf("orphan segment should not be written")
	}
	if want := []domain.SegmentKey{{Slot: 100, ID: 3}}; !reflect.DeepEqual(stats.Skipped, want) {
		t.Errorf("Skipped = %v, want %v", stats.Skipped, want)
	}
}

func TestUnpack_Errors(t *testing.T) {
	t.Run("unsafe path", func(t *testing.T) {
		err := writeFile(t.TempDir(), "../accounts/1.1", reader([]byte("x")), &UnpackStats{})
		if !errors.Is(err, domain.ErrMalformedArchive) {
			t.Fatalf("writeFile() error = %v, want malformed", err)
		}
	})
	t.Run("segment precedes manifest", func(t *testing.T) {
		seg := snaptest.Segment(0, rec(1, 1, "x"))
		var a snaptest.Archive
		a.AddSegment(100, 7, seg).
			AddManifest(testManifest(100, snaptest.Storage{Slot: 100, ID: 7, Len: uint64(len(seg))}))
		_, err := Unpack(context.Background(), reader(a.Tar()), t.TempDir())
		if !errors.Is(err, domain.ErrMalformedArchive) {
			t.Fatalf("Unpack() error = %v, want malformed", err)
		}
	})
	t.Run("oversized manifest", func(t *testing.T) {
		_, err := Unpack(context.Background(), reader(scenario().Tar()), t.TempDir(), WithMaxManifestBytes(16))
		if !errors.Is(err, domain.ErrDecodeSkew) {
			t.Fatalf("Unpack() error = %v, want decode skew", err)
		}
	})
	t.Run("missing manifest", func(t *testing.T) {
		var a snaptest.Archive
		a.AddVersion("1.2.0")
		_, err := Unpack(context.Background(), reader(a.Tar()), t.TempDir())
		if !errors.Is(err, domain.ErrMissingManifest) {
			t.Fatalf("Unpack() error = %v, want missing manifest", err)
		}
	})
}

func TestOpenUnpacked(t *testing.T) {
	u := unpacked(t, manySegments(6))
	if u.Manifest.Slot() != 202 {
		t.Fatalf("Slot() = %d, want 202", u.Manifest.Slot())
	}
	if len(u.Segments) != 6 || u.Missing != 0 {
		t.Fatalf("segments = %d, missing = %d", len(u.Segments), u.Missing)
	}
	for i := 1; i < len(u.Segments); i++ {
		a, b := u.Segments[i-1], u.Segments[i]
		if a.Slot > b.Slot || (a.Slot == b.Slot && a.ID >= b.ID) {
			t.Fatalf("segments not sorted: %v before %v", a.Key(), b.Key())
		}
	}
	// Orphans dropped by Unpack never reach the directory.
	if len(u.Orphans) != 0 {
		t.Fatalf("orphans = %v", u.Orphans)
	}
}

func TestOpenUnpacked_OrphansAndMissing(t *testing.T) {
	u := unpacked(t, manySegments(3))
	if err := os.WriteFile(filepath.Join(u.Dir, "accounts", "7.7"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(u.Segments[0].Path); err != nil {
		t.Fatal(err)
	}
	u, err := OpenUnpacked(u.Dir)
	if err != nil {
		t.Fatalf("OpenUnpacked() error = %v", err)
	}
	if len(u.Orphans) != 1 || u.Orphans[0] != (domain.SegmentKey{Slot: 7, ID: 7}) {
		t.Fatalf("orphans = %v", u.Orphans)
	}
	if u.Missing != 1 || len(u.Segments) != 2 {
		t.Fatalf("missing = %d, segments = %d", u.Missing, len(u.Segments))
	}
}

func TestOpenUnpacked_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dir string)
		want  *domain.DomainError
	}{
		{
			name:  "empty dir",
			setup: func(string) {},
			want:  domain.ErrMissingManifest,
		},
		{
			name: "no manifest",
			setup: func(dir string) {
				_ = os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755)
				_ = os.WriteFile(filepath.Join(dir, "snapshots", "status_cache"), []byte("s"), 0o644)
			},
			want: domain.ErrMissingManifest,
		},
		{
			name: "corrupt manifest",
			setup: func(dir string) {
				_ = os.MkdirAll(filepath.Join(dir, "snapshots", "5"), 0o755)
				_ = os.WriteFile(filepath.Join(dir, "snapshots", "status_cache"), []byte("s"), 0o644)
				_ = os.WriteFile(filepath.Join(dir, "snapshots", "5", "5"), []byte{0, 0, 0, 0, 1}, 0o644)
			},
			want: domain.ErrDecodeSkew,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(dir)
			if _, err := OpenUnpacked(dir); !errors.Is(err, tt.want) {
				t.Fatalf("OpenUnpacked() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParallel_MatchesSequential(t *testing.T) {
	a := manySegments(12)

	seq := newSink()
	seqStats, err := New().Run(context.Background(), reader(a.Tar()), seq)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, workers := range []int{1, 4, 0} {
		par := newSink()
		stats, err := unpacked(t, a).Run(context.Background(), par, workers)
		if err != nil {
			t.Fatalf("workers=%d: Run() error = %v", workers, err)
		}
		if !reflect.DeepEqual(seq.sorted(), par.sorted()) {
			t.Fatalf("workers=%d: parallel accounts differ from sequential", workers)
		}
		if stats.Accounts != seqStats.Accounts || stats.SegmentsParsed != seqStats.SegmentsParsed {
			t.Fatalf("workers=%d: stats = %+v, want %+v", workers, stats, seqStats)
		}
		if stats.State != StateDone || stats.VersionText != "1.2.0" || stats.ManifestSlot != 202 {
			t.Fatalf("workers=%d: stats = %+v", workers, stats)
		}
		if len(par.done) != 12 {
			t.Fatalf("workers=%d: done events = %d, want 12", workers, len(par.done))
		}
		for _, d := range par.done {
			if d.accounts != 5 || d.seen != 5 {
				t.Fatalf("workers=%d: done %+v fired before its accounts", workers, d)
			}
		}
		if par.manifest == nil {
			t.Fatalf("workers=%d: OnManifest not called", workers)
		}
	}
}

func TestParallel_Stop(t *testing.T) {
	u := unpacked(t, manySegments(12))
	sink := newSink()
	sink.stopAfter = 7
	stats, err := u.Run(context.Background(), sink, 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !stats.Stopped || len(sink.accounts) != 7 || stats.Accounts != 7 {
		t.Fatalf("stats = %+v, accounts = %d", stats, len(sink.accounts))
	}
}

func TestParallel_SinkError(t *testing.T) {
	u := unpacked(t, manySegments(8))
	sink := newSink()
	sink.abortErr = errors.New("boom")
	stats, err := u.Run(context.Background(), sink, 3)
	if !errors.Is(err, sink.abortErr) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if stats.State != StateFailed || len(sink.accounts) != 1 {
		t.Fatalf("stats = %+v, accounts = %d", stats, len(sink.accounts))
	}
}

func TestParallel_Truncated(t *testing.T) {
	bad := snaptest.Segment(0, rec(1, 1, "ok"), rec(2, 2, "this payload overruns"))
	declared := appendvec.RecordSize(2) + appendvec.HeaderSize + 4
	good := snaptest.Segment(0, rec(3, 3, "fine"))

	var a snaptest.Archive
	a.AddManifest(testManifest(50,
		snaptest.Storage{Slot: 50, ID: 1, Len: declared},
		snaptest.Storage{Slot: 50, ID: 2, Len: uint64(len(good))},
	)).
		Add(archiveStatusCache, []byte("s")).
		AddSegment(50, 1, bad).
		AddSegment(50, 2, good)

	sink := newSink()
	stats, err := unpacked(t, &a).Run(context.Background(), sink, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.SegmentsTrunc != 1 || stats.SegmentsParsed != 1 || len(sink.accounts) != 2 {
		t.Fatalf("stats = %+v, accounts = %d", stats, len(sink.accounts))
	}
	if len(sink.errs) != 1 || !errors.Is(sink.errs[0], domain.ErrTruncatedSegment) {
		t.Fatalf("errs = %v", sink.errs)
	}
}

func TestParallel_OrphansReported(t *testing.T) {
	u := unpacked(t, manySegments(2))
	u.Orphans = append(u.Orphans, domain.SegmentKey{Slot: 1, ID: 2})
	sink := newSink()
	stats, err := u.Run(context.Background(), sink, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.SegmentsSkipped != 1 || len(sink.skipped) != 1 {
		t.Fatalf("skipped = %v", sink.skipped)
	}
}

func TestParallel_UnpackSkippedReported(t *testing.T) {
	dir := t.TempDir()
	us, err := Unpack(context.Background(), reader(scenario().Tar()), dir)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	u, err := OpenUnpacked(dir)
	if err != nil {
		t.Fatalf("OpenUnpacked() error = %v", err)
	}
	u.Orphans = append(u.Orphans, us.Skipped...)

	sink := newSink()
	stats, err := u.Run(context.Background(), sink, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []domain.SegmentKey{{Slot: 100, ID: 3}}; !reflect.DeepEqual(sink.skipped, want) {
		t.Fatalf("skipped = %v, want %v", sink.skipped, want)
	}
	if stats.SegmentsSkipped != 1 || stats.Accounts != 3 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestOpenUnpacked_NoStatusCache(t *testing.T) {
	var a snaptest.Archive
	seg := snaptest.Segment(0, rec(1, 1, "x"))
	a.AddVersion("1.2.0").
		AddManifest(testManifest(9, snaptest.Storage{Slot: 9, ID: 1, Len: uint64(len(seg))})).
		AddSegment(9, 1, seg)

	sequential := newSink()
	if _, err := New().Run(context.Background(), reader(a.Tar()), sequential); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	u := unpacked(t, &a)
	parallel := newSink()
	if _, err := u.Run(context.Background(), parallel, 2); err != nil {
		t.Fatalf("Unpacked.Run() error = %v", err)
	}
	if !reflect.DeepEqual(parallel.sorted(), sequential.sorted()) {
		t.Fatalf("parallel = %v, sequential = %v", parallel.sorted(), sequential.sorted())
	}
}

func TestParallel_Cancelled(t *testing.T) {
	u := unpacked(t, manySegments(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := u.Run(ctx, newSink(), 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
