package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/archive"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
)

// UnpackedSegment is a live segment file on disk.
type UnpackedSegment struct {
	manifest.SegmentDescriptor
	Path string
}

// Unpacked is a snapshot extracted to a directory.
type Unpacked struct {
	Dir      string
	Manifest *manifest.Manifest
	// Segments lists the live segment files, sorted by (slot, id).
	Segments []UnpackedSegment
	// Orphans lists segments the manifest does not reference. Run reports
	// each one to the sink as skipped.
	Orphans []domain.SegmentKey
	// Missing counts indexed segments without a file.
	Missing int

	opts options
}

// OpenUnpacked loads the manifest of an unpacked snapshot at dir and matches
// the files under accounts/ against its storage index.
func OpenUnpacked(dir string, opts ...Option) (*Unpacked, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	snapDir := filepath.Join(dir, archive.SnapshotsDir)
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(archive.StatusCachePath))); err != nil {
		o.log.Warn("unpacked snapshot has no status cache", "dir", dir)
	}

	path, err := findManifest(snapDir)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(path).WithCause(err)
	}
	if st.Size() > o.maxManifestBytes {
		return nil, domain.ErrDecodeSkew.WithDetailsf("%s: %d bytes exceeds limit %d", path, st.Size(), o.maxManifestBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(path).WithCause(err)
	}
	m, err := manifest.Decode(b)
	if err != nil {
		return nil, err
	}

	u := &Unpacked{Dir: dir, Manifest: m, opts: o}
	accDir := filepath.Join(dir, archive.AccountsDir)
	entries, err := os.ReadDir(accDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, domain.ErrIO.WithDetails(accDir).WithCause(err)
	}
	for _, de := range entries {
		if !de.Type().IsRegular() {
			continue
		}
		slot, id, ok := archive.ParseSegmentName(de.Name())
		if !ok {
			continue
		}
		length, live := m.Storage.Lookup(slot, id)
		if !live {
			u.Orphans = append(u.Orphans, domain.SegmentKey{Slot: slot, ID: id})
			continue
		}
		u.Segments = append(u.Segments, UnpackedSegment{
			SegmentDescriptor: manifest.SegmentDescriptor{Slot: slot, ID: id, Length: length},
			Path:              filepath.Join(accDir, de.Name()),
		})
	}
	sort.Slice(u.Segments, func(i, j int) bool {
		a, b := u.Segments[i], u.Segments[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.ID < b.ID
	})
	u.Missing = m.Storage.Len() - len(u.Segments)

	o.log.Info("unpacked snapshot opened",
		"dir", dir,
		"slot", m.Slot(),
		"segments", len(u.Segments),
		"orphans", len(u.Orphans),
		"missing", u.Missing,
	)
	return u, nil
}

// findManifest returns snapshots/<slot>/<slot> for the highest slot present.
func findManifest(snapDir string) (string, error) {
	entries, err := os.ReadDir(snapDir)
	if err != nil {
		return "", domain.ErrMissingManifest.WithDetails(snapDir).WithCause(err)
	}
	var best string
	var bestSlot uint64
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		slot, err := strconv.ParseUint(de.Name(), 10, 64)
		if err != nil {
			continue
		}
		p := filepath.Join(snapDir, de.Name(), de.Name())
		if st, err := os.Stat(p); err != nil || !st.Mode().IsRegular() {
			continue
		}
		if best == "" || slot > bestSlot {
			best, bestSlot = p, slot
		}
	}
	if best == "" {
		return "", domain.ErrMissingManifest.WithDetails(snapDir)
	}
	return best, nil
}

func readVersionFile(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, archive.VersionPath))
	if err != nil || len(b) > maxVersionBytes {
		return ""
	}
	return strings.TrimSpace(string(b))
}
