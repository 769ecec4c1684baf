package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/snapshot/archive"
	"github.com/yndnr/snapetl-go/internal/snapshot/manifest"
)

// UnpackStats summarises an Unpack call.
type UnpackStats struct {
	Entries         int    `json:"entries" yaml:"entries"`
	Written         int    `json:"written" yaml:"written"`
	Bytes           int64  `json:"bytes" yaml:"bytes"`
	SegmentsSkipped int    `json:"segments_skipped" yaml:"segments_skipped"`
	ManifestSlot    uint64 `json:"manifest_slot" yaml:"manifest_slot"`

	// Skipped holds the keys of the dropped segments, in archive order.
	Skipped []domain.SegmentKey `json:"-" yaml:"-" table:"-"`
}

// Unpack streams the archive in r into dir without parsing any segment.
//
// The version entry, the manifest, the status cache and the segments are
// written under their archive paths. A segment before the manifest fails
// the unpack as in Extractor.Run. Segments the manifest does not list are
// dropped and recorded in UnpackStats.Skipped;
// append them to Unpacked.Orphans to have Run report them.
func Unpack(ctx context.Context, r io.Reader, dir string, opts ...Option) (*UnpackStats, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.ErrIO.WithDetails(dir).WithCause(err)
	}

	stats := &UnpackStats{}
	var idx *manifest.StorageIndex
	w := archive.NewWalker(r)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Entries++

		switch {
		case archive.IsVersionPath(e.Path), archive.IsStatusCachePath(e.Path):
		case isManifestPath(e.Path):
			if idx != nil {
				continue
			}
			b, err := readManifestEntry(e, o.maxManifestBytes)
			if err != nil {
				return stats, err
			}
			m, err := manifest.Decode(b)
			if err != nil {
				return stats, fmt.Errorf("manifest %s: %w", e.Path, err)
			}
			idx = m.Storage
			stats.ManifestSlot = m.Slot()
			o.log.Info("manifest decoded", "slot", m.Slot(), "segments", idx.Len())
			if err := writeFile(dir, e.Path, bytes.NewReader(b), stats); err != nil {
				return stats, err
			}
			continue
		default:
			slot, id, ok := archive.ParseSegmentPath(e.Path)
			if !ok {
				o.log.Debug("skipping entry", "path", e.Path)
				continue
			}
			if idx == nil {
				return stats, domain.ErrMalformedArchive.WithDetailsf("segment %s precedes manifest", e.Path)
			}
			if _, live := idx.Lookup(slot, id); !live {
				stats.SegmentsSkipped++
				stats.Skipped = append(stats.Skipped, domain.SegmentKey{Slot: slot, ID: id})
				continue
			}
		}
		if err := writeFile(dir, e.Path, e, stats); err != nil {
			return stats, err
		}
	}
	if idx == nil {
		return stats, domain.ErrMissingManifest.WithDetailsf("archive ended after %d entries", stats.Entries)
	}
	o.log.Info("archive unpacked", "dir", dir, "files", stats.Written, "bytes", stats.Bytes)
	return stats, nil
}

func isManifestPath(p string) bool {
	_, ok := archive.ParseManifestPath(p)
	return ok
}

func writeFile(dir, name string, r io.Reader, stats *UnpackStats) error {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return domain.ErrMalformedArchive.WithDetailsf("entry %q escapes the target directory", name)
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.ErrIO.WithDetails(path).WithCause(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return domain.ErrIO.WithDetails(path).WithCause(err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return err
		}
		return domain.ErrIO.WithDetails(path).WithCause(err)
	}
	stats.Written++
	stats.Bytes += n
	return nil
}
