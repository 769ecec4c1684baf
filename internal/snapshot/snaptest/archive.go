package snaptest

import (
	"archive/tar"
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
)

// Archive accumulates tar entries in order.
type Archive struct {
	entries []entry
}

type entry struct {
	name string
	dir  bool
	data []byte
}

// Add appends a regular file entry.
func (a *Archive) Add(name string, data []byte) *Archive {
	a.entries = append(a.entries, entry{name: name, data: data})
	return a
}

// AddDir appends a directory entry.
func (a *Archive) AddDir(name string) *Archive {
	a.entries = append(a.entries, entry{name: name, dir: true})
	return a
}

// AddVersion appends the version entry.
func (a *Archive) AddVersion(v string) *Archive {
	return a.Add("version", []byte(v))
}

// AddManifest appends the manifest entry for m.Slot.
func (a *Archive) AddManifest(m Manifest) *Archive {
	return a.Add(ManifestPath(m.Slot), m.Encode())
}

// AddSegment appends accounts/<slot>.<id>.
func (a *Archive) AddSegment(slot, id uint64, data []byte) *Archive {
	return a.Add(SegmentPath(slot, id), data)
}

// Tar returns the uncompressed archive.
func (a *Archive) Tar() []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range a.entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.data)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := tw.Write(e.data); err != nil {
			panic(err)
		}
	}
	if err := tw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Zstd returns the archive compressed with zstd.
func (a *Archive) Zstd() []byte {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		panic(err)
	}
	if _, err := zw.Write(a.Tar()); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Gzip returns the archive compressed with gzip.
func (a *Archive) Gzip() []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(a.Tar()); err != nil {
		panic(err)
	}
	if err := gw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ManifestPath returns snapshots/<slot>/<slot>.
func ManifestPath(slot uint64) string {
	return fmt.Sprintf("snapshots/%d/%d", slot, slot)
}

// SegmentPath returns accounts/<slot>.<id>.
func SegmentPath(slot, id uint64) string {
	return fmt.Sprintf("accounts/%d.%d", slot, id)
}

// Segment encodes records and zero-pads the result to size bytes.
func Segment(size uint64, recs ...appendvec.Record) []byte {
	var b appendvec.Builder
	for _, r := range recs {
		b.Append(r)
	}
	return b.Bytes(size)
}

// Key returns a key with every byte set to b.
func Key(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}
