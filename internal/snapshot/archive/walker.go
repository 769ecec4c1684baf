package archive

import (
	"archive/tar"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// Entry is one regular file in the archive.
//
// Its content is only readable until the next call to Walker.Next; unread
// bytes are skipped.
type Entry struct {
	Path string
	Size int64

	r    io.Reader
	read int64
}

// Read implements io.Reader.
func (e *Entry) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	e.read += int64(n)
	if err != nil && err != io.EOF {
		err = classify(err, e.Path)
	}
	return n, err
}

// ReadAll reads the whole entry. It fails without reading when the entry is
// larger than limit; a limit <= 0 disables the check.
func (e *Entry) ReadAll(limit int64) ([]byte, error) {
	if limit > 0 && e.Size > limit {
		return nil, domain.ErrMalformedArchive.WithDetailsf("entry %s is %d bytes, limit %d", e.Path, e.Size, limit)
	}
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(e, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, domain.ErrMalformedArchive.WithDetailsf(
				"entry %s: stream ended after %d of %d bytes", e.Path, e.read, e.Size)
		}
		return nil, err
	}
	return buf, nil
}

// Walker yields the regular files of a tar stream in order.
type Walker struct {
	tr      *tar.Reader
	entries int
	err     error
}

// NewWalker creates a walker over a decompressed tar stream.
func NewWalker(r io.Reader) *Walker {
	return &Walker{tr: tar.NewReader(r)}
}

// Next advances to the next regular file. It returns io.EOF at the end of the
// archive. Errors are sticky.
func (w *Walker) Next() (*Entry, error) {
	if w.err != nil {
		return nil, w.err
	}
	for {
		hdr, err := w.tr.Next()
		if err == io.EOF {
			w.err = io.EOF
			return nil, w.err
		}
		if err != nil {
			w.err = classify(err, "")
			return nil, w.err
		}
		if !hdr.FileInfo().Mode().IsRegular() {
			continue
		}
		if err := validate(hdr); err != nil {
			w.err = err
			return nil, w.err
		}
		w.entries++
		return &Entry{
			Path: strings.TrimPrefix(hdr.Name, "./"),
			Size: hdr.Size,
			r:    w.tr,
		}, nil
	}
}

// Entries returns the number of regular files yielded so far.
func (w *Walker) Entries() int {
	return w.entries
}

func validate(hdr *tar.Header) error {
	switch {
	case hdr.Size < 0:
		return domain.ErrMalformedArchive.WithDetailsf("entry %q: negative size %d", hdr.Name, hdr.Size)
	case !utf8.ValidString(hdr.Name):
		return domain.ErrMalformedArchive.WithDetailsf("entry %q: path is not valid UTF-8", hdr.Name)
	case strings.IndexByte(hdr.Name, 0) >= 0:
		return domain.ErrMalformedArchive.WithDetailsf("entry %q: path contains NUL", hdr.Name)
	case hdr.Name == "":
		return domain.ErrMalformedArchive.WithDetails("entry with empty path")
	}
	return nil
}

// classify maps tar and reader errors onto the domain error kinds.
func classify(err error, path string) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	where := "header"
	if path != "" {
		where = "entry " + path
	}
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return domain.ErrMalformedArchive.WithDetailsf("%s: stream ended inside declared content", where).WithCause(err)
	case errors.Is(err, tar.ErrHeader), errors.Is(err, tar.ErrFieldTooLong), errors.Is(err, tar.ErrInsecurePath):
		return domain.ErrMalformedArchive.WithDetails(where).WithCause(err)
	default:
		return domain.ErrIO.WithDetails(where).WithCause(err)
	}
}
