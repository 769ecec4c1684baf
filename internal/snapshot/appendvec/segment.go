package appendvec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Segment owns the backing memory of one storage segment.
//
// The memory is either a pooled buffer filled from a stream or a read-only
// mapping of a file. Close releases it; views taken from Bytes must not be
// used afterwards.
type Segment struct {
	data   []byte
	pooled *[]byte
	mapped mmap.MMap
	file   *os.File
	closed bool
}

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1<<20)
		return &b
	},
}

// ReadSegment reads exactly size bytes from r into a pooled buffer.
func ReadSegment(r io.Reader, size int64) (*Segment, error) {
	if size < 0 {
		return nil, fmt.Errorf("appendvec: negative segment size %d", size)
	}
	bp := bufferPool.Get().(*[]byte)
	buf := *bp
	if int64(cap(buf)) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	if _, err := io.ReadFull(r, buf); err != nil {
		*bp = buf[:0]
		bufferPool.Put(bp)
		return nil, err
	}
	*bp = buf
	return &Segment{data: buf, pooled: bp}, nil
}

// MapFile maps the file at path read-only.
func MapFile(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		// Zero-length mappings are rejected by the OS.
		f.Close()
		return &Segment{}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("appendvec: mmap %s: %w", path, err)
	}
	return &Segment{data: m, mapped: m, file: f}, nil
}

// NewSegment wraps caller-owned bytes. Close is a no-op for the bytes.
func NewSegment(data []byte) *Segment {
	return &Segment{data: data}
}

// Bytes returns the segment contents.
func (s *Segment) Bytes() []byte {
	return s.data
}

// Len returns the physical segment size.
func (s *Segment) Len() int {
	return len(s.data)
}

// Reader returns a record reader over the segment trusting declaredLen bytes.
func (s *Segment) Reader(declaredLen uint64) *Reader {
	return NewReader(s.data, declaredLen)
}

// Close releases the segment memory. It is safe to call more than once.
func (s *Segment) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.data = nil

	var errs []error
	if s.mapped != nil {
		if err := s.mapped.Unmap(); err != nil {
			errs = append(errs, err)
		}
		s.mapped = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
		s.file = nil
	}
	if s.pooled != nil {
		*s.pooled = (*s.pooled)[:0]
		bufferPool.Put(s.pooled)
		s.pooled = nil
	}
	return errors.Join(errs...)
}
