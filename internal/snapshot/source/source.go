package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// Options configures Open.
type Options struct {
	// HTTPTimeout bounds the whole download; zero means no limit.
	HTTPTimeout time.Duration
	// Client overrides the HTTP client.
	Client *http.Client
}

// Source is an opened, decompressed archive stream.
type Source struct {
	Location    string
	Compression Compression

	raw     io.ReadCloser
	counter *CountingReader
	dec     io.ReadCloser
	size    int64
	cancel  context.CancelFunc
}

// Open resolves location and returns the decompressed archive stream.
//
// location is "-" for stdin, an http:// or https:// URL, or a file path.
// Directories are rejected; use IsDir to route them to the unpacked loader.
func Open(ctx context.Context, location string, opts Options) (*Source, error) {
	s := &Source{Location: location, size: -1}

	switch {
	case location == "-":
		s.raw = io.NopCloser(os.Stdin)
	case IsURL(location):
		if err := s.openHTTP(ctx, opts); err != nil {
			return nil, err
		}
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, domain.ErrIO.WithDetails(location).WithCause(err)
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, domain.ErrIO.WithDetails(location).WithCause(err)
		}
		if st.IsDir() {
			f.Close()
			return nil, fmt.Errorf("source: %s is a directory", location)
		}
		s.raw = f
		s.size = st.Size()
	}

	s.counter = NewCountingReader(s.raw)
	dec, c, err := Decompress(s.counter)
	if err != nil {
		s.closeRaw()
		return nil, domain.ErrIO.WithDetails(location).WithCause(err)
	}
	s.dec = dec
	s.Compression = c
	return s, nil
}

func (s *Source) openHTTP(ctx context.Context, opts Options) error {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	if opts.HTTPTimeout > 0 {
		ctx, s.cancel = context.WithTimeout(ctx, opts.HTTPTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
	if err != nil {
		s.closeRaw()
		return domain.ErrIO.WithCause(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		s.closeRaw()
		return domain.ErrIO.WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		s.closeRaw()
		return domain.ErrIO.WithDetailsf("GET returned %s", resp.Status)
	}
	s.raw = resp.Body
	s.size = resp.ContentLength
	return nil
}

// Reader returns the decompressed stream.
func (s *Source) Reader() io.Reader {
	return s.dec
}

// BytesRead returns the number of raw (compressed) bytes consumed so far.
// It is safe to call from another goroutine.
func (s *Source) BytesRead() int64 {
	return s.counter.Count()
}

// Size returns the raw size in bytes, or -1 when unknown.
func (s *Source) Size() int64 {
	return s.size
}

// Close releases the decoder and the underlying stream.
func (s *Source) Close() error {
	var err error
	if s.dec != nil {
		err = s.dec.Close()
	}
	if cerr := s.closeRaw(); err == nil {
		err = cerr
	}
	return err
}

func (s *Source) closeRaw() error {
	var err error
	if s.raw != nil {
		err = s.raw.Close()
		s.raw = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return err
}

// IsURL reports whether location is an http(s) URL.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// IsDir reports whether location is an existing local directory.
func IsDir(location string) bool {
	if location == "-" || IsURL(location) {
		return false
	}
	st, err := os.Stat(location)
	return err == nil && st.IsDir()
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	r io.Reader
	n atomic.Int64
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Count returns the bytes read so far.
func (c *CountingReader) Count() int64 {
	return c.n.Load()
}
