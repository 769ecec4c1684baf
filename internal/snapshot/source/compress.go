package source

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the outer compression of an archive stream.
type Compression int

const (
	None Compression = iota
	Zstd
	Gzip
	Bzip2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

var (
	magicZstd  = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicGzip  = []byte{0x1F, 0x8B}
	magicBzip2 = []byte("BZh")
)

// Sniff inspects the first bytes of br without consuming them.
func Sniff(br *bufio.Reader) (Compression, error) {
	head, err := br.Peek(len(magicZstd))
	if err != nil && !errors.Is(err, io.EOF) {
		return None, err
	}
	switch {
	case bytes.HasPrefix(head, magicZstd):
		return Zstd, nil
	case bytes.HasPrefix(head, magicGzip):
		return Gzip, nil
	case bytes.HasPrefix(head, magicBzip2):
		return Bzip2, nil
	default:
		return None, nil
	}
}

// Decompress wraps r with the decoder matching its magic bytes.
// Closing the result releases the decoder but not r.
func Decompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	c, err := Sniff(br)
	if err != nil {
		return nil, None, err
	}
	switch c {
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxWindow(1<<31))
		if err != nil {
			return nil, c, fmt.Errorf("zstd: %w", err)
		}
		return zstdCloser{zr}, c, nil
	case Gzip:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("gzip: %w", err)
		}
		return gr, c, nil
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(br)), c, nil
	default:
		return io.NopCloser(br), c, nil
	}
}

type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}
