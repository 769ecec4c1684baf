package sink

import (
	"io"
	"os"

	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
)

// Sink is an extract.Sink that owns resources released by Close.
type Sink interface {
	extract.Sink
	io.Closer
}

// passive supplies the event callbacks for sinks that only care about
// accounts: skipped segments are ignored and recoverable errors continue.
type passive struct{}

func (passive) OnSegmentSkipped(uint64, uint64) {}

func (passive) OnError(error) error { return nil }

func isStdStream(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}
