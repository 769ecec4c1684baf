package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/snapetl-go/internal/sink"
	"github.com/yndnr/snapetl-go/internal/snapshot/appendvec"
	"github.com/yndnr/snapetl-go/internal/snapshot/snaptest"
)

// runApp runs the CLI with args and captures its output streams.
func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	err = app.Run(append([]string{"snapetl", "--log-level", "error"}, args...))
	return out.String(), errOut.String(), err
}

// elf is sized so that the four records of segment (100,7) fill its
// declared 4096 bytes exactly: 144 + 136 + 144 + 136 + 3536.
var elf = append([]byte("\x7fELF program"), make([]byte, 3536-12)...)

func rec(k byte, owner [32]byte, lamports uint64, data []byte) appendvec.Record {
	return appendvec.Record{
		WriteVersion: uint64(k),
		Pubkey:       snaptest.Key(k),
		Owner:        owner,
		Lamports:     lamports,
		Data:         data,
	}
}

// testArchive has one indexed segment (100,7) with three plain accounts
// and one deployed program, plus an unindexed segment (100,3).
func testArchive() *snaptest.Archive {
	plain := snaptest.Key(0xEE)
	program := rec(4, sink.LoaderV2, 1, elf)
	program.Executable = true

	seg := snaptest.Segment(0,
		rec(1, plain, 10, []byte("a")),
		rec(2, plain, 20, nil),
		rec(3, plain, 30, []byte("ccc")),
		program,
	)
	if len(seg) != 4096 {
		panic(fmt.Sprintf("segment (100,7) is %d bytes, want 4096", len(seg)))
	}

	var a snaptest.Archive
	a.AddVersion("1.2.0").
		AddManifest(snaptest.Manifest{
			Slot:       100,
			ParentSlot: 99,
			Epoch:      1,
			Hash:       snaptest.Key(0x11),
			Storage:    []snaptest.Storage{{Slot: 100, ID: 7, Len: 4096}},
		}).
		AddSegment(100, 7, seg).
		AddSegment(100, 3, snaptest.Segment(1024, rec(9, plain, 90, []byte("orphan"))))
	return &a
}

// writeArchive stores the zstd-compressed test archive and returns its path.
func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot-100.tar.zst")
	if err := os.WriteFile(path, testArchive().Zstd(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
