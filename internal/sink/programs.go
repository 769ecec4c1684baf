package sink

import (
	"archive/tar"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/telemetry/logger"
)

// BPF loader program ids.
var (
	LoaderDeprecated  = domain.MustParsePubkey("BPFLoader1111111111111111111111111111111111")
	LoaderV2          = domain.MustParsePubkey("BPFLoader2111111111111111111111111111111111")
	LoaderUpgradeable = domain.MustParsePubkey("BPFLoaderUpgradeab1e11111111111111111111111")
)

const (
	// programDataVariant is the ProgramData discriminator of the
	// upgradeable loader state.
	programDataVariant = 3
	// programDataOffset is where the ELF starts in a ProgramData account:
	// variant u32, slot u64 and an Option<Pubkey> upgrade authority.
	programDataOffset = 4 + 8 + 1 + domain.PubkeySize
)

// Programs writes every deployed program as a <pubkey>.so entry of a tar
// stream.
type Programs struct {
	passive
	tw      *tar.Writer
	closer  io.Closer
	log     logger.Logger
	written int
	bytes   int64
	skipped int
	closed  bool
}

// NewPrograms creates a program dumper writing to w.
func NewPrograms(w io.Writer, log logger.Logger) *Programs {
	if log == nil {
		log = logger.Nop()
	}
	p := &Programs{tw: tar.NewWriter(w), log: log}
	if cl, ok := w.(io.Closer); ok && !isStdStream(w) {
		p.closer = cl
	}
	return p
}

// OnAccount implements extract.Sink.
func (p *Programs) OnAccount(v *domain.AccountView) error {
	switch v.Owner {
	case LoaderDeprecated, LoaderV2:
		if v.Executable {
			return p.write(v.Pubkey, v.Data)
		}
	case LoaderUpgradeable:
		if len(v.Data) < 4 {
			p.skipped++
			p.log.Debug("short upgradeable loader account", "pubkey", v.Pubkey, "data_len", len(v.Data))
			return nil
		}
		if binary.LittleEndian.Uint32(v.Data) != programDataVariant {
			return nil
		}
		if len(v.Data) < programDataOffset {
			p.skipped++
			p.log.Debug("short program data account", "pubkey", v.Pubkey, "data_len", len(v.Data))
			return nil
		}
		return p.write(v.Pubkey, v.Data[programDataOffset:])
	}
	return nil
}

func (p *Programs) write(pk domain.Pubkey, elf []byte) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     pk.String() + ".so",
		Size:     int64(len(elf)),
		Mode:     0o644,
		Format:   tar.FormatUSTAR,
	}
	if err := p.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("programs: %s: %w", hdr.Name, err)
	}
	if _, err := p.tw.Write(elf); err != nil {
		return fmt.Errorf("programs: %s: %w", hdr.Name, err)
	}
	p.written++
	p.bytes += int64(len(elf))
	return nil
}

// Written returns the number of programs written.
func (p *Programs) Written() int {
	return p.written
}

// Close finishes the tar stream.
func (p *Programs) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.tw.Close()
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
		p.closer = nil
	}
	p.log.Info("programs dumped", "count", p.written, "bytes", p.bytes, "skipped", p.skipped)
	if err != nil {
		return fmt.Errorf("programs: %w", err)
	}
	return nil
}
