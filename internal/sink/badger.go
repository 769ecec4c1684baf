package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/snapetl-go/internal/core/domain"
	"github.com/yndnr/snapetl-go/internal/programs/token"
	"github.com/yndnr/snapetl-go/internal/telemetry/logger"
)

// Key prefixes of the Badger index. Keys are the prefix followed by raw
// 32-byte public keys.
var (
	PrefixAccount      = []byte("acct/")
	PrefixTokenAccount = []byte("tokacct/")
	PrefixTokenMint    = []byte("tokmint/")
	PrefixTokenMsig    = []byte("tokmsig/")
)

// AccountMetaLen is the size of an acct/ value:
// data_len u64, owner [32], lamports u64, executable u8, rent_epoch u64.
const AccountMetaLen = 8 + domain.PubkeySize + 8 + 1 + 8

// BadgerConfig tunes the index database.
type BadgerConfig struct {
	SyncWrites bool
	// CacheMB is the block cache size; 0 keeps Badger's default.
	CacheMB int
}

// Badger indexes account metadata and decoded token program state into a
// Badger database.
//
// The database is built in a temporary sibling directory and only moved to
// its final path by Commit, so an aborted run never leaves a partial index
// behind.
type Badger struct {
	passive
	db   *badger.DB
	wb   *badger.WriteBatch
	dir  string
	tmp  string
	log  logger.Logger
	done bool

	accounts      atomic.Uint64
	tokenAccounts atomic.Uint64
	mints         atomic.Uint64
	multisigs     atomic.Uint64
	invalidTokens atomic.Uint64
}

// OpenBadger creates a fresh index that Commit will place at dir.
func OpenBadger(dir string, cfg BadgerConfig, log logger.Logger) (*Badger, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	dir = filepath.Clean(dir)
	tmp := filepath.Join(filepath.Dir(dir), "_"+filepath.Base(dir)+".tmp")
	if err := os.RemoveAll(tmp); err != nil {
		return nil, fmt.Errorf("badger: clear %s: %w", tmp, err)
	}

	opts := badger.DefaultOptions(tmp).
		WithLogger(&badgerLogger{logger: log}).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.CacheMB > 0 {
		opts = opts.WithBlockCacheSize(int64(cfg.CacheMB) << 20)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	log.Info("badger index opened", "dir", dir, "tmp", tmp, "cache_mb", cfg.CacheMB)
	return &Badger{db: db, wb: db.NewWriteBatch(), dir: dir, tmp: tmp, log: log}, nil
}

// OnAccount implements extract.Sink.
//
// Accounts present in several segments are written once per occurrence; the
// last write of a key wins.
func (b *Badger) OnAccount(v *domain.AccountView) error {
	if err := b.wb.Set(indexKey(PrefixAccount, v.Pubkey), EncodeAccountMeta(v)); err != nil {
		return fmt.Errorf("badger: %w", err)
	}
	b.accounts.Add(1)
	if v.Owner == token.ProgramID {
		return b.indexToken(v)
	}
	return nil
}

func (b *Badger) indexToken(v *domain.AccountView) error {
	var err error
	switch token.KindOf(v.Data) {
	case token.KindAccount:
		a, derr := token.DecodeAccount(v.Data)
		if derr != nil {
			b.invalidTokens.Add(1)
			return nil
		}
		err = b.wb.Set(indexKey(PrefixTokenAccount, v.Pubkey), a.Encode())
		b.tokenAccounts.Add(1)
	case token.KindMint:
		m, derr := token.DecodeMint(v.Data)
		if derr != nil {
			b.invalidTokens.Add(1)
			return nil
		}
		err = b.wb.Set(indexKey(PrefixTokenMint, v.Pubkey), m.Encode())
		b.mints.Add(1)
	case token.KindMultisig:
		m, derr := token.DecodeMultisig(v.Data)
		if derr != nil {
			b.invalidTokens.Add(1)
			return nil
		}
		for _, s := range m.Signers {
			if err = b.wb.Set(MultisigKey(v.Pubkey, s), []byte{m.M, m.N}); err != nil {
				break
			}
		}
		b.multisigs.Add(1)
	default:
		b.log.Warn("token program account has unexpected size", "pubkey", v.Pubkey, "data_len", len(v.Data))
		return nil
	}
	if err != nil {
		return fmt.Errorf("badger: %w", err)
	}
	return nil
}

// Commit flushes pending writes, closes the database and moves it to its
// final directory, replacing any previous index there.
func (b *Badger) Commit() error {
	if b.done {
		return errors.New("badger: index already closed")
	}
	b.done = true
	if err := b.wb.Flush(); err != nil {
		_ = b.db.Close()
		_ = os.RemoveAll(b.tmp)
		return fmt.Errorf("badger: flush: %w", err)
	}
	if err := b.db.Close(); err != nil {
		_ = os.RemoveAll(b.tmp)
		return fmt.Errorf("badger: close db: %w", err)
	}
	if err := os.RemoveAll(b.dir); err != nil {
		return fmt.Errorf("badger: replace %s: %w", b.dir, err)
	}
	if err := os.Rename(b.tmp, b.dir); err != nil {
		return fmt.Errorf("badger: promote %s: %w", b.tmp, err)
	}
	b.log.Info("badger index committed",
		"dir", b.dir,
		"accounts", b.accounts.Load(),
		"token_accounts", b.tokenAccounts.Load(),
		"mints", b.mints.Load(),
		"multisigs", b.multisigs.Load(),
		"invalid_token_accounts", b.invalidTokens.Load(),
	)
	return nil
}

// Close discards the index unless Commit succeeded.
func (b *Badger) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.abort()
}

func (b *Badger) abort() error {
	b.wb.Cancel()
	err := b.db.Close()
	if rerr := os.RemoveAll(b.tmp); err == nil {
		err = rerr
	}
	b.log.Warn("badger index discarded", "tmp", b.tmp)
	return err
}

// RegisterMetrics exposes the index counters on reg.
func (b *Badger) RegisterMetrics(reg prometheus.Registerer) *Badger {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "snapetl",
			Subsystem: "badger",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}
	reg.MustRegister(
		counter("accounts_written_total", "Account meta records written.", &b.accounts),
		counter("token_accounts_written_total", "Token account records written.", &b.tokenAccounts),
		counter("token_mints_written_total", "Token mint records written.", &b.mints),
		counter("token_multisigs_written_total", "Token multisig accounts written.", &b.multisigs),
		counter("token_invalid_total", "Token program accounts that failed to decode.", &b.invalidTokens),
	)
	return b
}

// EncodeAccountMeta packs the acct/ value of v.
func EncodeAccountMeta(v *domain.AccountView) []byte {
	out := make([]byte, 0, AccountMetaLen)
	out = binary.LittleEndian.AppendUint64(out, v.DataLen())
	out = append(out, v.Owner[:]...)
	out = binary.LittleEndian.AppendUint64(out, v.Lamports)
	if v.Executable {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return binary.LittleEndian.AppendUint64(out, v.RentEpoch)
}

// AccountMeta is a decoded acct/ value.
type AccountMeta struct {
	DataLen    uint64
	Owner      domain.Pubkey
	Lamports   uint64
	Executable bool
	RentEpoch  uint64
}

// DecodeAccountMeta unpacks an acct/ value.
func DecodeAccountMeta(b []byte) (AccountMeta, error) {
	var m AccountMeta
	if len(b) != AccountMetaLen {
		return m, fmt.Errorf("badger: account meta is %d bytes, want %d", len(b), AccountMetaLen)
	}
	m.DataLen = binary.LittleEndian.Uint64(b)
	copy(m.Owner[:], b[8:40])
	m.Lamports = binary.LittleEndian.Uint64(b[40:])
	m.Executable = b[48] == 1
	m.RentEpoch = binary.LittleEndian.Uint64(b[49:])
	return m, nil
}

func indexKey(prefix []byte, pk domain.Pubkey) []byte {
	k := make([]byte, 0, len(prefix)+domain.PubkeySize)
	k = append(k, prefix...)
	return append(k, pk[:]...)
}

// MultisigKey returns tokmsig/<multisig>/<signer>.
func MultisigKey(msig, signer domain.Pubkey) []byte {
	k := make([]byte, 0, len(PrefixTokenMsig)+2*domain.PubkeySize+1)
	k = append(k, PrefixTokenMsig...)
	k = append(k, msig[:]...)
	k = append(k, '/')
	return append(k, signer[:]...)
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
