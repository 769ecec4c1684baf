package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// ProgramID is the SPL token program.
var ProgramID = domain.MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// Packed sizes.
const (
	AccountLen  = 165
	MintLen     = 82
	MultisigLen = 355

	// MaxSigners is the number of signer slots in a multisig account.
	MaxSigners = 11
)

// ErrInvalidAccount is returned for data that does not hold an initialized
// account of the requested kind.
var ErrInvalidAccount = errors.New("token: invalid account data")

// Kind tells the token account layouts apart.
type Kind int

const (
	KindUnknown Kind = iota
	KindAccount
	KindMint
	KindMultisig
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindMint:
		return "mint"
	case KindMultisig:
		return "multisig"
	default:
		return "unknown"
	}
}

// KindOf classifies token program data by its length.
func KindOf(data []byte) Kind {
	switch len(data) {
	case AccountLen:
		return KindAccount
	case MintLen:
		return KindMint
	case MultisigLen:
		return KindMultisig
	default:
		return KindUnknown
	}
}

// AccountState is the state byte of a token account.
type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

// Account is a token holding.
type Account struct {
	Mint            domain.Pubkey
	Owner           domain.Pubkey
	Amount          uint64
	Delegate        *domain.Pubkey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *domain.Pubkey
}

// Mint is a token definition.
type Mint struct {
	MintAuthority   *domain.Pubkey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *domain.Pubkey
}

// Multisig is an m-of-n signer set. Signers holds the first N entries.
type Multisig struct {
	M             uint8
	N             uint8
	IsInitialized bool
	Signers       []domain.Pubkey
}

// cursor reads little-endian fields off a fixed-size buffer whose length the
// caller has already checked.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) pubkey() domain.Pubkey {
	var pk domain.Pubkey
	copy(pk[:], c.b[c.off:c.off+domain.PubkeySize])
	c.off += domain.PubkeySize
	return pk
}

func (c *cursor) u8() uint8 {
	v := c.b[c.off]
	c.off++
	return v
}

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.b[c.off:])
	c.off += 8
	return v
}

func (c *cursor) bool() bool {
	switch v := c.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		c.fail("bool byte %d at %d", v, c.off-1)
		return false
	}
}

// tag reads the 4-byte COption discriminator.
func (c *cursor) tag() bool {
	v := binary.LittleEndian.Uint32(c.b[c.off:])
	c.off += 4
	switch v {
	case 0:
		return false
	case 1:
		return true
	default:
		c.fail("option tag %d at %d", v, c.off-4)
		return false
	}
}

// optPubkey consumes a COption<Pubkey>; the payload is present on the wire
// either way.
func (c *cursor) optPubkey() *domain.Pubkey {
	some := c.tag()
	pk := c.pubkey()
	if !some {
		return nil
	}
	return &pk
}

func (c *cursor) optU64() *uint64 {
	some := c.tag()
	v := c.u64()
	if !some {
		return nil
	}
	return &v
}

func (c *cursor) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidAccount}, args...)...)
	}
}

func checkLen(data []byte, want int, kind Kind) error {
	if len(data) != want {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidAccount, kind, want, len(data))
	}
	return nil
}

// DecodeAccount unpacks a 165-byte token account.
func DecodeAccount(data []byte) (*Account, error) {
	if err := checkLen(data, AccountLen, KindAccount); err != nil {
		return nil, err
	}
	c := &cursor{b: data}
	a := &Account{
		Mint:     c.pubkey(),
		Owner:    c.pubkey(),
		Amount:   c.u64(),
		Delegate: c.optPubkey(),
		State:    AccountState(c.u8()),
	}
	a.IsNative = c.optU64()
	a.DelegatedAmount = c.u64()
	a.CloseAuthority = c.optPubkey()
	if c.err != nil {
		return nil, c.err
	}
	switch a.State {
	case StateInitialized, StateFrozen:
	case StateUninitialized:
		return nil, fmt.Errorf("%w: account not initialized", ErrInvalidAccount)
	default:
		return nil, fmt.Errorf("%w: account state %d", ErrInvalidAccount, a.State)
	}
	return a, nil
}

// DecodeMint unpacks an 82-byte mint.
func DecodeMint(data []byte) (*Mint, error) {
	if err := checkLen(data, MintLen, KindMint); err != nil {
		return nil, err
	}
	c := &cursor{b: data}
	m := &Mint{MintAuthority: c.optPubkey()}
	m.Supply = c.u64()
	m.Decimals = c.u8()
	m.IsInitialized = c.bool()
	m.FreezeAuthority = c.optPubkey()
	if c.err != nil {
		return nil, c.err
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: mint not initialized", ErrInvalidAccount)
	}
	return m, nil
}

// DecodeMultisig unpacks a 355-byte multisig account.
func DecodeMultisig(data []byte) (*Multisig, error) {
	if err := checkLen(data, MultisigLen, KindMultisig); err != nil {
		return nil, err
	}
	c := &cursor{b: data}
	m := &Multisig{M: c.u8(), N: c.u8(), IsInitialized: c.bool()}
	if c.err != nil {
		return nil, c.err
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: multisig not initialized", ErrInvalidAccount)
	}
	if m.N > MaxSigners {
		return nil, fmt.Errorf("%w: multisig n=%d exceeds %d", ErrInvalidAccount, m.N, MaxSigners)
	}
	m.Signers = make([]domain.Pubkey, m.N)
	for i := range m.Signers {
		m.Signers[i] = c.pubkey()
	}
	return m, nil
}
