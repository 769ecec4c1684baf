package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the length of an account address in bytes.
const PubkeySize = 32

// HashSize is the length of an account or bank hash in bytes.
const HashSize = 32

// Pubkey is a 32-byte account address.
type Pubkey [PubkeySize]byte

// Hash is a 32-byte digest as stored in snapshots.
type Hash [HashSize]byte

// ParsePubkey decodes a base58 account address.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("pubkey: decode %q: %w", s, err)
	}
	if len(raw) != PubkeySize {
		return pk, fmt.Errorf("pubkey: %q decodes to %d bytes, want %d", s, len(raw), PubkeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePubkey is ParsePubkey for package-level constants.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether every byte is zero.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// String returns the base58 form.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
