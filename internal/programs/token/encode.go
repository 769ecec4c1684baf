package token

import (
	"encoding/binary"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

// The encoders produce the packed layouts read by the Decode functions.

// Encode packs a into AccountLen bytes.
func (a *Account) Encode() []byte {
	b := make([]byte, 0, AccountLen)
	b = append(b, a.Mint[:]...)
	b = append(b, a.Owner[:]...)
	b = binary.LittleEndian.AppendUint64(b, a.Amount)
	b = appendOptPubkey(b, a.Delegate)
	b = append(b, byte(a.State))
	if a.IsNative != nil {
		b = binary.LittleEndian.AppendUint32(b, 1)
		b = binary.LittleEndian.AppendUint64(b, *a.IsNative)
	} else {
		b = binary.LittleEndian.AppendUint32(b, 0)
		b = binary.LittleEndian.AppendUint64(b, 0)
	}
	b = binary.LittleEndian.AppendUint64(b, a.DelegatedAmount)
	return appendOptPubkey(b, a.CloseAuthority)
}

// Encode packs m into MintLen bytes.
func (m *Mint) Encode() []byte {
	b := make([]byte, 0, MintLen)
	b = appendOptPubkey(b, m.MintAuthority)
	b = binary.LittleEndian.AppendUint64(b, m.Supply)
	b = append(b, m.Decimals, boolByte(m.IsInitialized))
	return appendOptPubkey(b, m.FreezeAuthority)
}

// Encode packs m into MultisigLen bytes. Unused signer slots are zero.
func (m *Multisig) Encode() []byte {
	b := make([]byte, MultisigLen)
	b[0], b[1], b[2] = m.M, m.N, boolByte(m.IsInitialized)
	for i, s := range m.Signers {
		if i == MaxSigners {
			break
		}
		copy(b[3+i*domain.PubkeySize:], s[:])
	}
	return b
}

func appendOptPubkey(b []byte, pk *domain.Pubkey) []byte {
	if pk == nil {
		b = binary.LittleEndian.AppendUint32(b, 0)
		return append(b, make([]byte, domain.PubkeySize)...)
	}
	b = binary.LittleEndian.AppendUint32(b, 1)
	return append(b, pk[:]...)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
