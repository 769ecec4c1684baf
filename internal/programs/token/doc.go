// Package token decodes the fixed-size account layouts of the SPL token
// program: token accounts, mints and multisig authorities.
//
// Decoding is by exact data length, the same way the program itself tells
// the kinds apart. Uninitialized accounts and invalid option tags are
// rejected with ErrInvalidAccount.
package token
