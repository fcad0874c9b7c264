// Package signer implements the two owner kinds of a Safe account: a raw
// secp256k1 key and a WebAuthn passkey verified by the shared signer contract.
package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/safe"
)

// Signer signs 32-byte digests on behalf of a Safe owner. Implementations are
// immutable and safe for concurrent use.
type Signer interface {
	// Sign returns the raw owner signature: r‖s‖v for an EOA, the ABI encoded
	// WebAuthn payload for a passkey.
	Sign(ctx context.Context, digest common.Hash) ([]byte, error)
	// SafeOwner is the public identity the Safe is set up with.
	SafeOwner() safe.Owner
	// DummySignature is a user operation signature of realistic size for gas estimation.
	DummySignature(cfg safe.Config) ([]byte, error)
}

// OnChainOwner returns the address s occupies in the Safe owner list.
func OnChainOwner(s Signer, cfg safe.Config) common.Address {
	return s.SafeOwner().OnChainOwner(cfg)
}

// Kind returns the signature layout of s.
func Kind(s Signer) safe.SignatureKind {
	return safe.SignatureKindOf(s.SafeOwner())
}
