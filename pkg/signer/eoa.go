package signer

import (
	"context"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/safe"
)

// EOASigner signs with a secp256k1 private key.
type EOASigner struct {
	key     *secp256k1.PrivateKey
	address common.Address
}

// NewEOASigner parses a 32-byte hex private key, with or without 0x.
func NewEOASigner(privateKeyHex string) (*EOASigner, error) {
	h := strings.TrimSpace(privateKeyHex)
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	raw, err := codec.HexToBytes(h)
	if err != nil || len(raw) != 32 {
		return nil, errors.Invalid("signer.NewEOASigner", errors.ErrInvalidSigner, "private key must be 32 bytes of hex")
	}
	key := secp256k1.PrivKeyFromBytes(raw)
	if key.Key.IsZero() {
		return nil, errors.Invalid("signer.NewEOASigner", errors.ErrInvalidSigner, "private key is zero")
	}
	pub := key.PubKey().SerializeUncompressed()
	return &EOASigner{
		key:     key,
		address: common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]),
	}, nil
}

// Address is the EOA derived from the key.
func (s *EOASigner) Address() common.Address {
	return s.address
}

// Sign produces a deterministic (RFC 6979), low-S r‖s‖v signature with v in {27, 28},
// the form Safe.checkSignatures accepts for an ECDSA owner.
func (s *EOASigner) Sign(ctx context.Context, digest common.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, "EOASigner.Sign", err)
	}
	compact := ecdsa.SignCompact(s.key, digest[:], false)
	// compact is [27+recid]‖R‖S
	return safe.PackSignature(compact[1:33], compact[33:65], compact[0]), nil
}

func (s *EOASigner) SafeOwner() safe.Owner {
	return safe.EOAOwner(s.address)
}

func (s *EOASigner) DummySignature(cfg safe.Config) ([]byte, error) {
	return safe.DummySignature(safe.SignatureEOA, cfg, nil)
}
