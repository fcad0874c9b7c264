package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/safe"
	"github.com/luxfi/safe4337/pkg/signer"
)

// SignMessage signs msg for ERC-1271 verification by the Safe: the owner signs
// the SafeMessage hash of the EIP-191 hash of msg. The result is the owner
// signature as checkSignatures expects it, without a validity window.
func (a *Account) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	raw, err := a.signer.Sign(ctx, a.MessageHash(msg))
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, "account.SignMessage", err)
	}
	return safe.EncodeOwnerSignature(raw, signer.Kind(a.signer), a.cfg)
}

// IsValidSignature asks the Safe whether sig is valid for msg through
// isValidSignature(bytes32,bytes). An undeployed Safe answers false.
func (a *Account) IsValidSignature(ctx context.Context, msg, sig []byte) (bool, error) {
	out, err := a.call(ctx, a.address, safe.SafeABI, "isValidSignature", safe.HashMessage(msg), sig)
	if err != nil {
		return false, err
	}
	if out == nil {
		return false, nil
	}
	magic, ok := out[0].([4]byte)
	return ok && magic == safe.MagicValueERC1271, nil
}

// MessageHash is the digest SignMessage signs, exposed for off-chain checks.
func (a *Account) MessageHash(msg []byte) common.Hash {
	return safe.SafeMessageHash(a.address, a.chainID, safe.HashMessage(msg))
}
