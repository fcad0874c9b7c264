package safe

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var safeMessageTypehash = crypto.Keccak256([]byte("SafeMessage(bytes message)"))

// MagicValueERC1271 is returned by isValidSignature(bytes32,bytes) on success.
var MagicValueERC1271 = [4]byte{0x16, 0x26, 0xba, 0x7e}

// HashMessage is the EIP-191 personal message hash of msg.
func HashMessage(msg []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(msg))
}

// SafeMessageHash is the digest owners sign so that the Safe fallback handler's
// isValidSignature(dataHash, sig) accepts it. The domain is the Safe itself.
func SafeMessageHash(safeAddr common.Address, chainID *big.Int, dataHash common.Hash) common.Hash {
	structHash := crypto.Keccak256(safeMessageTypehash, crypto.Keccak256(abi32(dataHash.Bytes())))
	return common.BytesToHash(crypto.Keccak256([]byte{0x19, 0x01}, DomainSeparator(chainID, safeAddr), structHash))
}
