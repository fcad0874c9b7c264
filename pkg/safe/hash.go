package safe

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/userop"
)

// EIP-712 type hashes used by the Safe4337Module.
var (
	domainTypehash = crypto.Keccak256([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeOpTypehash = crypto.Keccak256([]byte(
		"SafeOp(address safe,uint256 nonce,bytes initCode,bytes callData," +
			"uint128 verificationGasLimit,uint128 callGasLimit,uint256 preVerificationGas," +
			"uint128 maxPriorityFeePerGas,uint128 maxFeePerGas,bytes paymasterAndData," +
			"uint48 validAfter,uint48 validUntil,address entryPoint)",
	))
)

// maxUint48 bounds the signature validity timestamps.
const maxUint48 = 1<<48 - 1

// ValidityWindow bounds when a signature is accepted. Zero values disable the check.
type ValidityWindow struct {
	ValidAfter uint64
	ValidUntil uint64
}

func (w ValidityWindow) validate() error {
	if w.ValidAfter > maxUint48 || w.ValidUntil > maxUint48 {
		return errors.Invalid("safe.ValidityWindow", errors.ErrInvalidUserOperation, "validity timestamps exceed uint48")
	}
	return nil
}

// SafeOp is the typed struct the Safe4337Module signs over.
type SafeOp struct {
	Safe                 common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
	PreVerificationGas   *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	PaymasterAndData     []byte
	ValidAfter           uint64
	ValidUntil           uint64
	EntryPoint           common.Address
}

// NewSafeOp converts an RPC user operation into its typed SafeOp form.
func NewSafeOp(op *userop.UserOperation, entryPoint common.Address, window ValidityWindow) (SafeOp, error) {
	if err := op.ValidateUnsigned(); err != nil {
		return SafeOp{}, err
	}
	if err := window.validate(); err != nil {
		return SafeOp{}, err
	}
	q, err := op.Quantities()
	if err != nil {
		return SafeOp{}, err
	}
	if err := checkWidths(q); err != nil {
		return SafeOp{}, err
	}
	initCode, err := op.PackedInitCode()
	if err != nil {
		return SafeOp{}, err
	}
	pmData, err := op.PackedPaymasterAndData()
	if err != nil {
		return SafeOp{}, err
	}
	callData := common.FromHex(op.CallData)

	return SafeOp{
		Safe:                 common.HexToAddress(op.Sender),
		Nonce:                q.Nonce,
		InitCode:             initCode,
		CallData:             callData,
		VerificationGasLimit: q.VerificationGasLimit,
		CallGasLimit:         q.CallGasLimit,
		PreVerificationGas:   q.PreVerificationGas,
		MaxPriorityFeePerGas: q.MaxPriorityFeePerGas,
		MaxFeePerGas:         q.MaxFeePerGas,
		PaymasterAndData:     pmData,
		ValidAfter:           window.ValidAfter,
		ValidUntil:           window.ValidUntil,
		EntryPoint:           entryPoint,
	}, nil
}

// checkWidths rejects quantities wider than their SafeOp field; a wider value
// would otherwise alias a smaller one once packed into its slot.
func checkWidths(q userop.Quantities) error {
	fields := []struct {
		name string
		n    *big.Int
		bits int
	}{
		{"nonce", q.Nonce, 256},
		{"verificationGasLimit", q.VerificationGasLimit, 128},
		{"callGasLimit", q.CallGasLimit, 128},
		{"preVerificationGas", q.PreVerificationGas, 256},
		{"maxPriorityFeePerGas", q.MaxPriorityFeePerGas, 128},
		{"maxFeePerGas", q.MaxFeePerGas, 128},
	}
	for _, f := range fields {
		if f.n.BitLen() > f.bits {
			return errors.Invalid("safe.NewSafeOp", errors.ErrInvalidUserOperation, "%s exceeds uint%d", f.name, f.bits)
		}
	}
	return nil
}

func validChainID(id *big.Int) bool {
	return id != nil && id.Sign() > 0 && id.BitLen() <= 256
}

// DomainSeparator is the module's EIP-712 domain for chainID.
func DomainSeparator(chainID *big.Int, verifyingContract common.Address) []byte {
	return crypto.Keccak256(domainTypehash, abiUint256(chainID), abiAddress(verifyingContract))
}

func (o SafeOp) structHash() []byte {
	encoded := make([]byte, 0, 32*14)
	encoded = append(encoded, safeOpTypehash...)
	encoded = append(encoded, abiAddress(o.Safe)...)
	encoded = append(encoded, abiUint256(o.Nonce)...)
	encoded = append(encoded, crypto.Keccak256(o.InitCode)...)
	encoded = append(encoded, crypto.Keccak256(o.CallData)...)
	encoded = append(encoded, abiUint256(o.VerificationGasLimit)...)
	encoded = append(encoded, abiUint256(o.CallGasLimit)...)
	encoded = append(encoded, abiUint256(o.PreVerificationGas)...)
	encoded = append(encoded, abiUint256(o.MaxPriorityFeePerGas)...)
	encoded = append(encoded, abiUint256(o.MaxFeePerGas)...)
	encoded = append(encoded, crypto.Keccak256(o.PaymasterAndData)...)
	encoded = append(encoded, abiUint64(o.ValidAfter)...)
	encoded = append(encoded, abiUint64(o.ValidUntil)...)
	encoded = append(encoded, abiAddress(o.EntryPoint)...)
	return crypto.Keccak256(encoded)
}

// Hash returns keccak256(0x1901 ‖ domainSeparator ‖ structHash).
func (o SafeOp) Hash(chainID *big.Int, module common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte{0x19, 0x01}, DomainSeparator(chainID, module), o.structHash()))
}

// HashUserOperation is the digest every owner signs for op on chainID.
// The signature field of op is ignored.
func HashUserOperation(op *userop.UserOperation, chainID *big.Int, cfg Config, window ValidityWindow) (common.Hash, error) {
	if !validChainID(chainID) {
		return common.Hash{}, errors.Invalid("safe.HashUserOperation", errors.ErrInvalidConfig, "chain id must be a positive uint256")
	}
	if err := cfg.Validate(); err != nil {
		return common.Hash{}, err
	}
	safeOp, err := NewSafeOp(op, cfg.EntryPoint(), window)
	if err != nil {
		return common.Hash{}, err
	}
	return safeOp.Hash(chainID, cfg.Module()), nil
}
