// Package userop models the EntryPoint v0.7 user operation in its RPC form.
package userop

import (
	"math/big"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// UserOperation is an unpacked v0.7 user operation. Every field is 0x hex, the
// same shape eth_sendUserOperation and eth_estimateUserOperationGas accept.
type UserOperation struct {
	Sender                        string `json:"sender" mapstructure:"sender"`
	Nonce                         string `json:"nonce" mapstructure:"nonce"`
	Factory                       string `json:"factory,omitempty" mapstructure:"factory"`
	FactoryData                   string `json:"factoryData,omitempty" mapstructure:"factoryData"`
	CallData                      string `json:"callData" mapstructure:"callData"`
	CallGasLimit                  string `json:"callGasLimit" mapstructure:"callGasLimit"`
	VerificationGasLimit          string `json:"verificationGasLimit" mapstructure:"verificationGasLimit"`
	PreVerificationGas            string `json:"preVerificationGas" mapstructure:"preVerificationGas"`
	MaxFeePerGas                  string `json:"maxFeePerGas" mapstructure:"maxFeePerGas"`
	MaxPriorityFeePerGas          string `json:"maxPriorityFeePerGas" mapstructure:"maxPriorityFeePerGas"`
	Paymaster                     string `json:"paymaster,omitempty" mapstructure:"paymaster"`
	PaymasterData                 string `json:"paymasterData,omitempty" mapstructure:"paymasterData"`
	PaymasterVerificationGasLimit string `json:"paymasterVerificationGasLimit,omitempty" mapstructure:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       string `json:"paymasterPostOpGasLimit,omitempty" mapstructure:"paymasterPostOpGasLimit"`
	Signature                     string `json:"signature" mapstructure:"signature"`
}

// Clone returns a copy that can be mutated independently.
func (op *UserOperation) Clone() *UserOperation {
	c := *op
	return &c
}

// HasPaymaster reports whether paymaster sponsorship fields are set.
func (op *UserOperation) HasPaymaster() bool {
	return op.Paymaster != ""
}

// Validate checks field presence and hex shape. It runs before any hashing or
// signing so malformed input never reaches the network.
func (op *UserOperation) Validate() error {
	const name = "UserOperation.Validate"
	invalid := func(format string, args ...interface{}) error {
		return errors.Invalid(name, errors.ErrInvalidUserOperation, format, args...)
	}

	if op.Sender == "" || !codec.IsValidEthereumAddress(op.Sender) {
		return invalid("invalid sender address")
	}
	if op.Nonce == "" || !codec.IsValidHex(op.Nonce) {
		return invalid("invalid nonce")
	}
	if op.Factory != "" && !codec.IsValidEthereumAddress(op.Factory) {
		return invalid("invalid factory address")
	}
	if op.FactoryData != "" && !codec.IsValidHex(op.FactoryData) {
		return invalid("invalid factory data")
	}
	if op.CallData == "" || !codec.IsValidHex(op.CallData) {
		return invalid("invalid call data")
	}

	required := []struct{ name, value string }{
		{"preVerificationGas", op.PreVerificationGas},
		{"callGasLimit", op.CallGasLimit},
		{"verificationGasLimit", op.VerificationGasLimit},
		{"maxFeePerGas", op.MaxFeePerGas},
		{"maxPriorityFeePerGas", op.MaxPriorityFeePerGas},
	}
	for _, f := range required {
		if f.value == "" || !codec.IsValidHex(f.value) {
			return invalid("invalid %s", f.name)
		}
	}

	if err := op.validatePaymaster(); err != nil {
		return err
	}

	if op.Signature == "" || !codec.IsValidHex(op.Signature) {
		return invalid("invalid signature")
	}
	return nil
}

// ValidateUnsigned runs Validate with the signature check relaxed, which is the
// state of an operation between Prepare and Sign.
func (op *UserOperation) ValidateUnsigned() error {
	c := op.Clone()
	if c.Signature == "" {
		c.Signature = "0x"
	}
	return c.Validate()
}

func (op *UserOperation) validatePaymaster() error {
	const name = "UserOperation.Validate"
	if op.Paymaster != "" && !codec.IsValidEthereumAddress(op.Paymaster) {
		return errors.Invalid(name, errors.ErrInvalidUserOperation, "invalid paymaster address")
	}
	optional := []struct{ name, value string }{
		{"paymaster data", op.PaymasterData},
		{"paymasterVerificationGasLimit", op.PaymasterVerificationGasLimit},
		{"paymasterPostOpGasLimit", op.PaymasterPostOpGasLimit},
	}
	for _, f := range optional {
		if f.value == "" {
			continue
		}
		if !codec.IsValidHex(f.value) {
			return errors.Invalid(name, errors.ErrInvalidUserOperation, "invalid %s", f.name)
		}
		if op.Paymaster == "" {
			return errors.Invalid(name, errors.ErrInvalidUserOperation, "%s set without paymaster", f.name)
		}
	}
	if op.Paymaster != "" && (op.PaymasterVerificationGasLimit == "" || op.PaymasterPostOpGasLimit == "") {
		return errors.Invalid(name, errors.ErrInvalidUserOperation, "paymaster set without gas limits")
	}
	return nil
}

// PackedInitCode returns factory‖factoryData, or nil for a deployed sender.
func (op *UserOperation) PackedInitCode() ([]byte, error) {
	if op.Factory == "" {
		return nil, nil
	}
	factory, err := codec.HexToBytes(op.Factory)
	if err != nil {
		return nil, err
	}
	data, err := optionalBytes(op.FactoryData)
	if err != nil {
		return nil, err
	}
	return append(factory, data...), nil
}

// PackedPaymasterAndData returns
// paymaster(20)‖uint128 verificationGasLimit‖uint128 postOpGasLimit‖paymasterData,
// or nil when no paymaster is set.
func (op *UserOperation) PackedPaymasterAndData() ([]byte, error) {
	if op.Paymaster == "" {
		return nil, nil
	}
	pm, err := codec.HexToBytes(op.Paymaster)
	if err != nil {
		return nil, err
	}
	vgl, err := optionalBig(op.PaymasterVerificationGasLimit)
	if err != nil {
		return nil, err
	}
	pogl, err := optionalBig(op.PaymasterPostOpGasLimit)
	if err != nil {
		return nil, err
	}
	data, err := optionalBytes(op.PaymasterData)
	if err != nil {
		return nil, err
	}

	if vgl.BitLen() > 128 || pogl.BitLen() > 128 {
		return nil, errors.Invalid("PackedPaymasterAndData", errors.ErrInvalidUserOperation, "paymaster gas limit exceeds uint128")
	}

	out := make([]byte, 0, 52+len(data))
	out = append(out, pm...)
	out = append(out, uint128(vgl)...)
	out = append(out, uint128(pogl)...)
	out = append(out, data...)
	return out, nil
}

// Quantities parses the numeric fields used by the SafeOp hash.
func (op *UserOperation) Quantities() (Quantities, error) {
	m, err := codec.DecodeQuantities(map[string]string{
		"nonce":                op.Nonce,
		"callGasLimit":         op.CallGasLimit,
		"verificationGasLimit": op.VerificationGasLimit,
		"preVerificationGas":   op.PreVerificationGas,
		"maxFeePerGas":         op.MaxFeePerGas,
		"maxPriorityFeePerGas": op.MaxPriorityFeePerGas,
	})
	if err != nil {
		return Quantities{}, errors.Invalid("UserOperation.Quantities", errors.ErrInvalidUserOperation, "%v", err)
	}
	return Quantities{
		Nonce:                m["nonce"],
		CallGasLimit:         m["callGasLimit"],
		VerificationGasLimit: m["verificationGasLimit"],
		PreVerificationGas:   m["preVerificationGas"],
		MaxFeePerGas:         m["maxFeePerGas"],
		MaxPriorityFeePerGas: m["maxPriorityFeePerGas"],
	}, nil
}

// Quantities holds the parsed numeric fields of a user operation.
type Quantities struct {
	Nonce                *big.Int
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

func optionalBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return codec.HexToBytes(s)
}

func optionalBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return codec.HexToBigInt(s)
}

func uint128(n *big.Int) []byte {
	slot := make([]byte, 16)
	n.FillBytes(slot)
	return slot
}
