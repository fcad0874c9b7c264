package userop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

func validOp() *UserOperation {
	return &UserOperation{
		Sender:               "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		Nonce:                "0x0",
		CallData:             "0x7bb37428",
		CallGasLimit:         "0x186a0",
		VerificationGasLimit: "0x493e0",
		PreVerificationGas:   "0xc350",
		MaxFeePerGas:         "0x3b9aca00",
		MaxPriorityFeePerGas: "0x5f5e100",
		Signature:            "0x",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOp().Validate())

	cases := map[string]func(op *UserOperation){
		"missing sender":       func(op *UserOperation) { op.Sender = "" },
		"malformed nonce":      func(op *UserOperation) { op.Nonce = "12" },
		"bad factory":          func(op *UserOperation) { op.Factory = "0x12" },
		"missing callData":     func(op *UserOperation) { op.CallData = "" },
		"missing fee":          func(op *UserOperation) { op.MaxFeePerGas = "" },
		"missing signature":    func(op *UserOperation) { op.Signature = "" },
		"pm data without pm":   func(op *UserOperation) { op.PaymasterData = "0x01" },
		"pm without gas limit": func(op *UserOperation) { op.Paymaster = codec.ZeroAddress },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			op := validOp()
			mutate(op)
			err := op.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidUserOperation))
			assert.True(t, errors.IsKind(err, errors.KindValidation))
		})
	}
}

func TestValidateUnsigned(t *testing.T) {
	op := validOp()
	op.Signature = ""
	assert.NoError(t, op.ValidateUnsigned())
	assert.Empty(t, op.Signature, "ValidateUnsigned must not mutate the receiver")
}

func TestPackedInitCode(t *testing.T) {
	op := validOp()
	ic, err := op.PackedInitCode()
	require.NoError(t, err)
	assert.Nil(t, ic)

	op.Factory = "0x4e1DCf7AD4e460CfD30791CCC4F9c8a4f820ec67"
	op.FactoryData = "0x1688f0b9"
	ic, err = op.PackedInitCode()
	require.NoError(t, err)
	assert.Equal(t, "0x4e1dcf7ad4e460cfd30791ccc4f9c8a4f820ec671688f0b9", codec.BytesToHex(ic))
}

func TestPackedPaymasterAndData(t *testing.T) {
	op := validOp()
	op.Paymaster = "0x0000000000000039cd5e8aE05257CE51C473ddd1"
	op.PaymasterVerificationGasLimit = "0x1"
	op.PaymasterPostOpGasLimit = "0x2"
	op.PaymasterData = "0xabcd"
	require.NoError(t, op.Validate())

	pad, err := op.PackedPaymasterAndData()
	require.NoError(t, err)
	require.Len(t, pad, 20+16+16+2)
	assert.Equal(t, byte(0x01), pad[35])
	assert.Equal(t, byte(0x02), pad[51])
	assert.Equal(t, []byte{0xab, 0xcd}, pad[52:])
}

func TestTransactionParamsDefaults(t *testing.T) {
	p := TransactionParams{To: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"}.WithDefaults()
	assert.Equal(t, "0x0", p.Value)
	assert.Equal(t, "0x", p.Data)
	assert.False(t, p.DelegateCall)
	require.NoError(t, p.Validate())

	err := TransactionParams{To: "nope"}.WithDefaults().Validate()
	assert.True(t, errors.Is(err, errors.ErrInvalidTransactionParams))
}
