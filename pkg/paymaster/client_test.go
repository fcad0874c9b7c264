package paymaster

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/bundler"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/rpctest"
	"github.com/luxfi/safe4337/pkg/userop"
)

var (
	entryPoint = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	pmAddress  = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func unsignedOp() *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		Nonce:                "0x1",
		CallData:             "0x7bb37428",
		CallGasLimit:         "0x0",
		VerificationGasLimit: "0x0",
		PreVerificationGas:   "0x0",
		MaxFeePerGas:         "0x3b9aca00",
		MaxPriorityFeePerGas: "0x5f5e100",
		Signature:            "0x",
	}
}

func dial(t *testing.T, stub *rpctest.Paymaster) *Client {
	t.Helper()
	c, err := Dial(context.Background(), stub.Serve(t))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSponsorUserOperation(t *testing.T) {
	stub := rpctest.NewPaymaster(pmAddress)
	c := dial(t, stub)

	op := unsignedOp()
	s, err := c.SponsorUserOperation(context.Background(), op, entryPoint)
	require.NoError(t, err)
	assert.Equal(t, pmAddress.Hex(), s.Paymaster)
	require.Len(t, stub.Sponsored(), 1)
	assert.Equal(t, op.Nonce, stub.Sponsored()[0].Nonce)

	s.Apply(op)
	assert.Equal(t, "0xdeadbeef", op.PaymasterData)
	assert.Equal(t, "0x0", op.CallGasLimit)
	assert.NoError(t, op.ValidateUnsigned())
}

func TestSponsorshipOverridesGas(t *testing.T) {
	stub := rpctest.NewPaymaster(pmAddress)
	stub.SetResult(map[string]string{
		"paymaster":                     pmAddress.Hex(),
		"paymasterVerificationGasLimit": "0x7530",
		"paymasterPostOpGasLimit":       "0x0",
		"callGasLimit":                  "0x30d40",
		"preVerificationGas":            "0xea60",
	}, nil)
	c := dial(t, stub)

	op := unsignedOp()
	s, err := c.SponsorUserOperation(context.Background(), op, entryPoint)
	require.NoError(t, err)
	s.Apply(op)
	assert.Equal(t, "0x30d40", op.CallGasLimit)
	assert.Equal(t, "0xea60", op.PreVerificationGas)
	assert.Equal(t, "0x0", op.VerificationGasLimit)
	assert.Equal(t, "0x", op.PaymasterData)
}

func TestSponsorUserOperationFailure(t *testing.T) {
	stub := rpctest.NewPaymaster(pmAddress)
	stub.SetResult(nil, &rpctest.Error{Code: -32001, Message: "policy rejected"})
	c := dial(t, stub)

	_, err := c.SponsorUserOperation(context.Background(), unsignedOp(), entryPoint)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSponsorshipFailed))
	var be *bundler.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, -32001, be.Code)
}

func TestSponsorUserOperationMalformed(t *testing.T) {
	stub := rpctest.NewPaymaster(pmAddress)
	stub.SetResult(map[string]string{"paymaster": "0x1234"}, nil)
	c := dial(t, stub)

	_, err := c.SponsorUserOperation(context.Background(), unsignedOp(), entryPoint)
	assert.True(t, errors.IsKind(err, errors.KindSponsorshipFailed))
}
