package bundler

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/rpctest"
	"github.com/luxfi/safe4337/pkg/userop"
)

var entryPoint = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

func signedOp() *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		Nonce:                "0x0",
		CallData:             "0x7bb37428",
		CallGasLimit:         "0x186a0",
		VerificationGasLimit: "0x493e0",
		PreVerificationGas:   "0xc350",
		MaxFeePerGas:         "0x3b9aca00",
		MaxPriorityFeePerGas: "0x5f5e100",
		Signature:            "0x00000000000000000000000001",
	}
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func revertData(t *testing.T, reason string) string {
	t.Helper()
	strTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strTy}}.Pack(reason)
	require.NoError(t, err)
	return "0x08c379a0" + common.Bytes2Hex(packed)
}

func TestSendUserOperation(t *testing.T) {
	stub := rpctest.NewBundler()
	c := dial(t, stub.Serve(t))

	op := signedOp()
	hash, err := c.SendUserOperation(context.Background(), op, entryPoint)
	require.NoError(t, err)
	assert.Equal(t, rpctest.OpHash(*op), hash)

	sent := stub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, *op, sent[0])
}

func TestSendUserOperationRevert(t *testing.T) {
	stub := rpctest.NewBundler()
	stub.FailSend(&rpctest.Error{Code: -32500, Message: "AA23 reverted", Data: revertData(t, "not enough funds")})
	c := dial(t, stub.Serve(t))

	_, err := c.SendUserOperation(context.Background(), signedOp(), entryPoint)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSubmissionFailed))
	assert.Contains(t, err.Error(), "not enough funds")

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, -32500, be.Code)
	assert.Equal(t, "AA23 reverted", be.Message)
}

func TestSendUserOperationRejectsInvalid(t *testing.T) {
	stub := rpctest.NewBundler()
	c := dial(t, stub.Serve(t))

	op := signedOp()
	op.Sender = ""
	_, err := c.SendUserOperation(context.Background(), op, entryPoint)
	assert.ErrorIs(t, err, errors.ErrInvalidUserOperation)
	assert.Empty(t, stub.Sent())
}

func TestEstimateUserOperationGas(t *testing.T) {
	stub := rpctest.NewBundler()
	c := dial(t, stub.Serve(t))

	est, err := c.EstimateUserOperationGas(context.Background(), signedOp(), entryPoint)
	require.NoError(t, err)
	assert.Equal(t, "0x186a0", est.CallGasLimit)
	assert.Equal(t, "0x61a80", est.VerificationGasLimit)
	assert.Equal(t, "0xc350", est.PreVerificationGas)

	stub.SetEstimate(nil, &rpctest.Error{Code: -32602, Message: "invalid fields"})
	_, err = c.EstimateUserOperationGas(context.Background(), signedOp(), entryPoint)
	assert.True(t, errors.IsKind(err, errors.KindEstimationFailed))
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, -32602, be.Code)
}

func TestGetUserOperationReceipt(t *testing.T) {
	stub := rpctest.NewBundler()
	stub.SetReceipt(map[string]interface{}{
		"userOpHash": "0x01",
		"sender":     "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		"nonce":      "0x0",
		"success":    true,
		"receipt":    map[string]interface{}{"transactionHash": "0xabc", "status": "0x1"},
	}, 1)
	c := dial(t, stub.Serve(t))

	r, err := c.GetUserOperationReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = c.GetUserOperationReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Success)
	assert.Equal(t, "0xabc", r.Receipt.TransactionHash)
	assert.Equal(t, 2, stub.ReceiptCalls())
}

func TestGetUserOperationByHash(t *testing.T) {
	stub := rpctest.NewBundler()
	c := dial(t, stub.Serve(t))

	r, err := c.GetUserOperationByHash(context.Background(), common.Hash{2})
	require.NoError(t, err)
	assert.Nil(t, r)

	stub.SetByHash(map[string]interface{}{
		"userOperation":   signedOp(),
		"entryPoint":      entryPoint.Hex(),
		"transactionHash": "0xdef",
		"blockNumber":     "0x10",
	})
	r, err = c.GetUserOperationByHash(context.Background(), common.Hash{2})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "0x10", r.BlockNumber)
	assert.Equal(t, signedOp().Sender, r.UserOperation.Sender)
}

func TestSupportedEntryPoints(t *testing.T) {
	stub := rpctest.NewBundler()
	stub.SetEntryPoints(entryPoint)
	c := dial(t, stub.Serve(t))

	eps, err := c.SupportedEntryPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{entryPoint}, eps)
}

func TestRevertReasonWithoutData(t *testing.T) {
	_, ok := (&Error{Code: -32000, Message: "x"}).RevertReason()
	assert.False(t, ok)
	_, ok = (&Error{Data: "0x1234"}).RevertReason()
	assert.False(t, ok)
}
