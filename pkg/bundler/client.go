// Package bundler is a JSON-RPC client for ERC-4337 bundlers. Calls are never
// retried here; receipt polling lives in pkg/poller.
package bundler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/userop"
)

const (
	methodSendUserOperation        = "eth_sendUserOperation"
	methodEstimateUserOperationGas = "eth_estimateUserOperationGas"
	methodGetUserOperationReceipt  = "eth_getUserOperationReceipt"
	methodGetUserOperationByHash   = "eth_getUserOperationByHash"
	methodSupportedEntryPoints     = "eth_supportedEntryPoints"
)

// Client talks to one bundler endpoint.
type Client struct {
	rpc *rpc.Client
	log zerolog.Logger
}

// Dial connects to a bundler over HTTP(S) or WebSocket.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, "bundler.Dial", err)
	}
	return NewClient(c), nil
}

// NewClient wraps an existing rpc client.
func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c, log: logger.Component("bundler")}
}

func (c *Client) Close() {
	c.rpc.Close()
}

// SendUserOperation submits a signed operation and returns its userOpHash.
// Rejections surface as SubmissionFailed carrying the decoded revert reason when present.
func (c *Client) SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (common.Hash, error) {
	const name = "bundler.SendUserOperation"
	if err := op.Validate(); err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, methodSendUserOperation, op, entryPoint); err != nil {
		c.log.Warn().Err(err).Str("sender", op.Sender).Str("nonce", op.Nonce).Msg("User operation rejected")
		return common.Hash{}, wrap(errors.KindSubmissionFailed, name, err)
	}
	c.log.Info().Str("userOpHash", hash.Hex()).Str("sender", op.Sender).Msg("User operation submitted")
	return hash, nil
}

// EstimateUserOperationGas simulates op. The signature must already be a
// dummy of realistic length.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*GasEstimate, error) {
	var est GasEstimate
	if err := c.rpc.CallContext(ctx, &est, methodEstimateUserOperationGas, op, entryPoint); err != nil {
		return nil, wrap(errors.KindEstimationFailed, "bundler.EstimateUserOperationGas", err)
	}
	c.log.Debug().
		Str("callGasLimit", est.CallGasLimit).
		Str("verificationGasLimit", est.VerificationGasLimit).
		Str("preVerificationGas", est.PreVerificationGas).
		Msg("Gas estimated")
	return &est, nil
}

// GetUserOperationReceipt returns nil, nil while the operation is pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var r *Receipt
	if err := c.rpc.CallContext(ctx, &r, methodGetUserOperationReceipt, hash); err != nil {
		return nil, wrap(errors.KindRPC, "bundler.GetUserOperationReceipt", err)
	}
	return r, nil
}

// GetUserOperationByHash returns nil, nil for unknown hashes.
func (c *Client) GetUserOperationByHash(ctx context.Context, hash common.Hash) (*UserOperationByHash, error) {
	var r *UserOperationByHash
	if err := c.rpc.CallContext(ctx, &r, methodGetUserOperationByHash, hash); err != nil {
		return nil, wrap(errors.KindRPC, "bundler.GetUserOperationByHash", err)
	}
	return r, nil
}

func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var eps []common.Address
	if err := c.rpc.CallContext(ctx, &eps, methodSupportedEntryPoints); err != nil {
		return nil, wrap(errors.KindRPC, "bundler.SupportedEntryPoints", err)
	}
	return eps, nil
}
