// Package paymaster requests gas sponsorship for user operations.
package paymaster

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/bundler"
	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/userop"
)

const methodSponsorUserOperation = "pm_sponsorUserOperation"

// Sponsorship is the paymaster's answer. Gas fields are optional: a paymaster
// that simulates the operation returns them, otherwise estimation fills them.
type Sponsorship struct {
	Paymaster                     string `json:"paymaster"`
	PaymasterData                 string `json:"paymasterData"`
	PaymasterVerificationGasLimit string `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       string `json:"paymasterPostOpGasLimit"`
	PreVerificationGas            string `json:"preVerificationGas,omitempty"`
	VerificationGasLimit          string `json:"verificationGasLimit,omitempty"`
	CallGasLimit                  string `json:"callGasLimit,omitempty"`
}

// Apply copies the sponsorship into op. Returned gas fields override op's.
func (s *Sponsorship) Apply(op *userop.UserOperation) {
	op.Paymaster = s.Paymaster
	op.PaymasterData = s.PaymasterData
	if op.PaymasterData == "" {
		op.PaymasterData = "0x"
	}
	op.PaymasterVerificationGasLimit = s.PaymasterVerificationGasLimit
	op.PaymasterPostOpGasLimit = s.PaymasterPostOpGasLimit
	if s.PreVerificationGas != "" {
		op.PreVerificationGas = s.PreVerificationGas
	}
	if s.VerificationGasLimit != "" {
		op.VerificationGasLimit = s.VerificationGasLimit
	}
	if s.CallGasLimit != "" {
		op.CallGasLimit = s.CallGasLimit
	}
}

func (s *Sponsorship) validate() error {
	const name = "paymaster.SponsorUserOperation"
	if !codec.IsValidEthereumAddress(s.Paymaster) {
		return errors.New(errors.KindSponsorshipFailed, name, "paymaster returned invalid address %q", s.Paymaster)
	}
	for _, v := range []string{s.PaymasterData, s.PaymasterVerificationGasLimit, s.PaymasterPostOpGasLimit} {
		if v != "" && !codec.IsValidHex(v) {
			return errors.New(errors.KindSponsorshipFailed, name, "paymaster returned invalid hex %q", v)
		}
	}
	if s.PaymasterVerificationGasLimit == "" || s.PaymasterPostOpGasLimit == "" {
		return errors.New(errors.KindSponsorshipFailed, name, "paymaster returned no gas limits")
	}
	return nil
}

type Client struct {
	rpc *rpc.Client
	log zerolog.Logger
}

func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, "paymaster.Dial", err)
	}
	return NewClient(c), nil
}

func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c, log: logger.Component("paymaster")}
}

func (c *Client) Close() {
	c.rpc.Close()
}

// SponsorUserOperation asks the paymaster to cover op. op must carry a dummy
// signature so the paymaster can simulate it.
func (c *Client) SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*Sponsorship, error) {
	const name = "paymaster.SponsorUserOperation"
	var s Sponsorship
	if err := c.rpc.CallContext(ctx, &s, methodSponsorUserOperation, op, entryPoint); err != nil {
		return nil, errors.Wrap(errors.KindSponsorshipFailed, name, bundler.AsError(err))
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	c.log.Debug().Str("sender", op.Sender).Str("paymaster", s.Paymaster).Msg("User operation sponsored")
	return &s, nil
}
