package account

import (
	"context"
	"math/big"

	"github.com/samber/lo"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/safe"
	"github.com/luxfi/safe4337/pkg/userop"
)

// Prepare assembles an unsigned user operation for txs: nonce, deployment
// data when the Safe has no code yet, call data, fees and gas limits. The
// returned operation carries a dummy signature sized for simulation.
func (a *Account) Prepare(ctx context.Context, txs ...userop.TransactionParams) (*userop.UserOperation, error) {
	calls, err := safe.CallsFromParams(txs)
	if err != nil {
		return nil, err
	}
	return a.prepareCalls(ctx, calls)
}

func (a *Account) prepareCalls(ctx context.Context, calls []safe.Call) (*userop.UserOperation, error) {
	callData, err := safe.EncodeCallData(calls, a.cfg)
	if err != nil {
		return nil, err
	}
	nonce, err := a.GetNonce(ctx)
	if err != nil {
		return nil, err
	}
	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	maxFee, tip, err := a.fees(ctx)
	if err != nil {
		return nil, err
	}
	dummy, err := a.signer.DummySignature(a.cfg)
	if err != nil {
		return nil, err
	}

	op := &userop.UserOperation{
		Sender:               a.address.Hex(),
		Nonce:                codec.BigToHex(nonce),
		CallData:             codec.BytesToHex(callData),
		MaxFeePerGas:         codec.BigToHex(maxFee),
		MaxPriorityFeePerGas: codec.BigToHex(tip),
		Signature:            codec.BytesToHex(dummy),
	}
	if !deployed {
		factoryData, err := safe.FactoryData(a.signer.SafeOwner(), a.cfg)
		if err != nil {
			return nil, err
		}
		op.Factory = a.cfg.ProxyFactory().Hex()
		op.FactoryData = codec.BytesToHex(factoryData)
	}

	if a.paymaster != nil {
		s, err := a.paymaster.SponsorUserOperation(ctx, withZeroGas(op), a.cfg.EntryPoint())
		if err != nil {
			return nil, err
		}
		s.Apply(op)
	}

	if unsetGas(op) {
		est, err := a.bundler.EstimateUserOperationGas(ctx, withZeroGas(op), a.cfg.EntryPoint())
		if err != nil {
			return nil, err
		}
		op.PreVerificationGas = lo.CoalesceOrEmpty(op.PreVerificationGas, est.PreVerificationGas)
		op.VerificationGasLimit = lo.CoalesceOrEmpty(op.VerificationGasLimit, est.VerificationGasLimit)
		op.CallGasLimit = lo.CoalesceOrEmpty(op.CallGasLimit, est.CallGasLimit)
		if op.HasPaymaster() {
			op.PaymasterVerificationGasLimit = lo.CoalesceOrEmpty(op.PaymasterVerificationGasLimit, est.PaymasterVerificationGasLimit)
			op.PaymasterPostOpGasLimit = lo.CoalesceOrEmpty(op.PaymasterPostOpGasLimit, est.PaymasterPostOpGasLimit)
		}
	}

	if err := op.ValidateUnsigned(); err != nil {
		return nil, errors.Wrap(errors.KindEstimationFailed, "account.Prepare", err)
	}
	a.log.Debug().
		Str("nonce", op.Nonce).
		Bool("deployed", deployed).
		Int("calls", len(calls)).
		Bool("sponsored", op.HasPaymaster()).
		Msg("User operation prepared")
	return op, nil
}

// fees returns maxFeePerGas = 2*baseFee + tip and the tip itself.
func (a *Account) fees(ctx context.Context) (maxFee, tip *big.Int, err error) {
	tip, err = a.chain.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindEstimationFailed, "account.fees", err)
	}
	head, err := a.chain.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindEstimationFailed, "account.fees", err)
	}
	maxFee = new(big.Int).Set(tip)
	if head.BaseFee != nil {
		maxFee.Add(maxFee, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return maxFee, tip, nil
}

func unsetGas(op *userop.UserOperation) bool {
	return op.PreVerificationGas == "" || op.VerificationGasLimit == "" || op.CallGasLimit == ""
}

// withZeroGas is the simulation copy of op: unset gas fields become 0x0.
func withZeroGas(op *userop.UserOperation) *userop.UserOperation {
	c := op.Clone()
	c.PreVerificationGas = lo.CoalesceOrEmpty(c.PreVerificationGas, "0x0")
	c.VerificationGasLimit = lo.CoalesceOrEmpty(c.VerificationGasLimit, "0x0")
	c.CallGasLimit = lo.CoalesceOrEmpty(c.CallGasLimit, "0x0")
	return c
}
