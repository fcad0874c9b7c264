package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/recovery"
	"github.com/luxfi/safe4337/pkg/safe"
)

// DelayModuleAddress is where this Safe's delay module is, or will be, deployed.
func (a *Account) DelayModuleAddress() (common.Address, error) {
	return recovery.PredictDelayModuleAddress(a.address, a.recovery)
}

// EnableRecoveryModule deploys the delay module, enables it on the Safe and
// registers guardian on it, all in one user operation.
func (a *Account) EnableRecoveryModule(ctx context.Context, guardian common.Address) (common.Hash, error) {
	delay, err := a.DelayModuleAddress()
	if err != nil {
		return common.Hash{}, err
	}
	if deployed, err := a.codeAt(ctx, delay); err != nil {
		return common.Hash{}, err
	} else if deployed {
		return common.Hash{}, errors.Validation("account.EnableRecoveryModule", "recovery module already deployed at %s", delay.Hex())
	}
	calls, err := recovery.EnableCalls(a.address, guardian, a.recovery)
	if err != nil {
		return common.Hash{}, err
	}
	a.log.Info().Str("delay", delay.Hex()).Str("guardian", guardian.Hex()).Msg("Enabling recovery module")
	return a.sendCalls(ctx, calls)
}

// resolveDelay maps the zero address to this Safe's predicted delay module.
func (a *Account) resolveDelay(delay common.Address) (common.Address, error) {
	if delay != (common.Address{}) {
		return delay, nil
	}
	return a.DelayModuleAddress()
}

// GetCurrentGuardian returns the guardian enabled on the delay module, or the
// zero address when recovery was never set up. A zero delay means the
// predicted module.
func (a *Account) GetCurrentGuardian(ctx context.Context, delay common.Address) (common.Address, error) {
	delay, err := a.resolveDelay(delay)
	if err != nil {
		return common.Address{}, err
	}
	return recovery.GetCurrentGuardian(ctx, a.chain, delay)
}

func (a *Account) IsRecoveryStarted(ctx context.Context, delay common.Address) (bool, error) {
	delay, err := a.resolveDelay(delay)
	if err != nil {
		return false, err
	}
	return recovery.IsRecoveryStarted(ctx, a.chain, delay)
}

// CancelRecovery invalidates every queued recovery transaction.
func (a *Account) CancelRecovery(ctx context.Context, delay common.Address) (common.Hash, error) {
	const op = "account.CancelRecovery"
	delay, err := a.resolveDelay(delay)
	if err != nil {
		return common.Hash{}, err
	}
	deployed, err := a.codeAt(ctx, delay)
	if err != nil {
		return common.Hash{}, err
	}
	if !deployed {
		return common.Hash{}, errors.Validation(op, "recovery module not deployed")
	}
	_, queueNonce, err := recovery.Nonces(ctx, a.chain, delay)
	if err != nil {
		return common.Hash{}, err
	}
	call, err := recovery.CancelCall(delay, queueNonce)
	if err != nil {
		return common.Hash{}, err
	}
	return a.sendCalls(ctx, []safe.Call{call})
}

func (a *Account) codeAt(ctx context.Context, addr common.Address) (bool, error) {
	code, err := a.chain.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, errors.Wrap(errors.KindRPC, "account.codeAt", err)
	}
	return len(code) > 0, nil
}
