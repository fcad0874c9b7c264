// Package bridge is the boundary API of the account core. Every operation
// takes plain values, opens the clients it needs for the duration of the call
// and returns plain values; Capture turns the outcome into a Result.
package bridge

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/luxfi/safe4337/pkg/account"
	"github.com/luxfi/safe4337/pkg/bundler"
	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/passkey"
	"github.com/luxfi/safe4337/pkg/recovery"
	"github.com/luxfi/safe4337/pkg/safe"
	"github.com/luxfi/safe4337/pkg/signer"
	"github.com/luxfi/safe4337/pkg/userop"
)

// Options wires the collaborators the bridge cannot create itself. Passkey
// fields may be nil when only EOA signers are used.
type Options struct {
	Store         *passkey.Store
	Authenticator passkey.Authenticator
	Ceremony      passkey.Ceremony

	PollInterval time.Duration
	PollTimeout  time.Duration

	// HTTPClient is used for Connect API calls.
	HTTPClient *http.Client
}

type Bridge struct {
	opts     Options
	resolver signer.Resolver
	log      zerolog.Logger
}

func New(opts Options) *Bridge {
	return &Bridge{
		opts:     opts,
		resolver: signer.Resolver{Store: opts.Store, Authenticator: opts.Authenticator},
		log:      logger.Component("bridge"),
	}
}

// PasskeyCoordinates is the public key of a newly created passkey signer.
type PasskeyCoordinates struct {
	X string `json:"x"`
	Y string `json:"y"`
}

func (b *Bridge) CreatePasskeySigner(ctx context.Context, rpID, userName string) (*PasskeyCoordinates, error) {
	if b.opts.Ceremony == nil || b.opts.Store == nil {
		return nil, errors.Invalid("bridge.CreatePasskeySigner", errors.ErrInvalidSigner, "passkey support is not configured")
	}
	s, err := signer.CreatePasskey(ctx, b.opts.Ceremony, b.opts.Authenticator, b.opts.Store, rpID, userName)
	if err != nil {
		return nil, err
	}
	x, y := signer.Coordinates(s)
	return &PasskeyCoordinates{X: x, Y: y}, nil
}

// PredictAddress computes the counterfactual Safe address. rpcURL is not
// dialed; prediction is offline.
func (b *Bridge) PredictAddress(ctx context.Context, chainID uint64, rpcURL string, desc signer.Descriptor, overrides safe.Config) (string, error) {
	if chainID == 0 {
		return "", errors.Invalid("bridge.PredictAddress", errors.ErrInvalidConfig, "chainId is required")
	}
	cfg, err := safe.NewConfig(overrides)
	if err != nil {
		return "", err
	}
	s, err := b.resolver.FromDescriptor(desc)
	if err != nil {
		return "", err
	}
	addr, err := safe.PredictAddress(s.SafeOwner(), cfg, new(big.Int).SetUint64(chainID))
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func (b *Bridge) PrepareUserOperation(ctx context.Context, p CommonParams, tx userop.TransactionParams) (*userop.UserOperation, error) {
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (*userop.UserOperation, error) {
		return a.Prepare(ctx, tx)
	})
}

// SignUserOperation returns the hex user operation signature for op.
func (b *Bridge) SignUserOperation(ctx context.Context, p CommonParams, op userop.UserOperation) (string, error) {
	if err := op.ValidateUnsigned(); err != nil {
		return "", err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		sig, err := a.Sign(ctx, &op)
		if err != nil {
			return "", err
		}
		return codec.BytesToHex(sig), nil
	})
}

func (b *Bridge) SendUserOperation(ctx context.Context, p CommonParams, tx userop.TransactionParams) (string, error) {
	return b.SendMultiSendUserOperation(ctx, p, []userop.TransactionParams{tx})
}

func (b *Bridge) SendMultiSendUserOperation(ctx context.Context, p CommonParams, txs []userop.TransactionParams) (string, error) {
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		return hashResult(a.SendMulti(ctx, txs))
	})
}

func (b *Bridge) GetOwners(ctx context.Context, p CommonParams) ([]string, error) {
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) ([]string, error) {
		owners, err := a.GetOwners(ctx)
		if err != nil {
			return nil, err
		}
		return lo.Map(owners, func(o common.Address, _ int) string { return o.Hex() }), nil
	})
}

func (b *Bridge) IsDeployed(ctx context.Context, p CommonParams) (bool, error) {
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (bool, error) {
		return a.IsDeployed(ctx)
	})
}

func (b *Bridge) AddOwner(ctx context.Context, p CommonParams, owner string) (string, error) {
	addr, err := codec.ToAddress(owner)
	if err != nil {
		return "", err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		return hashResult(a.AddOwner(ctx, addr))
	})
}

// SignMessage signs the UTF-8 bytes of message for ERC-1271 verification.
func (b *Bridge) SignMessage(ctx context.Context, p CommonParams, message string) (string, error) {
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		sig, err := a.SignMessage(ctx, []byte(message))
		if err != nil {
			return "", err
		}
		return codec.BytesToHex(sig), nil
	})
}

func (b *Bridge) IsValidSignature(ctx context.Context, p CommonParams, message, signature string) (bool, error) {
	sig, err := codec.HexToBytes(signature)
	if err != nil {
		return false, err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (bool, error) {
		return a.IsValidSignature(ctx, []byte(message), sig)
	})
}

// EthGetUserOperationReceipt returns nil while the operation is pending.
func (b *Bridge) EthGetUserOperationReceipt(ctx context.Context, bundlerURL, userOpHash string) (*bundler.Receipt, error) {
	hash, err := parseHash(userOpHash)
	if err != nil {
		return nil, err
	}
	return withBundler(ctx, bundlerURL, func(c *bundler.Client) (*bundler.Receipt, error) {
		return c.GetUserOperationReceipt(ctx, hash)
	})
}

// EthGetUserOperationByHash returns nil for an unknown hash.
func (b *Bridge) EthGetUserOperationByHash(ctx context.Context, bundlerURL, userOpHash string) (*bundler.UserOperationByHash, error) {
	hash, err := parseHash(userOpHash)
	if err != nil {
		return nil, err
	}
	return withBundler(ctx, bundlerURL, func(c *bundler.Client) (*bundler.UserOperationByHash, error) {
		return c.GetUserOperationByHash(ctx, hash)
	})
}

// WaitForReceipt polls with the configured interval and timeout.
func (b *Bridge) WaitForReceipt(ctx context.Context, p CommonParams, userOpHash string) (*bundler.Receipt, error) {
	hash, err := parseHash(userOpHash)
	if err != nil {
		return nil, err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (*bundler.Receipt, error) {
		return a.WaitForReceipt(ctx, hash)
	})
}

func (b *Bridge) PredictDelayModuleAddress(ctx context.Context, p CommonParams, rc recovery.Config) (string, error) {
	return withAccount(ctx, b, p, rc, func(a *account.Account) (string, error) {
		addr, err := a.DelayModuleAddress()
		if err != nil {
			return "", err
		}
		return addr.Hex(), nil
	})
}

func (b *Bridge) EnableRecoveryModule(ctx context.Context, p CommonParams, guardian string, rc recovery.Config) (string, error) {
	g, err := codec.ToAddress(guardian)
	if err != nil {
		return "", err
	}
	return withAccount(ctx, b, p, rc, func(a *account.Account) (string, error) {
		return hashResult(a.EnableRecoveryModule(ctx, g))
	})
}

// GetCurrentGuardian returns "" when no guardian is enabled.
func (b *Bridge) GetCurrentGuardian(ctx context.Context, p CommonParams, delayAddress string) (string, error) {
	delay, err := optionalAddress(delayAddress)
	if err != nil {
		return "", err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		g, err := a.GetCurrentGuardian(ctx, delay)
		if err != nil || g == (common.Address{}) {
			return "", err
		}
		return g.Hex(), nil
	})
}

func (b *Bridge) IsRecoveryStarted(ctx context.Context, p CommonParams, delayAddress string) (bool, error) {
	delay, err := optionalAddress(delayAddress)
	if err != nil {
		return false, err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (bool, error) {
		return a.IsRecoveryStarted(ctx, delay)
	})
}

func (b *Bridge) CancelRecovery(ctx context.Context, p CommonParams, delayAddress string) (string, error) {
	delay, err := optionalAddress(delayAddress)
	if err != nil {
		return "", err
	}
	return withAccount(ctx, b, p, recovery.Config{}, func(a *account.Account) (string, error) {
		return hashResult(a.CancelRecovery(ctx, delay))
	})
}

// withAccount dials the account described by p, runs fn and closes the clients.
func withAccount[T any](ctx context.Context, b *Bridge, p CommonParams, rc recovery.Config, fn func(*account.Account) (T, error)) (T, error) {
	var zero T
	a, err := b.open(ctx, p, rc)
	if err != nil {
		return zero, err
	}
	defer a.Close()
	return fn(a)
}

func (b *Bridge) open(ctx context.Context, p CommonParams, rc recovery.Config) (*account.Account, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg, err := safe.NewConfig(p.Config)
	if err != nil {
		return nil, err
	}
	if rc != (recovery.Config{}) {
		if rc, err = recovery.NewConfig(rc); err != nil {
			return nil, err
		}
	}
	s, err := b.resolver.FromDescriptor(p.Signer)
	if err != nil {
		return nil, err
	}
	addr, err := optionalAddress(p.Address)
	if err != nil {
		return nil, err
	}
	return account.Dial(ctx, account.Endpoints{
		RPCURL:       p.RPCURL,
		BundlerURL:   p.BundlerURL,
		PaymasterURL: p.PaymasterURL,
	}, account.Params{
		ChainID:      new(big.Int).SetUint64(p.ChainID),
		Address:      addr,
		Signer:       s,
		Config:       cfg,
		Recovery:     rc,
		PollInterval: b.opts.PollInterval,
		PollTimeout:  b.opts.PollTimeout,
	})
}

func withBundler[T any](ctx context.Context, url string, fn func(*bundler.Client) (T, error)) (T, error) {
	var zero T
	if url == "" {
		return zero, errors.Invalid("bridge.bundler", errors.ErrInvalidConfig, "bundlerUrl is required")
	}
	c, err := bundler.Dial(ctx, url)
	if err != nil {
		return zero, err
	}
	defer c.Close()
	return fn(c)
}

func hashResult(h common.Hash, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return h.Hex(), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := codec.HexToBytes(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Invalid("bridge.parseHash", errors.ErrInvalidHex, "user operation hash must be 32 bytes, got %d", len(b))
	}
	return common.BytesToHash(b), nil
}

func optionalAddress(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return codec.ToAddress(s)
}
