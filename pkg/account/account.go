// Package account drives a Safe smart account through ERC-4337: it prepares,
// signs and submits user operations and exposes the account's read paths.
package account

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/luxfi/safe4337/pkg/bundler"
	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/paymaster"
	"github.com/luxfi/safe4337/pkg/poller"
	"github.com/luxfi/safe4337/pkg/recovery"
	"github.com/luxfi/safe4337/pkg/safe"
	"github.com/luxfi/safe4337/pkg/signer"
	nettypes "github.com/luxfi/safe4337/pkg/types"
	"github.com/luxfi/safe4337/pkg/userop"
)

// ChainReader is the execution node surface the account reads through.
// *ethclient.Client implements it.
type ChainReader interface {
	ethereum.ContractCaller
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Bundler is the bundler surface the account submits through.
type Bundler interface {
	poller.ReceiptFetcher
	SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (common.Hash, error)
	EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*bundler.GasEstimate, error)
}

// Sponsor is an optional paymaster.
type Sponsor interface {
	SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*paymaster.Sponsorship, error)
}

// Params configures an Account. Address is optional: the zero address means
// the counterfactual address predicted from Signer and Config.
type Params struct {
	ChainID   *big.Int
	Address   common.Address
	Signer    signer.Signer
	Config    safe.Config
	Recovery  recovery.Config
	Chain     ChainReader
	Bundler   Bundler
	Paymaster Sponsor

	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Endpoints are the URLs Dial connects to. PaymasterURL is optional.
type Endpoints struct {
	RPCURL       string
	BundlerURL   string
	PaymasterURL string
}

// Account is one Safe bound to one signer on one chain. It holds no mutable
// state; concurrent operations on the same account race for the nonce.
type Account struct {
	chainID   *big.Int
	address   common.Address
	signer    signer.Signer
	cfg       safe.Config
	recovery  recovery.Config
	chain     ChainReader
	bundler   Bundler
	paymaster Sponsor
	poller    *poller.Poller
	closers   []func()
	log       zerolog.Logger
}

// New validates p and resolves the account address.
func New(p Params) (*Account, error) {
	const op = "account.New"
	if p.ChainID == nil || p.ChainID.Sign() <= 0 || p.ChainID.BitLen() > 256 {
		return nil, errors.Invalid(op, errors.ErrInvalidConfig, "chain id must be a positive uint256")
	}
	if p.Signer == nil {
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "signer is required")
	}
	if p.Chain == nil || p.Bundler == nil {
		return nil, errors.Invalid(op, errors.ErrInvalidConfig, "chain and bundler clients are required")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	rcfg := p.Recovery
	if rcfg == (recovery.Config{}) {
		rcfg = recovery.DefaultConfig()
	}
	if err := rcfg.Validate(); err != nil {
		return nil, err
	}

	addr := p.Address
	if addr == (common.Address{}) {
		predicted, err := safe.PredictAddress(p.Signer.SafeOwner(), p.Config, p.ChainID)
		if err != nil {
			return nil, err
		}
		addr = predicted
	}

	a := &Account{
		chainID:   new(big.Int).Set(p.ChainID),
		address:   addr,
		signer:    p.Signer,
		cfg:       p.Config,
		recovery:  rcfg,
		chain:     p.Chain,
		bundler:   p.Bundler,
		paymaster: p.Paymaster,
		poller:    poller.New(p.Bundler, poller.WithInterval(p.PollInterval), poller.WithTimeout(p.PollTimeout)),
		log:       logger.Component("account").With().Str("safe", addr.Hex()).Logger(),
	}
	if !nettypes.IsChainSupported(p.ChainID.Uint64()) {
		a.log.Warn().Str("chainId", p.ChainID.String()).Msg("Chain is not in the known network list")
	}
	return a, nil
}

// Dial connects to the endpoints and builds the account. A nil p.ChainID is
// read from the node. The returned Account owns the clients; call Close.
func Dial(ctx context.Context, ep Endpoints, p Params) (*Account, error) {
	const op = "account.Dial"
	if ep.RPCURL == "" || ep.BundlerURL == "" {
		return nil, errors.Invalid(op, errors.ErrInvalidConfig, "rpcUrl and bundlerUrl are required")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	eth, err := ethclient.DialContext(ctx, ep.RPCURL)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, op, err)
	}
	closers = append(closers, eth.Close)
	p.Chain = eth

	if p.ChainID == nil {
		id, err := eth.ChainID(ctx)
		if err != nil {
			closeAll()
			return nil, errors.Wrap(errors.KindRPC, op, err)
		}
		p.ChainID = id
	}

	bc, err := bundler.Dial(ctx, ep.BundlerURL)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, bc.Close)
	p.Bundler = bc

	if err := checkEntryPoint(ctx, bc, p.Config.EntryPoint()); err != nil {
		closeAll()
		return nil, err
	}

	if ep.PaymasterURL != "" {
		pc, err := paymaster.Dial(ctx, ep.PaymasterURL)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, pc.Close)
		p.Paymaster = pc
	}

	a, err := New(p)
	if err != nil {
		closeAll()
		return nil, err
	}
	a.closers = closers
	return a, nil
}

// checkEntryPoint fails when the bundler does not serve entryPoint, which would
// otherwise surface only at submission.
func checkEntryPoint(ctx context.Context, bc *bundler.Client, entryPoint common.Address) error {
	served, err := bc.SupportedEntryPoints(ctx)
	if err != nil {
		return err
	}
	if !lo.Contains(served, entryPoint) {
		return errors.Invalid("account.Dial", errors.ErrInvalidConfig, "bundler does not serve entry point %s", entryPoint.Hex())
	}
	return nil
}

// Close releases clients opened by Dial.
func (a *Account) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

func (a *Account) Address() common.Address { return a.address }
func (a *Account) ChainID() *big.Int        { return new(big.Int).Set(a.chainID) }
func (a *Account) Config() safe.Config      { return a.cfg }
func (a *Account) Signer() signer.Signer    { return a.signer }

// IsDeployed reports whether the Safe proxy has code.
func (a *Account) IsDeployed(ctx context.Context) (bool, error) {
	return a.codeAt(ctx, a.address)
}

// GetNonce reads EntryPoint.getNonce(sender, 0).
func (a *Account) GetNonce(ctx context.Context) (*big.Int, error) {
	out, err := a.call(ctx, a.cfg.EntryPoint(), safe.EntryPointABI, "getNonce", a.address, new(big.Int))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return new(big.Int), nil
	}
	return out[0].(*big.Int), nil
}

// GetOwners returns the Safe owner list. An undeployed Safe has none on chain
// and yields nil.
func (a *Account) GetOwners(ctx context.Context) ([]common.Address, error) {
	out, err := a.call(ctx, a.address, safe.SafeABI, "getOwners")
	if err != nil || out == nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

// Hash is the SafeOp digest owners sign for op.
func (a *Account) Hash(op *userop.UserOperation) (common.Hash, error) {
	return safe.HashUserOperation(op, a.chainID, a.cfg, safe.ValidityWindow{})
}

// Sign validates op and returns its user operation signature. The signature
// field of op is ignored and left untouched.
func (a *Account) Sign(ctx context.Context, op *userop.UserOperation) ([]byte, error) {
	hash, err := a.Hash(op)
	if err != nil {
		return nil, err
	}
	raw, err := a.signer.Sign(ctx, hash)
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, "account.Sign", err)
	}
	return safe.EncodeSignature(raw, signer.Kind(a.signer), a.cfg, safe.ValidityWindow{})
}

// Submit signs op and hands it to the bundler.
func (a *Account) Submit(ctx context.Context, op *userop.UserOperation) (common.Hash, error) {
	sig, err := a.Sign(ctx, op)
	if err != nil {
		return common.Hash{}, err
	}
	signed := op.Clone()
	signed.Signature = codec.BytesToHex(sig)
	hash, err := a.bundler.SendUserOperation(ctx, signed, a.cfg.EntryPoint())
	if err != nil {
		return common.Hash{}, err
	}
	a.log.Info().Str("userOpHash", hash.Hex()).Str("nonce", signed.Nonce).Msg("User operation sent")
	return hash, nil
}

// Send prepares, signs and submits a single call.
func (a *Account) Send(ctx context.Context, tx userop.TransactionParams) (common.Hash, error) {
	return a.SendMulti(ctx, []userop.TransactionParams{tx})
}

// SendMulti prepares, signs and submits a batch. One element goes out as a
// direct call, more are routed through MultiSend.
func (a *Account) SendMulti(ctx context.Context, txs []userop.TransactionParams) (common.Hash, error) {
	calls, err := safe.CallsFromParams(txs)
	if err != nil {
		return common.Hash{}, err
	}
	return a.sendCalls(ctx, calls)
}

func (a *Account) sendCalls(ctx context.Context, calls []safe.Call) (common.Hash, error) {
	op, err := a.prepareCalls(ctx, calls)
	if err != nil {
		return common.Hash{}, err
	}
	return a.Submit(ctx, op)
}

// AddOwner adds owner with threshold 1 through a self call.
func (a *Account) AddOwner(ctx context.Context, owner common.Address) (common.Hash, error) {
	if owner == (common.Address{}) {
		return common.Hash{}, errors.Invalid("account.AddOwner", errors.ErrInvalidAddress, "owner is the zero address")
	}
	data, err := safe.SafeABI.Pack("addOwnerWithThreshold", owner, big.NewInt(1))
	if err != nil {
		return common.Hash{}, err
	}
	return a.sendCalls(ctx, []safe.Call{{To: a.address, Value: new(big.Int), Data: data}})
}

// WaitForReceipt polls the bundler until hash is included.
func (a *Account) WaitForReceipt(ctx context.Context, hash common.Hash) (*bundler.Receipt, error) {
	return a.poller.WaitForReceipt(ctx, hash)
}

// call runs a view method. An empty result (no code at target) yields nil, nil.
func (a *Account) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	name := "account." + method
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, name, err)
	}
	raw, err := a.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, name, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, name, err)
	}
	return out, nil
}
