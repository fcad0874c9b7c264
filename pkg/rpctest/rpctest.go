// Package rpctest serves in-memory chain, bundler and paymaster JSON-RPC
// endpoints for tests. Every stub is a plain go-ethereum rpc service mounted on
// an httptest server, so clients exercise the real HTTP transport.
package rpctest

import (
	"context"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/safe4337/pkg/userop"
)

// Error is returned by stubs to produce a JSON-RPC error with code and data.
type Error struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *Error) Error() string          { return e.Message }
func (e *Error) ErrorCode() int         { return e.Code }
func (e *Error) ErrorData() interface{} { return e.Data }

// Serve mounts service under namespace and returns the endpoint URL.
func Serve(t testing.TB, namespace string, service interface{}) string {
	t.Helper()
	srv := rpc.NewServer()
	if err := srv.RegisterName(namespace, service); err != nil {
		t.Fatalf("register %s: %v", namespace, err)
	}
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		srv.Stop()
	})
	return hs.URL
}

// CallHandler answers eth_call for a target contract.
type CallHandler func(to common.Address, data []byte) ([]byte, error)

// Chain is a minimal execution node: chain id, fees, code and eth_call.
type Chain struct {
	mu      sync.Mutex
	chainID *big.Int
	baseFee *big.Int
	tip     *big.Int
	code    map[common.Address][]byte
	call    CallHandler
	calls   []CallArgs
}

func NewChain(chainID int64) *Chain {
	return &Chain{
		chainID: big.NewInt(chainID),
		baseFee: big.NewInt(1_000_000_000),
		tip:     big.NewInt(100_000_000),
		code:    make(map[common.Address][]byte),
	}
}

func (c *Chain) SetFees(baseFee, tip *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseFee, c.tip = baseFee, tip
}

func (c *Chain) SetCode(addr common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = code
}

func (c *Chain) HandleCalls(h CallHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.call = h
}

// Calls returns every eth_call received so far.
func (c *Chain) Calls() []CallArgs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CallArgs(nil), c.calls...)
}

// Serve starts the chain under the eth namespace.
func (c *Chain) Serve(t testing.TB) string {
	return Serve(t, "eth", &chainService{c})
}

// CallArgs is the eth_call transaction object as ethclient sends it.
type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (a CallArgs) payload() []byte {
	if len(a.Input) > 0 {
		return a.Input
	}
	return a.Data
}

type chainService struct{ c *Chain }

func (s *chainService) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(s.c.chainID), nil
}

func (s *chainService) GetCode(ctx context.Context, addr common.Address, block string) (hexutil.Bytes, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.code[addr], nil
}

func (s *chainService) MaxPriorityFeePerGas(ctx context.Context) (*hexutil.Big, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return (*hexutil.Big)(s.c.tip), nil
}

func (s *chainService) GetBlockByNumber(ctx context.Context, number string, full bool) (*types.Header, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return &types.Header{
		Number:     big.NewInt(1),
		Difficulty: new(big.Int),
		GasLimit:   30_000_000,
		Time:       1,
		BaseFee:    new(big.Int).Set(s.c.baseFee),
	}, nil
}

func (s *chainService) Call(ctx context.Context, args CallArgs, block *string) (hexutil.Bytes, error) {
	s.c.mu.Lock()
	s.c.calls = append(s.c.calls, args)
	h := s.c.call
	s.c.mu.Unlock()
	if h == nil || args.To == nil {
		return nil, nil
	}
	return h(*args.To, args.payload())
}

// Bundler is a scripted ERC-4337 bundler.
type Bundler struct {
	mu           sync.Mutex
	estimate     map[string]string
	estimateErr  error
	sendErr      error
	sent         []userop.UserOperation
	estimated    []userop.UserOperation
	receipt      map[string]interface{}
	pendingPolls int
	receiptErr   error
	receiptCalls int
	byHash       map[string]interface{}
	entryPoints  []common.Address
}

// EntryPointV07 is what a new Bundler serves until SetEntryPoints.
var EntryPointV07 = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

// NewBundler returns a bundler that serves EntryPoint v0.7, estimates fixed
// gas and never finds receipts.
func NewBundler() *Bundler {
	return &Bundler{
		estimate: map[string]string{
			"preVerificationGas":   "0xc350",
			"verificationGasLimit": "0x61a80",
			"callGasLimit":         "0x186a0",
		},
		entryPoints: []common.Address{EntryPointV07},
	}
}

func (b *Bundler) SetEstimate(est map[string]string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.estimate, b.estimateErr = est, err
}

func (b *Bundler) FailSend(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// SetReceipt makes eth_getUserOperationReceipt return null for the first
// pending polls and receipt afterwards.
func (b *Bundler) SetReceipt(receipt map[string]interface{}, pending int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipt, b.pendingPolls = receipt, pending
}

func (b *Bundler) FailReceipt(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiptErr = err
}

func (b *Bundler) SetByHash(result map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byHash = result
}

func (b *Bundler) SetEntryPoints(eps ...common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entryPoints = eps
}

func (b *Bundler) Sent() []userop.UserOperation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]userop.UserOperation(nil), b.sent...)
}

func (b *Bundler) Estimated() []userop.UserOperation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]userop.UserOperation(nil), b.estimated...)
}

func (b *Bundler) ReceiptCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receiptCalls
}

func (b *Bundler) Serve(t testing.TB) string {
	return Serve(t, "eth", &bundlerService{b})
}

// OpHash is the hash the stub bundler assigns to a submitted operation.
func OpHash(op userop.UserOperation) common.Hash {
	return crypto.Keccak256Hash([]byte(op.Sender), []byte(op.Nonce), []byte(op.Signature))
}

type bundlerService struct{ b *Bundler }

func (s *bundlerService) SendUserOperation(ctx context.Context, op userop.UserOperation, entryPoint common.Address) (common.Hash, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.sendErr != nil {
		return common.Hash{}, s.b.sendErr
	}
	s.b.sent = append(s.b.sent, op)
	return OpHash(op), nil
}

func (s *bundlerService) EstimateUserOperationGas(ctx context.Context, op userop.UserOperation, entryPoint common.Address) (map[string]string, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.estimated = append(s.b.estimated, op)
	return s.b.estimate, s.b.estimateErr
}

func (s *bundlerService) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (map[string]interface{}, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.receiptCalls++
	if s.b.receiptErr != nil {
		return nil, s.b.receiptErr
	}
	if s.b.receipt == nil || s.b.receiptCalls <= s.b.pendingPolls {
		return nil, nil
	}
	return s.b.receipt, nil
}

func (s *bundlerService) GetUserOperationByHash(ctx context.Context, hash common.Hash) (map[string]interface{}, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.byHash, nil
}

func (s *bundlerService) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.entryPoints, nil
}

// Paymaster sponsors every operation with fixed data.
type Paymaster struct {
	mu        sync.Mutex
	result    map[string]string
	err       error
	sponsored []userop.UserOperation
}

func NewPaymaster(address common.Address) *Paymaster {
	return &Paymaster{
		result: map[string]string{
			"paymaster":                     address.Hex(),
			"paymasterData":                 "0xdeadbeef",
			"paymasterVerificationGasLimit": "0x7530",
			"paymasterPostOpGasLimit":       "0x2710",
		},
	}
}

func (p *Paymaster) SetResult(result map[string]string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result, p.err = result, err
}

func (p *Paymaster) Sponsored() []userop.UserOperation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]userop.UserOperation(nil), p.sponsored...)
}

// Serve starts the paymaster under the pm namespace.
func (p *Paymaster) Serve(t testing.TB) string {
	return Serve(t, "pm", &paymasterService{p})
}

type paymasterService struct{ p *Paymaster }

func (s *paymasterService) SponsorUserOperation(ctx context.Context, op userop.UserOperation, entryPoint common.Address, extra *map[string]interface{}) (map[string]string, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.sponsored = append(s.p.sponsored, op)
	return s.p.result, s.p.err
}
