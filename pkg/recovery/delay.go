package recovery

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/safe"
)

const delayABIJSON = `[
{"type":"function","name":"setUp","stateMutability":"nonpayable","inputs":[{"name":"initParams","type":"bytes"}],"outputs":[]},
{"type":"function","name":"enableModule","stateMutability":"nonpayable","inputs":[{"name":"module","type":"address"}],"outputs":[]},
{"type":"function","name":"getModulesPaginated","stateMutability":"view","inputs":[
 {"name":"start","type":"address"},{"name":"pageSize","type":"uint256"}],"outputs":[
 {"name":"array","type":"address[]"},{"name":"next","type":"address"}]},
{"type":"function","name":"txNonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"queueNonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"setTxNonce","stateMutability":"nonpayable","inputs":[{"name":"_nonce","type":"uint256"}],"outputs":[]}
]`

const moduleFactoryABIJSON = `[
{"type":"function","name":"deployModule","stateMutability":"nonpayable","inputs":[
 {"name":"masterCopy","type":"address"},{"name":"initializer","type":"bytes"},
 {"name":"saltNonce","type":"uint256"}],"outputs":[{"name":"proxy","type":"address"}]}
]`

var (
	DelayABI         = mustParseABI(delayABIJSON)
	ModuleFactoryABI = mustParseABI(moduleFactoryABIJSON)

	// setUp(bytes) payload: owner, avatar, target, cooldown, expiration
	setUpArgs = abi.Arguments{
		{Type: mustType("address")},
		{Type: mustType("address")},
		{Type: mustType("address")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
	}

	// SentinelModules is the head of the Zodiac/Safe module linked list.
	SentinelModules = common.HexToAddress("0x0000000000000000000000000000000000000001")

	// minimal proxy creation code from ModuleProxyFactory.createProxy
	proxyPrefix = common.FromHex("0x602d8060093d393df3363d3d373d3d3d363d73")
	proxySuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// SetUpData is the delay module initializer for safeAddr. The Safe is owner,
// avatar and target.
func SetUpData(safeAddr common.Address, cfg Config) ([]byte, error) {
	params, err := setUpArgs.Pack(safeAddr, safeAddr, safeAddr,
		new(big.Int).SetUint64(cfg.RecoveryCooldown),
		new(big.Int).SetUint64(cfg.RecoveryExpiration),
	)
	if err != nil {
		return nil, fmt.Errorf("pack delay params: %w", err)
	}
	data, err := DelayABI.Pack("setUp", params)
	if err != nil {
		return nil, fmt.Errorf("pack setUp: %w", err)
	}
	return data, nil
}

// PredictDelayModuleAddress computes where ModuleProxyFactory.deployModule puts
// the delay module for safeAddr, with salt nonce 0.
func PredictDelayModuleAddress(safeAddr common.Address, cfg Config) (common.Address, error) {
	if err := cfg.Validate(); err != nil {
		return common.Address{}, err
	}
	initializer, err := SetUpData(safeAddr, cfg)
	if err != nil {
		return common.Address{}, err
	}
	salt := crypto.Keccak256Hash(crypto.Keccak256(initializer), common.LeftPadBytes(nil, 32))

	creation := make([]byte, 0, len(proxyPrefix)+20+len(proxySuffix))
	creation = append(creation, proxyPrefix...)
	creation = append(creation, cfg.DelayMasterCopy().Bytes()...)
	creation = append(creation, proxySuffix...)

	return crypto.CreateAddress2(cfg.ModuleFactory(), salt, crypto.Keccak256(creation)), nil
}

// EnableCalls returns the batch that deploys the delay module, enables it on the
// Safe and enables guardian on the delay module. The batch is meant to run
// through MultiSend from the Safe.
func EnableCalls(safeAddr, guardian common.Address, cfg Config) ([]safe.Call, error) {
	if guardian == (common.Address{}) {
		return nil, errors.Invalid("recovery.EnableCalls", errors.ErrInvalidAddress, "guardian is the zero address")
	}
	delay, err := PredictDelayModuleAddress(safeAddr, cfg)
	if err != nil {
		return nil, err
	}
	initializer, err := SetUpData(safeAddr, cfg)
	if err != nil {
		return nil, err
	}
	deploy, err := ModuleFactoryABI.Pack("deployModule", cfg.DelayMasterCopy(), initializer, new(big.Int))
	if err != nil {
		return nil, fmt.Errorf("pack deployModule: %w", err)
	}
	enableDelay, err := safe.SafeABI.Pack("enableModule", delay)
	if err != nil {
		return nil, fmt.Errorf("pack enableModule: %w", err)
	}
	enableGuardian, err := DelayABI.Pack("enableModule", guardian)
	if err != nil {
		return nil, fmt.Errorf("pack delay enableModule: %w", err)
	}
	return []safe.Call{
		{To: cfg.ModuleFactory(), Value: new(big.Int), Data: deploy},
		{To: safeAddr, Value: new(big.Int), Data: enableDelay},
		{To: delay, Value: new(big.Int), Data: enableGuardian},
	}, nil
}

// CancelCall skips every queued transaction by moving txNonce up to queueNonce.
func CancelCall(delay common.Address, queueNonce *big.Int) (safe.Call, error) {
	data, err := DelayABI.Pack("setTxNonce", queueNonce)
	if err != nil {
		return safe.Call{}, fmt.Errorf("pack setTxNonce: %w", err)
	}
	return safe.Call{To: delay, Value: new(big.Int), Data: data}, nil
}

// GetCurrentGuardian returns the first module enabled on the delay module, or
// the zero address when there is none or the module is not deployed.
func GetCurrentGuardian(ctx context.Context, caller ethereum.ContractCaller, delay common.Address) (common.Address, error) {
	out, err := call(ctx, caller, delay, "getModulesPaginated", SentinelModules, big.NewInt(1))
	if err != nil || out == nil {
		return common.Address{}, err
	}
	modules, ok := out[0].([]common.Address)
	if !ok || len(modules) == 0 {
		return common.Address{}, nil
	}
	return modules[0], nil
}

// Nonces returns the delay module's txNonce and queueNonce.
func Nonces(ctx context.Context, caller ethereum.ContractCaller, delay common.Address) (txNonce, queueNonce *big.Int, err error) {
	txOut, err := call(ctx, caller, delay, "txNonce")
	if err != nil {
		return nil, nil, err
	}
	queueOut, err := call(ctx, caller, delay, "queueNonce")
	if err != nil {
		return nil, nil, err
	}
	if txOut == nil || queueOut == nil {
		return new(big.Int), new(big.Int), nil
	}
	return txOut[0].(*big.Int), queueOut[0].(*big.Int), nil
}

// IsRecoveryStarted reports whether a recovery transaction is queued.
func IsRecoveryStarted(ctx context.Context, caller ethereum.ContractCaller, delay common.Address) (bool, error) {
	txNonce, queueNonce, err := Nonces(ctx, caller, delay)
	if err != nil {
		return false, err
	}
	return txNonce.Cmp(queueNonce) < 0, nil
}

// call performs a read against the delay module. An empty result means the
// module has no code and yields (nil, nil).
func call(ctx context.Context, caller ethereum.ContractCaller, delay common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := DelayABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &delay, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, "recovery."+method, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out, err := DelayABI.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrap(errors.KindRPC, "recovery."+method, err)
	}
	return out, nil
}
