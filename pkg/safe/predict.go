package safe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// ProxyCreationCode is SafeProxyFactory.proxyCreationCode() for Safe 1.4.1.
var ProxyCreationCode = codec.MustHexToBytes(
	"0x608060405234801561001057600080fd5b506040516101e63803806101e6833981810160405260" +
		"2081101561003357600080fd5b8101908080519060200190929190505050600073ffffffffffff" +
		"ffffffffffffffffffffffffffff168173ffffffffffffffffffffffffffffffffffffffff16" +
		"14156100ca576040517f08c379a0000000000000000000000000000000000000000000000000" +
		"00000000815260040180806020018281038252602281526020018061" +
		"01c46022913960400191505060405180910390fd5b806000806101000a81548173ffffffffffff" +
		"ffffffffffffffffffffffffffff021916908373ffffffffffffffffffffffffffffffffffff" +
		"ffff1602179055505060ab806101196000396000f3fe608060405273ffffffffffffffffffff" +
		"ffffffffffffffffffff600054167fa619486e000000000000000000000000000000000000000" +
		"0000000000000000060003514156050578060005260206000f35b36600080376000803660008" +
		"45af43d6000803e60008015156068573d6000fd5b3d6000f3fea264697066735822122003d148" +
		"8ee65e08fa41e58e888a9865554c535f2c77126a82cb4c0f917f31441364736f6c6343000706" +
		"0033496e76616c69642073696e676c65746f6e20616464726573732070726f7669646564",
)

type predictOptions struct {
	creationCode []byte
	saltNonce    *big.Int
}

// PredictOption customises address prediction.
type PredictOption func(*predictOptions)

// WithProxyCreationCode replaces the proxy creation code, for factories other
// than the 1.4.1 deployment.
func WithProxyCreationCode(code []byte) PredictOption {
	return func(o *predictOptions) { o.creationCode = code }
}

// WithSaltNonce sets the createProxyWithNonce salt nonce (default 0).
func WithSaltNonce(n *big.Int) PredictOption {
	return func(o *predictOptions) { o.saltNonce = n }
}

func applyPredictOptions(opts []PredictOption) (predictOptions, error) {
	o := predictOptions{creationCode: ProxyCreationCode, saltNonce: new(big.Int)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.saltNonce == nil || o.saltNonce.Sign() < 0 || o.saltNonce.BitLen() > 256 {
		return predictOptions{}, errors.Invalid("safe.PredictOption", errors.ErrInvalidConfig, "salt nonce out of uint256 range")
	}
	if len(o.creationCode) == 0 {
		return predictOptions{}, errors.Invalid("safe.PredictOption", errors.ErrInvalidConfig, "empty proxy creation code")
	}
	return o, nil
}

// PredictAddress computes the counterfactual Safe address for owner. It is a
// pure function of owner, cfg and options; chainID is validated but, like
// CREATE2 itself, does not enter the derivation.
func PredictAddress(owner Owner, cfg Config, chainID *big.Int, opts ...PredictOption) (common.Address, error) {
	if !validChainID(chainID) {
		return common.Address{}, errors.Invalid("safe.PredictAddress", errors.ErrInvalidConfig, "chain id must be a positive uint256")
	}
	initializer, err := SetupData(owner, cfg)
	if err != nil {
		return common.Address{}, err
	}
	o, err := applyPredictOptions(opts)
	if err != nil {
		return common.Address{}, err
	}

	// SafeProxyFactory salt: keccak256(keccak256(initializer) ‖ saltNonce)
	salt := crypto.Keccak256(crypto.Keccak256(initializer), abiUint256(o.saltNonce))

	deployment := make([]byte, 0, len(o.creationCode)+32)
	deployment = append(deployment, o.creationCode...)
	deployment = append(deployment, abiAddress(cfg.Singleton())...)

	return crypto.CreateAddress2(cfg.ProxyFactory(), common.BytesToHash(salt), crypto.Keccak256(deployment)), nil
}

// FactoryData returns createProxyWithNonce(singleton, initializer, saltNonce),
// the factoryData of the first user operation of an undeployed account.
func FactoryData(owner Owner, cfg Config, opts ...PredictOption) ([]byte, error) {
	initializer, err := SetupData(owner, cfg)
	if err != nil {
		return nil, err
	}
	o, err := applyPredictOptions(opts)
	if err != nil {
		return nil, err
	}
	data, err := ProxyFactoryABI.Pack("createProxyWithNonce", cfg.Singleton(), initializer, o.saltNonce)
	if err != nil {
		return nil, fmt.Errorf("pack createProxyWithNonce: %w", err)
	}
	return data, nil
}
