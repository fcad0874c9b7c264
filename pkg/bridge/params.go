package bridge

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/recovery"
	"github.com/luxfi/safe4337/pkg/safe"
	"github.com/luxfi/safe4337/pkg/signer"
	"github.com/luxfi/safe4337/pkg/userop"
)

// CommonParams identifies one account: chain, endpoints, signer and contract
// set. Address is optional and defaults to the predicted counterfactual address.
type CommonParams struct {
	ChainID      uint64            `json:"chainId" mapstructure:"chainId"`
	RPCURL       string            `json:"rpcUrl" mapstructure:"rpcUrl"`
	BundlerURL   string            `json:"bundlerUrl" mapstructure:"bundlerUrl"`
	PaymasterURL string            `json:"paymasterUrl,omitempty" mapstructure:"paymasterUrl"`
	Address      string            `json:"address,omitempty" mapstructure:"address"`
	Config       safe.Config       `json:"config" mapstructure:"config"`
	Signer       signer.Descriptor `json:"signer" mapstructure:"signer"`
}

func (p CommonParams) validate() error {
	const op = "bridge.CommonParams"
	if p.ChainID == 0 {
		return errors.Invalid(op, errors.ErrInvalidConfig, "chainId is required")
	}
	if p.RPCURL == "" {
		return errors.Invalid(op, errors.ErrInvalidConfig, "rpcUrl is required")
	}
	if p.BundlerURL == "" {
		return errors.Invalid(op, errors.ErrInvalidConfig, "bundlerUrl is required")
	}
	return nil
}

// ConnectParams selects a Connect API project.
type ConnectParams struct {
	ChainID uint64 `json:"chainId" mapstructure:"chainId"`
	APIKey  string `json:"apiKey" mapstructure:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty" mapstructure:"baseUrl"`
}

// Decode fills out from a loosely typed map such as a decoded JSON object.
// Numbers may arrive as float64 and are converted to the target width.
func Decode(in map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("bridge: build decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return errors.Validation("bridge.Decode", "%v", err)
	}
	return nil
}

func DecodeCommonParams(in map[string]interface{}) (CommonParams, error) {
	var p CommonParams
	err := Decode(in, &p)
	return p, err
}

func DecodeConnectParams(in map[string]interface{}) (ConnectParams, error) {
	var p ConnectParams
	err := Decode(in, &p)
	return p, err
}

func DecodeRecoveryConfig(in map[string]interface{}) (recovery.Config, error) {
	var c recovery.Config
	err := Decode(in, &c)
	return c, err
}

func DecodeUserOperation(in map[string]interface{}) (userop.UserOperation, error) {
	var op userop.UserOperation
	err := Decode(in, &op)
	return op, err
}

func DecodeTransactions(in []map[string]interface{}) ([]userop.TransactionParams, error) {
	txs := make([]userop.TransactionParams, 0, len(in))
	for i, m := range in {
		var tx userop.TransactionParams
		if err := Decode(m, &tx); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
