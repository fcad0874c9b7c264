package userop

import (
	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// TransactionParams is one call executed by the account.
type TransactionParams struct {
	To           string `json:"to" mapstructure:"to"`
	Value        string `json:"value,omitempty" mapstructure:"value"`
	Data         string `json:"data,omitempty" mapstructure:"data"`
	DelegateCall bool   `json:"delegateCall,omitempty" mapstructure:"delegateCall"`
}

// WithDefaults fills an empty value with "0x0" and empty data with "0x".
func (p TransactionParams) WithDefaults() TransactionParams {
	if p.Value == "" {
		p.Value = "0x0"
	}
	if p.Data == "" {
		p.Data = "0x"
	}
	return p
}

// Validate checks the call after defaults are applied.
func (p TransactionParams) Validate() error {
	const name = "TransactionParams.Validate"
	if !codec.IsValidEthereumAddress(p.To) {
		return errors.Invalid(name, errors.ErrInvalidTransactionParams, "invalid to address: %q", p.To)
	}
	if !codec.IsValidHex(p.Value) {
		return errors.Invalid(name, errors.ErrInvalidTransactionParams, "invalid value: %q", p.Value)
	}
	if !codec.IsValidHex(p.Data) {
		return errors.Invalid(name, errors.ErrInvalidTransactionParams, "invalid data: %q", p.Data)
	}
	return nil
}
