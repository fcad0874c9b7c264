package safe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/userop"
)

// Operation is the Safe call type.
type Operation uint8

const (
	OpCall       Operation = 0
	DelegateCall Operation = 1
)

// Call is one decoded call executed by the account.
type Call struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation Operation
}

// CallFromParams applies defaults, validates and decodes p.
func CallFromParams(p userop.TransactionParams) (Call, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return Call{}, err
	}
	value, err := codec.HexToBigInt(p.Value)
	if err != nil {
		return Call{}, errors.Invalid("safe.CallFromParams", errors.ErrInvalidTransactionParams, "value: %v", err)
	}
	if value.BitLen() > 256 {
		return Call{}, errors.Invalid("safe.CallFromParams", errors.ErrInvalidTransactionParams, "value exceeds uint256")
	}
	data, err := codec.HexToBytes(p.Data)
	if err != nil {
		return Call{}, errors.Invalid("safe.CallFromParams", errors.ErrInvalidTransactionParams, "data: %v", err)
	}
	op := OpCall
	if p.DelegateCall {
		op = DelegateCall
	}
	return Call{To: common.HexToAddress(p.To), Value: value, Data: data, Operation: op}, nil
}

// CallsFromParams decodes a list of params, stopping at the first invalid entry.
func CallsFromParams(params []userop.TransactionParams) ([]Call, error) {
	calls := make([]Call, 0, len(params))
	for i, p := range params {
		c, err := CallFromParams(p)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		calls = append(calls, c)
	}
	return calls, nil
}

func (c Call) validate() error {
	if c.Value != nil && (c.Value.Sign() < 0 || c.Value.BitLen() > 256) {
		return errors.Invalid("safe.Call", errors.ErrInvalidTransactionParams, "value out of uint256 range")
	}
	return nil
}

// ExecuteUserOp returns Safe4337Module.executeUserOp call data for a single call.
func ExecuteUserOp(c Call) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}
	data, err := Safe4337ABI.Pack("executeUserOp", c.To, value, lo.Ternary(c.Data == nil, []byte{}, c.Data), uint8(c.Operation))
	if err != nil {
		return nil, fmt.Errorf("pack executeUserOp: %w", err)
	}
	return data, nil
}

// EncodeCallData reduces calls to user operation call data. One call is executed
// directly; several are batched through MultiSend by delegatecall.
func EncodeCallData(calls []Call, cfg Config) ([]byte, error) {
	switch len(calls) {
	case 0:
		return nil, errors.Invalid("safe.EncodeCallData", errors.ErrInvalidTransactionParams, "no calls")
	case 1:
		return ExecuteUserOp(calls[0])
	}
	batch, err := EncodeMultiSend(calls)
	if err != nil {
		return nil, err
	}
	return ExecuteUserOp(Call{To: cfg.MultiSend(), Value: new(big.Int), Data: batch, Operation: DelegateCall})
}
