package safe

import (
	"fmt"
	"math/big"
)

// PackMultiSend packs calls in the MultiSend wire format:
// operation(1)‖to(20)‖value(32)‖dataLength(32)‖data for each call.
// Values must fit uint256; EncodeMultiSend checks them.
func PackMultiSend(calls []Call) []byte {
	var out []byte
	for _, c := range calls {
		out = append(out, byte(c.Operation))
		out = append(out, c.To.Bytes()...)
		out = append(out, abiUint256(c.Value)...)
		out = append(out, abiUint256(big.NewInt(int64(len(c.Data))))...)
		out = append(out, c.Data...)
	}
	return out
}

// EncodeMultiSend returns multiSend(bytes) call data for calls.
func EncodeMultiSend(calls []Call) ([]byte, error) {
	for i, c := range calls {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
	}
	data, err := MultiSendABI.Pack("multiSend", PackMultiSend(calls))
	if err != nil {
		return nil, fmt.Errorf("pack multiSend: %w", err)
	}
	return data, nil
}
