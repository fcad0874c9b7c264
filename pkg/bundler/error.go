package bundler

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// Error is a JSON-RPC error returned by a bundler or paymaster.
type Error struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("bundler error %d: %s", e.Code, e.Message)
}

// RevertReason decodes an Error(string) revert carried in Data, if any.
func (e *Error) RevertReason() (string, bool) {
	s, ok := e.Data.(string)
	if !ok {
		if m, isMap := e.Data.(map[string]interface{}); isMap {
			s, ok = m["revertData"].(string)
		}
	}
	if !ok || !strings.HasPrefix(s, "0x") {
		return "", false
	}
	raw, err := codec.HexToBytes(s)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}

// AsError converts an rpc client error into *Error. Transport failures that
// carry no JSON-RPC code are returned unchanged.
func AsError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	out := &Error{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		out.Data = dataErr.ErrorData()
	}
	return out
}

// wrap classifies err under kind, surfacing a decoded revert reason as the message.
func wrap(kind errors.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	err = AsError(err)
	var be *Error
	if errors.As(err, &be) {
		if reason, ok := be.RevertReason(); ok {
			return &errors.Error{Kind: kind, Op: op, Msg: reason, Err: be}
		}
	}
	return errors.Wrap(kind, op, err)
}
