package bridge

import (
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// Failure is the structured form of an error handed to the caller.
type Failure struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
}

// FailureOf classifies err. Errors without a kind are reported as RPC errors,
// since everything local is validated up front.
func FailureOf(err error) *Failure {
	if err == nil {
		return nil
	}
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindRPC
	}
	return &Failure{Kind: kind, Message: err.Error()}
}

// Result is either a value or a failure.
type Result[T any] struct {
	OK      bool     `json:"ok"`
	Value   T        `json:"value,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Capture packages the return values of a bridge call.
func Capture[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{Failure: FailureOf(err)}
	}
	return Result[T]{OK: true, Value: v}
}
