// Package errors defines the error taxonomy surfaced to callers of the account core.
// Every failure carries a Kind so the boundary layer can map it to a structured result.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindSigningFailed     Kind = "SigningFailed"
	KindEstimationFailed  Kind = "EstimationFailed"
	KindSponsorshipFailed Kind = "SponsorshipFailed"
	KindSubmissionFailed  Kind = "SubmissionFailed"
	KindPollTimeout       Kind = "PollTimeout"
	KindRPC               Kind = "RpcError"
)

// Validation sub-kinds. They are matched with errors.Is and all carry KindValidation.
var (
	ErrInvalidConfig            = errors.New("invalid config")
	ErrInvalidSigner            = errors.New("invalid signer")
	ErrInvalidTransactionParams = errors.New("invalid transaction params")
	ErrInvalidUserOperation     = errors.New("invalid user operation")
	ErrInvalidAddress           = errors.New("invalid address")
	ErrInvalidHex               = errors.New("invalid hex")
)

// Error is the structured failure returned by every core operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: KindPollTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// New builds an error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid builds a validation error around one of the Err* sentinels.
func Invalid(op string, sentinel error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// KindOf returns the kind carried by err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Standard library passthroughs so callers need a single errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Validation builds a bare validation error with no sentinel.
func Validation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, format, args...)
}
