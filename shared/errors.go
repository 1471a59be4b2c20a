package shared

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies every failure an operation can report.
type ErrorKind string

const (
	KindPoolNotFound               ErrorKind = "PoolNotFound"
	KindPoolExists                 ErrorKind = "PoolExists"
	KindZeroReserve                ErrorKind = "ZeroReserve"
	KindInsufficientLiquidity      ErrorKind = "InsufficientLiquidity"
	KindSlippageUnachievable       ErrorKind = "SlippageUnachievable"
	KindSlippageExceeded           ErrorKind = "SlippageExceeded"
	KindProportionUndefined        ErrorKind = "ProportionUndefined"
	KindAddressDerivationExhausted ErrorKind = "AddressDerivationExhausted"
	KindAccountNotFound            ErrorKind = "AccountNotFound"
	KindInsufficientBalance        ErrorKind = "InsufficientBalance"
	KindIndeterminate              ErrorKind = "Indeterminate"
	KindCleanupWarning             ErrorKind = "CleanupWarning"
	KindInvalidArgument            ErrorKind = "InvalidArgument"
	KindLedgerFailure              ErrorKind = "LedgerFailure"
	// KindUnreconciled warns that executed amounts could not be read back
	// and the result carries the quoted ones.
	KindUnreconciled ErrorKind = "Unreconciled"
	// KindCancelled is a caller cancellation before anything was submitted.
	KindCancelled ErrorKind = "Cancelled"
)

// Error is the structured failure carried by results.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

var (
	ErrPoolNotFound               = &Error{Kind: KindPoolNotFound}
	ErrPoolExists                 = &Error{Kind: KindPoolExists}
	ErrZeroReserve                = &Error{Kind: KindZeroReserve}
	ErrInsufficientLiquidity      = &Error{Kind: KindInsufficientLiquidity}
	ErrSlippageUnachievable       = &Error{Kind: KindSlippageUnachievable}
	ErrSlippageExceeded           = &Error{Kind: KindSlippageExceeded}
	ErrProportionUndefined        = &Error{Kind: KindProportionUndefined}
	ErrAddressDerivationExhausted = &Error{Kind: KindAddressDerivationExhausted}
	ErrAccountNotFound            = &Error{Kind: KindAccountNotFound}
	ErrInsufficientBalance        = &Error{Kind: KindInsufficientBalance}
	ErrIndeterminate              = &Error{Kind: KindIndeterminate}
	ErrCleanupWarning             = &Error{Kind: KindCleanupWarning}
	ErrInvalidArgument            = &Error{Kind: KindInvalidArgument}
	ErrLedgerFailure              = &Error{Kind: KindLedgerFailure}
	ErrUnreconciled               = &Error{Kind: KindUnreconciled}
	ErrCancelled                  = &Error{Kind: KindCancelled}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf classifies err. Deadline expiry is Indeterminate, cancellation is
// Cancelled, and anything else unclassified is a ledger failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindIndeterminate
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindLedgerFailure
}

// AsError converts err to an *Error, classifying it with KindOf when needed.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindOf(err), Err: err}
}
