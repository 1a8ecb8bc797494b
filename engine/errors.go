package engine

import (
	"context"
	stderrors "errors"

	"github.com/wippyai/irflow/errors"
)

// ErrorKind categorizes errors for integration with external error handling.
type ErrorKind string

const (
	KindUnknown  ErrorKind = "Unknown"
	KindCanceled ErrorKind = "Canceled"
	KindTimeout  ErrorKind = "Timeout"
	KindInternal ErrorKind = "Internal"
	KindInvalid  ErrorKind = "Invalid"
	KindPanic    ErrorKind = "Panic"
)

// ClassifyError maps a fault produced by a procedure to a coarse category.
// Faults raised by user code are KindUnknown.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if stderrors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	switch errors.KindOf(err) {
	case errors.KindPanic:
		return KindPanic
	case errors.KindUnhandledFault, errors.KindUnresolvedLabel, errors.KindUnboundVariable, errors.KindUnsupported:
		return KindInternal
	case errors.KindInvalidInput, errors.KindTypeMismatch:
		return KindInvalid
	}
	return KindUnknown
}
