// Package tools contains the stateless local tool implementations and the
// error taxonomy shared by every tool surface.
package tools

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure so transports can map it to a status code.
type Kind int

const (
	// KindUnknown covers failures that did not originate in a tool.
	KindUnknown Kind = iota
	// KindValidation means the caller supplied malformed or missing input.
	KindValidation
	// KindConfiguration means a required credential or setting is absent.
	KindConfiguration
	// KindProvider means a third-party API reported failure or a non-success status.
	KindProvider
	// KindNotFound means a referenced record does not exist.
	KindNotFound
	// KindUnsupportedType means the caller requested an unrecognized mode or filter.
	KindUnsupportedType
	// KindEvaluation means an expression could not be safely evaluated.
	KindEvaluation
)

// Error is the uniform failure value returned by every tool operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validationf builds a caller-input error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Configurationf builds a missing-configuration error.
func Configurationf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Providerf builds a third-party failure error.
func Providerf(format string, args ...any) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a missing-record error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unsupportedf builds an unrecognized-mode error.
func Unsupportedf(format string, args ...any) *Error {
	return &Error{Kind: KindUnsupportedType, Message: fmt.Sprintf(format, args...)}
}

// Evaluationf builds an expression-evaluation error.
func Evaluationf(format string, args ...any) *Error {
	return &Error{Kind: KindEvaluation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the tool error kind, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
