package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeChannel    Code = "CHANNEL_ERROR"
	CodeStore      Code = "STORE_ERROR"
	CodeScan       Code = "SCAN_ERROR"
	CodeDependency Code = "DEPENDENCY_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Metadata describes how callers should react to a code.
type Metadata struct {
	Retryable bool
	// Silent codes describe expected outcomes that should not be logged as failures.
	Silent bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {Retryable: false},
	CodeNotFound:   {Retryable: false, Silent: true},
	CodeConflict:   {Retryable: false, Silent: true},
	CodeChannel:    {Retryable: false},
	CodeStore:      {Retryable: true},
	CodeScan:       {Retryable: true},
	CodeDependency: {Retryable: true},
	CodeInternal:   {Retryable: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf returns the code attached to err, CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}
