// Package fault classifies failures raised while optimising an image.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindDecode
	KindConfig
	KindProcessing
	KindConflictExhausted
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindConfig:
		return "configuration"
	case KindProcessing:
		return "processing"
	case KindConflictExhausted:
		return "conflict"
	default:
		return "unknown"
	}
}

// ErrConflictExhausted is returned when no free rename slot exists for an output path.
var ErrConflictExhausted = errors.New("too many conflicting files")

// Error carries the failure kind together with the operation and file involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func IO(op, path string, err error) *Error {
	return newError(KindIO, op, path, err)
}

func Decode(path string, err error) *Error {
	return newError(KindDecode, "decode", path, err)
}

func Config(op string, err error) *Error {
	return newError(KindConfig, op, "", err)
}

// Configf builds a configuration error from a format string.
func Configf(op, format string, args ...any) *Error {
	return newError(KindConfig, op, "", fmt.Errorf(format, args...))
}

func Processing(op string, err error) *Error {
	return newError(KindProcessing, op, "", err)
}

// Processingf builds a processing error from a format string.
func Processingf(op, format string, args ...any) *Error {
	return newError(KindProcessing, op, "", fmt.Errorf(format, args...))
}

func ConflictExhausted(path string) *Error {
	return newError(KindConflictExhausted, "resolve output", path, ErrConflictExhausted)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
