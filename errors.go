package ragfile

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when a file is not a well-formed container.
	ErrFormat = errors.New("ragfile: invalid format")

	// ErrInvalidArgument is returned when a caller passes an unsupported value.
	ErrInvalidArgument = errors.New("ragfile: invalid argument")

	// ErrInvalidState is returned when writer calls happen out of order.
	ErrInvalidState = errors.New("ragfile: invalid writer state")

	// ErrIO is returned when opening, writing or mapping storage fails.
	ErrIO = errors.New("ragfile: i/o failure")
)

// FormatError describes a structural problem found while parsing a file.
//
// errors.Is(err, ErrFormat) reports true for every FormatError.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("ragfile: invalid format: %s", e.Reason)
	}
	return fmt.Sprintf("ragfile: invalid format at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ArgumentError describes a rejected argument.
//
// errors.Is(err, ErrInvalidArgument) reports true for every ArgumentError.
type ArgumentError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("ragfile: invalid argument %s: %v", e.Name, e.Value)
	}
	return fmt.Sprintf("ragfile: invalid argument %s (%v): %s", e.Name, e.Value, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

func formatErrorf(offset int64, format string, args ...any) error {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

func invalidArg(name string, value any, reason string) error {
	return &ArgumentError{Name: name, Value: value, Reason: reason}
}

func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
