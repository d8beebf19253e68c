package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound means the store holds nothing the operation can work from.
	ErrNotFound = errors.New("no readings available")
	// ErrInvalidArgument marks malformed query input such as a bad hours value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNonFinite means a derived reading overflowed to ±Inf or NaN and was not stored.
	ErrNonFinite = errors.New("derived reading is not finite")
)

// InvalidArgumentError names the offending argument. It matches ErrInvalidArgument with errors.Is.
type InvalidArgumentError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid '%s' %q: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// ValidationError lists every rejected field of a create request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
