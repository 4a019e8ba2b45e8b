// Package errs defines the error kinds shared by the type engine packages.
//
// Every structured error unwraps to one of the sentinels below, so callers can
// branch with errors.Is and pull details with errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrFormat          = errors.New("invalid format")
	ErrUnsupportedKind = errors.New("unsupported kind")
	ErrRange           = errors.New("out of range")
	ErrDimensionality  = errors.New("dimension mismatch")
	ErrLookup          = errors.New("member not found")
	ErrName            = errors.New("invalid name")
	ErrCycle           = errors.New("circular type reference")
)

// FormatError reports text that does not match a radix or name grammar.
type FormatError struct {
	Input    string // Offending text
	Expected string // Format or grammar the text was checked against
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("input %q does not have expected %s format", e.Input, e.Expected)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// UnsupportedKindError reports a radix applied to a kind it does not support.
type UnsupportedKindError struct {
	Kind   string
	Format string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%s is not supported by %s radix", e.Kind, e.Format)
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// RangeError reports a bit index, coordinate, key or value outside its bounds.
type RangeError struct {
	What  string // e.g. "bit", "index", "value"
	Value string
	Limit string // Human readable bound, may be empty
}

func (e *RangeError) Error() string {
	if e.Limit == "" {
		return fmt.Sprintf("%s %s is out of range", e.What, e.Value)
	}
	return fmt.Sprintf("%s %s is out of range for %s", e.What, e.Value, e.Limit)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// DimensionalityError reports an index with the wrong number of coordinates.
type DimensionalityError struct {
	Want int // Degrees of freedom of the array
	Got  int // Coordinates supplied
}

func (e *DimensionalityError) Error() string {
	return fmt.Sprintf("array has %d dimension(s), got %d index coordinate(s)", e.Want, e.Got)
}

func (e *DimensionalityError) Unwrap() error { return ErrDimensionality }

// LookupError reports a path segment with no matching member.
type LookupError struct {
	Path    string // Full path being resolved
	Segment string // Deepest segment that failed
	Type    string // Name of the type owning the walk
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("member '%s' of path '%s' does not exist as a valid descendant of '%s'",
		e.Segment, e.Path, e.Type)
}

func (e *LookupError) Unwrap() error { return ErrLookup }

// NameError reports an identifier that fails the Logix name rules.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

func (e *NameError) Unwrap() error { return ErrName }
