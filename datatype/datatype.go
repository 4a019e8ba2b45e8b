// Package datatype models Logix composite data types: atomic leaves,
// structures, fixed-size arrays, fixed-capacity strings and placeholders for
// types that could not be resolved.
//
// A type value is a tree of Members. Each tree is owned by exactly one tag or
// registry and is not safe for concurrent mutation.
package datatype

import (
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/logix"
)

// DataType is implemented by *Atomic, *Structure, *Array, *String and
// *Undefined. Consumers switch on the concrete type.
type DataType interface {
	Name() string
	Class() Class
	Family() Family
	Description() string

	// Members returns the direct children in order. Atomic and Undefined have
	// none.
	Members() []*Member

	// Instantiate returns an independent tree of the same shape with zero
	// atomic leaves.
	Instantiate() DataType

	dataType()
}

// Class is the L5X data type class.
type Class int

const (
	ClassUnknown Class = iota
	ClassAtomic
	ClassPredefined
	ClassUser
	ClassIO
)

func (c Class) String() string {
	switch c {
	case ClassAtomic:
		return "Atomic"
	case ClassPredefined:
		return "ProductDefined"
	case ClassUser:
		return "User"
	case ClassIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Family is the L5X data type family.
type Family int

const (
	FamilyNone Family = iota
	FamilyString
)

func (f Family) String() string {
	if f == FamilyString {
		return "StringFamily"
	}
	return "NoFamily"
}

// Atomic is the leaf variant. It embeds the value, so Kind, Set, Bit and the
// other value methods are available directly.
type Atomic struct {
	*logix.Atomic
}

// NewAtomic returns a zero atomic of kind k. It panics on an invalid kind;
// use AtomicOf with logix.New to handle that case.
func NewAtomic(k logix.Kind) *Atomic {
	v, err := logix.New(k)
	if err != nil {
		panic(err)
	}
	return &Atomic{Atomic: v}
}

// AtomicOf wraps an existing value.
func AtomicOf(v *logix.Atomic) *Atomic {
	return &Atomic{Atomic: v}
}

func (a *Atomic) Class() Class        { return ClassAtomic }
func (a *Atomic) Family() Family      { return FamilyNone }
func (a *Atomic) Description() string { return "" }
func (a *Atomic) Members() []*Member  { return nil }
func (a *Atomic) dataType()           {}

// Instantiate returns a zero value of the same kind and radix.
func (a *Atomic) Instantiate() DataType {
	v, _ := logix.NewWithRadix(a.Kind(), a.Radix())
	if v == nil {
		v, _ = logix.New(a.Kind())
	}
	return &Atomic{Atomic: v}
}

// Undefined stands in for a type name that could not be resolved.
type Undefined struct {
	name string
}

// NewUndefined returns a placeholder for name.
func NewUndefined(name string) *Undefined {
	return &Undefined{name: name}
}

func (u *Undefined) Name() string          { return u.name }
func (u *Undefined) Class() Class          { return ClassUnknown }
func (u *Undefined) Family() Family        { return FamilyNone }
func (u *Undefined) Description() string   { return "" }
func (u *Undefined) Members() []*Member    { return nil }
func (u *Undefined) Instantiate() DataType { return &Undefined{name: u.name} }
func (u *Undefined) dataType()             {}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("DataType", format, args...)
}

func registryLog(format string, args ...interface{}) {
	logging.DebugLog("Registry", format, args...)
}
