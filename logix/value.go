package logix

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// Atomic is a fixed-width BOOL, integer or floating point value.
//
// The payload is kept as the raw bit pattern of the kind (two's complement for
// signed kinds, IEEE 754 for REAL/LREAL) masked to the kind's width, so
// exactly one representation is ever active.
//
// An Atomic is not safe for concurrent mutation.
type Atomic struct {
	kind     Kind
	bits     uint64
	radix    Radix
	onChange func(*Atomic)
}

func newAtomic(k Kind, bits uint64, r Radix) *Atomic {
	return &Atomic{kind: k, bits: bits & k.mask(), radix: r}
}

// New returns the zero value of kind k with the kind's default radix.
func New(k Kind) (*Atomic, error) {
	if !k.IsValid() {
		return nil, &errs.UnsupportedKindError{Kind: k.String(), Format: "atomic"}
	}
	return newAtomic(k, 0, k.DefaultRadix()), nil
}

// NewWithRadix returns the zero value of kind k rendered in radix r.
func NewWithRadix(k Kind, r Radix) (*Atomic, error) {
	a, err := New(k)
	if err != nil {
		return nil, err
	}
	return a.WithRadix(r)
}

func Bool(v bool) *Atomic {
	if v {
		return newAtomic(KindBOOL, 1, Decimal)
	}
	return newAtomic(KindBOOL, 0, Decimal)
}

func Sint(v int8) *Atomic    { return newAtomic(KindSINT, uint64(v), Decimal) }
func Int(v int16) *Atomic    { return newAtomic(KindINT, uint64(v), Decimal) }
func Dint(v int32) *Atomic   { return newAtomic(KindDINT, uint64(v), Decimal) }
func Lint(v int64) *Atomic   { return newAtomic(KindLINT, uint64(v), Decimal) }
func Usint(v uint8) *Atomic  { return newAtomic(KindUSINT, uint64(v), Decimal) }
func Uint(v uint16) *Atomic  { return newAtomic(KindUINT, uint64(v), Decimal) }
func Udint(v uint32) *Atomic { return newAtomic(KindUDINT, uint64(v), Decimal) }
func Ulint(v uint64) *Atomic { return newAtomic(KindULINT, v, Decimal) }

func Real(v float32) *Atomic {
	return newAtomic(KindREAL, uint64(math.Float32bits(v)), Float)
}

func Lreal(v float64) *Atomic {
	return newAtomic(KindLREAL, math.Float64bits(v), Float)
}

// WithRadix returns a copy of a rendered in radix r.
func (a *Atomic) WithRadix(r Radix) (*Atomic, error) {
	if !r.Supports(a.kind) {
		return nil, &errs.UnsupportedKindError{Kind: a.kind.String(), Format: r.String()}
	}
	c := a.Clone()
	c.radix = r
	return c, nil
}

func (a *Atomic) Kind() Kind    { return a.kind }
func (a *Atomic) Radix() Radix  { return a.radix }
func (a *Atomic) BitWidth() int { return a.kind.BitWidth() }

// Name returns the type name, e.g. "DINT".
func (a *Atomic) Name() string { return a.kind.String() }

// Bits returns the raw bit pattern.
func (a *Atomic) Bits() uint64 { return a.bits }

// Bool reports whether the value is non-zero.
func (a *Atomic) Bool() bool {
	if a.kind.IsFloat() {
		return a.Float64() != 0
	}
	return a.bits != 0
}

// Int64 returns the value as a signed integer. Signed kinds are sign
// extended; floating kinds are truncated toward zero.
func (a *Atomic) Int64() int64 {
	switch {
	case a.kind.IsFloat():
		return int64(a.Float64())
	case a.kind.IsSigned():
		shift := uint(64 - a.kind.BitWidth())
		return int64(a.bits<<shift) >> shift
	default:
		return int64(a.bits)
	}
}

// Uint64 returns the value as an unsigned integer.
func (a *Atomic) Uint64() uint64 {
	if a.kind.IsFloat() {
		return uint64(a.Float64())
	}
	if a.kind.IsSigned() {
		return uint64(a.Int64())
	}
	return a.bits
}

// Float64 returns the value as a float64.
func (a *Atomic) Float64() float64 {
	switch a.kind {
	case KindREAL:
		return float64(math.Float32frombits(uint32(a.bits)))
	case KindLREAL:
		return math.Float64frombits(a.bits)
	}
	if a.kind.IsSigned() {
		return float64(a.Int64())
	}
	return float64(a.bits)
}

// Value returns the value as its native Go type (bool, int8 .. int64,
// uint8 .. uint64, float32 or float64).
func (a *Atomic) Value() interface{} {
	switch a.kind {
	case KindBOOL:
		return a.bits != 0
	case KindSINT:
		return int8(a.Int64())
	case KindINT:
		return int16(a.Int64())
	case KindDINT:
		return int32(a.Int64())
	case KindLINT:
		return a.Int64()
	case KindUSINT:
		return uint8(a.bits)
	case KindUINT:
		return uint16(a.bits)
	case KindUDINT:
		return uint32(a.bits)
	case KindULINT:
		return a.bits
	case KindREAL:
		return math.Float32frombits(uint32(a.bits))
	case KindLREAL:
		return math.Float64frombits(a.bits)
	}
	return nil
}

// Bytes returns the little-endian encoding of the value, Size() bytes long.
func (a *Atomic) Bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, a.bits)
	return buf[:a.kind.Size()]
}

// Bit returns bit i of an integer value.
func (a *Atomic) Bit(i int) (bool, error) {
	if err := a.checkBit(i); err != nil {
		return false, err
	}
	return a.bits&(uint64(1)<<uint(i)) != 0, nil
}

// SetBit sets or clears bit i of an integer value.
func (a *Atomic) SetBit(i int, v bool) error {
	if err := a.checkBit(i); err != nil {
		return err
	}
	if v {
		a.bits |= uint64(1) << uint(i)
	} else {
		a.bits &^= uint64(1) << uint(i)
	}
	a.changed()
	return nil
}

func (a *Atomic) checkBit(i int) error {
	if !a.kind.IsInteger() {
		return &errs.UnsupportedKindError{Kind: a.kind.String(), Format: "bit access"}
	}
	if i < 0 || i >= a.kind.BitWidth() {
		return &errs.RangeError{What: "bit", Value: strconv.Itoa(i), Limit: a.kind.String()}
	}
	return nil
}

// Set assigns other to a by reinterpreting other's little-endian bytes in a's
// width. Wider sources are truncated, narrower ones zero extended; no range
// checking is done. The radix of a is kept.
func (a *Atomic) Set(other *Atomic) error {
	if other == nil {
		return fmt.Errorf("can not set %s from nil value", a.kind)
	}

	buf := make([]byte, 8)
	copy(buf, other.Bytes())
	a.bits = binary.LittleEndian.Uint64(buf) & a.kind.mask()

	if verboseLogging {
		debugBytes(fmt.Sprintf("set %s from %s", a.kind, other.kind), a.Bytes())
	}
	a.changed()
	return nil
}

// OnChange installs the hook called after Set or SetBit. The owning tag uses
// it to observe writes; pass nil to remove it.
func (a *Atomic) OnChange(fn func(*Atomic)) {
	a.onChange = fn
}

func (a *Atomic) changed() {
	if a.onChange != nil {
		a.onChange(a)
	}
}

// Equal reports whether both values have the same kind and payload.
// The radix is presentation only and is not compared.
func (a *Atomic) Equal(other *Atomic) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.kind == other.kind && a.bits == other.bits
}

// Clone returns an independent copy without the change hook.
func (a *Atomic) Clone() *Atomic {
	return &Atomic{kind: a.kind, bits: a.bits, radix: a.radix}
}

// Format renders the value in radix r.
func (a *Atomic) Format(r Radix) (string, error) {
	return r.Convert(a)
}

// ToText renders the value in radix r, or in the value's own radix when r is
// Null.
func (a *Atomic) ToText(r Radix) (string, error) {
	if r == Null {
		r = a.radix
	}
	return r.Convert(a)
}

// String renders the value in its own radix.
func (a *Atomic) String() string {
	s, err := a.radix.Convert(a)
	if err != nil {
		s, _ = a.kind.DefaultRadix().Convert(a)
	}
	return s
}

// ParseAtomic parses text without a declared kind. The keywords true and
// false give a BOOL; anything else is parsed in its inferred radix.
func ParseAtomic(text string) (*Atomic, error) {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	return ParseValue(text)
}

// ParseKind parses text as a value of kind k, inferring its radix. Integer
// decimal text is accepted for REAL and LREAL.
func ParseKind(k Kind, text string) (*Atomic, error) {
	if !k.IsValid() {
		return nil, &errs.UnsupportedKindError{Kind: k.String(), Format: "atomic"}
	}
	text = strings.TrimSpace(text)

	if k == KindBOOL {
		switch strings.ToLower(text) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
	}

	r := Infer(text)
	if r == Null {
		return nil, &errs.FormatError{Input: text, Expected: k.String() + " value"}
	}

	if r == Decimal && k.IsFloat() {
		a, err := Float.ParseAs(text+".0", k)
		if err != nil {
			return nil, err
		}
		a.radix = Float
		return a, nil
	}

	a, err := r.ParseAs(text, k)
	if err != nil {
		debugLogVerbose("ParseKind: %s %q: %v", k, text, err)
		return nil, err
	}
	return a, nil
}

// FromText parses text for the atomic type named kindName. This is the entry
// point used when mapping L5X DataValue elements to values.
func FromText(kindName, text string) (*Atomic, error) {
	k, ok := KindFromName(kindName)
	if !ok {
		debugLog("FromText: %q is not an atomic type", kindName)
		return nil, &errs.UnsupportedKindError{Kind: kindName, Format: "atomic"}
	}
	return ParseKind(k, text)
}
