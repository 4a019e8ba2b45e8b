package logix

import (
	"fmt"
	"strings"
)

// Kind identifies one of the fixed-width atomic data types.
// The values are the Logix CIP data type codes so a Kind can be matched
// against type codes read from a controller.
type Kind uint16

const (
	KindBOOL  Kind = 0x00C1 // 1 bit
	KindSINT  Kind = 0x00C2 // 8 bits signed
	KindINT   Kind = 0x00C3 // 16 bits signed
	KindDINT  Kind = 0x00C4 // 32 bits signed
	KindLINT  Kind = 0x00C5 // 64 bits signed
	KindUSINT Kind = 0x00C6 // 8 bits unsigned
	KindUINT  Kind = 0x00C7 // 16 bits unsigned
	KindUDINT Kind = 0x00C8 // 32 bits unsigned
	KindULINT Kind = 0x00C9 // 64 bits unsigned
	KindREAL  Kind = 0x00CA // IEEE 754 float32
	KindLREAL Kind = 0x00CB // IEEE 754 float64
)

// Kinds lists every atomic kind in type-code order.
var Kinds = []Kind{
	KindBOOL, KindSINT, KindINT, KindDINT, KindLINT,
	KindUSINT, KindUINT, KindUDINT, KindULINT,
	KindREAL, KindLREAL,
}

// BitWidth returns the number of bits in the kind's payload.
// Returns 0 for an unknown kind.
func (k Kind) BitWidth() int {
	switch k {
	case KindBOOL:
		return 1
	case KindSINT, KindUSINT:
		return 8
	case KindINT, KindUINT:
		return 16
	case KindDINT, KindUDINT, KindREAL:
		return 32
	case KindLINT, KindULINT, KindLREAL:
		return 64
	default:
		return 0
	}
}

// Size returns the byte size of the kind. BOOL occupies one byte.
func (k Kind) Size() int {
	if k == KindBOOL {
		return 1
	}
	return k.BitWidth() / 8
}

// IsValid reports whether k is one of the eleven atomic kinds.
func (k Kind) IsValid() bool {
	return k.BitWidth() != 0
}

// IsInteger is true for the signed and unsigned integer kinds (not BOOL).
func (k Kind) IsInteger() bool {
	switch k {
	case KindSINT, KindINT, KindDINT, KindLINT, KindUSINT, KindUINT, KindUDINT, KindULINT:
		return true
	}
	return false
}

// IsSigned is true for the signed integer kinds.
func (k Kind) IsSigned() bool {
	switch k {
	case KindSINT, KindINT, KindDINT, KindLINT:
		return true
	}
	return false
}

// IsFloat is true for REAL and LREAL.
func (k Kind) IsFloat() bool {
	return k == KindREAL || k == KindLREAL
}

// DefaultRadix returns Float for the floating kinds and Decimal otherwise.
func (k Kind) DefaultRadix() Radix {
	if !k.IsValid() {
		return Null
	}
	if k.IsFloat() {
		return Float
	}
	return Decimal
}

// String returns the Logix type name.
func (k Kind) String() string {
	switch k {
	case KindBOOL:
		return "BOOL"
	case KindSINT:
		return "SINT"
	case KindINT:
		return "INT"
	case KindDINT:
		return "DINT"
	case KindLINT:
		return "LINT"
	case KindUSINT:
		return "USINT"
	case KindUINT:
		return "UINT"
	case KindUDINT:
		return "UDINT"
	case KindULINT:
		return "ULINT"
	case KindREAL:
		return "REAL"
	case KindLREAL:
		return "LREAL"
	default:
		return fmt.Sprintf("TYPE_%04X", uint16(k))
	}
}

// KindFromName returns the kind for a type name, case-insensitively.
// BIT is accepted as an alias for BOOL, as it appears on packed bit members.
func KindFromName(name string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BOOL", "BIT":
		return KindBOOL, true
	case "SINT":
		return KindSINT, true
	case "INT":
		return KindINT, true
	case "DINT":
		return KindDINT, true
	case "LINT":
		return KindLINT, true
	case "USINT":
		return KindUSINT, true
	case "UINT":
		return KindUINT, true
	case "UDINT":
		return KindUDINT, true
	case "ULINT":
		return KindULINT, true
	case "REAL":
		return KindREAL, true
	case "LREAL":
		return KindLREAL, true
	default:
		return 0, false
	}
}

// IsAtomicName reports whether name is an atomic type name.
func IsAtomicName(name string) bool {
	_, ok := KindFromName(name)
	return ok
}

// mask returns the bit mask covering the kind's payload.
func (k Kind) mask() uint64 {
	w := k.BitWidth()
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(w)) - 1
}
