package logix

import (
	"regexp"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// Radix is the number base format used to render an atomic value as text.
type Radix int

const (
	Null Radix = iota
	Binary
	Octal
	Decimal
	Hex
	Float
	Exponential
	Ascii
	DateTime
	DateTimeNs
)

// radixSpec holds the fixed properties of each radix.
type radixSpec struct {
	name      string         // L5X attribute value
	specifier string         // Prefix such as "2#"
	separator string         // Digit group separator
	group     int            // Digits per group (0 = no grouping)
	base      int            // Numeric base for digit radixes
	pattern   *regexp.Regexp // Identifier used by Infer and format validation
	kinds     []Kind
}

var (
	integerKinds = []Kind{KindSINT, KindINT, KindDINT, KindLINT, KindUSINT, KindUINT, KindUDINT, KindULINT}
	digitKinds   = append([]Kind{KindBOOL}, integerKinds...)
	floatKinds   = []Kind{KindREAL, KindLREAL}
)

var radixSpecs = map[Radix]radixSpec{
	Null: {name: "NullType"},
	Binary: {
		name: "Binary", specifier: "2#", separator: "_", group: 4, base: 2,
		pattern: regexp.MustCompile(`^2#[01](_?[01])*$`),
		kinds:   digitKinds,
	},
	Octal: {
		name: "Octal", specifier: "8#", separator: "_", group: 3, base: 8,
		pattern: regexp.MustCompile(`^8#[0-7](_?[0-7])*$`),
		kinds:   digitKinds,
	},
	Decimal: {
		name: "Decimal", base: 10,
		pattern: regexp.MustCompile(`^[+-]?\d+$`),
		kinds:   digitKinds,
	},
	Hex: {
		name: "Hex", specifier: "16#", separator: "_", group: 4, base: 16,
		pattern: regexp.MustCompile(`^16#[0-9a-fA-F](_?[0-9a-fA-F])*$`),
		kinds:   digitKinds,
	},
	Float: {
		name:    "Float",
		pattern: regexp.MustCompile(`^[+-]?(\d+\.\d+|1\.#QNAN|1\.#INF)$`),
		kinds:   floatKinds,
	},
	Exponential: {
		name:    "Exponential",
		pattern: regexp.MustCompile(`^[+-]?\d\.\d+[eE][+-]\d+$`),
		kinds:   floatKinds,
	},
	Ascii: {
		name: "ASCII", separator: "$", group: 2, base: 16,
		pattern: regexp.MustCompile(`^(\$[0-9a-fA-F]{2})+$`),
		kinds:   integerKinds,
	},
	DateTime: {
		name: "Date/Time", specifier: "DT#",
		pattern: regexp.MustCompile(`^DT#\d{4}-\d{2}-\d{2}-\d{2}:\d{2}:\d{2}\.\d{6}\(UTC[+-]\d{2}:\d{2}\)$`),
		kinds:   []Kind{KindLINT},
	},
	DateTimeNs: {
		name: "Date/Time (ns)", specifier: "LDT#",
		pattern: regexp.MustCompile(`^LDT#\d{4}-\d{2}-\d{2}-\d{2}:\d{2}:\d{2}\.\d{7}\(UTC[+-]\d{2}:\d{2}\)$`),
		kinds:   []Kind{KindLINT},
	},
}

// Radixes lists every radix, Null first.
var Radixes = []Radix{Null, Binary, Octal, Decimal, Hex, Float, Exponential, Ascii, DateTime, DateTimeNs}

func (r Radix) spec() radixSpec {
	return radixSpecs[r]
}

// String returns the L5X name of the radix (e.g. "Hex", "Date/Time").
func (r Radix) String() string {
	if s, ok := radixSpecs[r]; ok {
		return s.name
	}
	return "NullType"
}

// Specifier returns the prefix written before the digits, if any.
func (r Radix) Specifier() string { return r.spec().specifier }

// Separator returns the digit group separator, if any.
func (r Radix) Separator() string { return r.spec().separator }

// Kinds returns the atomic kinds the radix can render.
func (r Radix) Kinds() []Kind {
	kinds := r.spec().kinds
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Supports reports whether the radix can render values of kind k.
func (r Radix) Supports(k Kind) bool {
	for _, s := range r.spec().kinds {
		if s == k {
			return true
		}
	}
	return false
}

// Matches reports whether text has this radix's format.
func (r Radix) Matches(text string) bool {
	p := r.spec().pattern
	return p != nil && p.MatchString(text)
}

// ParseRadix returns the radix for an L5X radix name. The enum spellings
// ("Ascii", "DateTime", "DateTimeNs", "Null") are accepted as well.
func ParseRadix(name string) (Radix, error) {
	trimmed := strings.TrimSpace(name)
	for _, r := range Radixes {
		if strings.EqualFold(r.String(), trimmed) {
			return r, nil
		}
	}
	switch strings.ToLower(trimmed) {
	case "", "null":
		return Null, nil
	case "ascii":
		return Ascii, nil
	case "datetime":
		return DateTime, nil
	case "datetimens":
		return DateTimeNs, nil
	}
	return Null, &errs.FormatError{Input: name, Expected: "radix name"}
}

// MarshalText implements encoding.TextMarshaler.
func (r Radix) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Radix) UnmarshalText(text []byte) error {
	parsed, err := ParseRadix(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Formats is an ordered set of radix identifiers used to infer the format of
// an untyped string. Registries are plain values; tests build their own with
// NewFormats.
type Formats struct {
	order []Radix
}

// NewFormats creates a registry that tries the given radixes in order.
// Null is ignored since it has no identifier.
func NewFormats(radixes ...Radix) *Formats {
	f := &Formats{order: make([]Radix, 0, len(radixes))}
	for _, r := range radixes {
		if r == Null {
			continue
		}
		f.order = append(f.order, r)
	}
	return f
}

// StandardFormats returns a registry with every radix in the order the L5X
// tooling checks them.
func StandardFormats() *Formats {
	return NewFormats(Binary, Octal, Decimal, Hex, Float, Exponential, Ascii, DateTime, DateTimeNs)
}

// Radixes returns the registered radixes in lookup order.
func (f *Formats) Radixes() []Radix {
	out := make([]Radix, len(f.order))
	copy(out, f.order)
	return out
}

// Infer returns the first registered radix whose format matches text, or Null.
func (f *Formats) Infer(text string) Radix {
	for _, r := range f.order {
		if r.Matches(text) {
			return r
		}
	}
	return Null
}

// Parse infers the radix of text and parses it to its natural kind.
func (f *Formats) Parse(text string) (*Atomic, error) {
	r := f.Infer(text)
	if r == Null {
		return nil, &errs.FormatError{Input: text, Expected: "radix"}
	}
	return r.Parse(text)
}

var standardFormats = StandardFormats()

// Infer returns the radix of text using the standard registry.
func Infer(text string) Radix {
	return standardFormats.Infer(text)
}

// ParseValue parses text of any standard radix to its natural kind.
func ParseValue(text string) (*Atomic, error) {
	return standardFormats.Parse(text)
}
