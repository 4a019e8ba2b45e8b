package logix

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// Convert renders the atomic value in this radix.
func (r Radix) Convert(a *Atomic) (string, error) {
	if a == nil {
		return "", fmt.Errorf("nil atomic value")
	}
	if !r.Supports(a.kind) {
		return "", &errs.UnsupportedKindError{Kind: a.kind.String(), Format: r.String()}
	}

	switch r {
	case Binary, Octal, Hex:
		return r.convertDigits(a), nil
	case Decimal:
		return convertDecimal(a), nil
	case Float:
		return convertFloat(a), nil
	case Exponential:
		return convertExponential(a), nil
	case Ascii:
		return convertAscii(a), nil
	case DateTime, DateTimeNs:
		return r.convertDateTime(a)
	}
	return "", &errs.UnsupportedKindError{Kind: a.kind.String(), Format: r.String()}
}

// Parse parses text in this radix and returns the smallest natural kind for
// it: one digit of 0 or 1 is a BOOL, otherwise the digit count picks the
// signed integer width. Use ParseAs to target a specific kind.
func (r Radix) Parse(text string) (*Atomic, error) {
	if err := r.validate(text); err != nil {
		return nil, err
	}

	switch r {
	case Binary, Octal, Hex:
		digits := r.digits(text)
		v, err := parseDigits(text, digits, r.spec().base)
		if err != nil {
			return nil, err
		}
		if len(digits) == 1 && v <= 1 {
			return newAtomic(KindBOOL, v, r), nil
		}
		for _, k := range []Kind{KindSINT, KindINT, KindDINT, KindLINT} {
			if len(digits) <= r.digitCount(k) && v&^k.mask() == 0 {
				return newAtomic(k, v, r), nil
			}
		}
		return nil, &errs.RangeError{What: "value", Value: text, Limit: "LINT"}

	case Decimal:
		for _, k := range []Kind{KindSINT, KindINT, KindDINT, KindLINT} {
			if v, err := strconv.ParseInt(text, 10, k.BitWidth()); err == nil {
				return newAtomic(k, uint64(v), Decimal), nil
			}
		}
		if v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 64); err == nil {
			return newAtomic(KindULINT, v, Decimal), nil
		}
		return nil, &errs.RangeError{What: "value", Value: text, Limit: "ULINT"}

	case Float, Exponential:
		f, err := parseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		// REAL only when the text survives the narrowing unchanged.
		if math.IsNaN(f) || math.IsInf(f, 0) || float64(float32(f)) == f {
			return newAtomic(KindREAL, uint64(math.Float32bits(float32(f))), r), nil
		}
		return newAtomic(KindLREAL, math.Float64bits(f), r), nil

	case Ascii:
		pairs := len(r.digits(text)) / 2
		for _, k := range []Kind{KindSINT, KindINT, KindDINT, KindLINT} {
			if pairs == k.Size() {
				return r.ParseAs(text, k)
			}
		}
		return nil, &errs.RangeError{What: "byte count", Value: strconv.Itoa(pairs), Limit: "ASCII radix"}

	case DateTime, DateTimeNs:
		return r.ParseAs(text, KindLINT)
	}

	return nil, &errs.FormatError{Input: text, Expected: r.String()}
}

// ParseAs parses text in this radix as a value of kind k. The returned value
// carries this radix.
func (r Radix) ParseAs(text string, k Kind) (*Atomic, error) {
	if err := r.validate(text); err != nil {
		return nil, err
	}
	if !r.Supports(k) {
		return nil, &errs.UnsupportedKindError{Kind: k.String(), Format: r.String()}
	}

	switch r {
	case Binary, Octal, Hex, Ascii:
		v, err := parseDigits(text, r.digits(text), r.spec().base)
		if err != nil {
			return nil, err
		}
		if v&^k.mask() != 0 {
			return nil, &errs.RangeError{What: "value", Value: text, Limit: k.String()}
		}
		return newAtomic(k, v, r), nil

	case Decimal:
		return parseDecimalAs(text, k)

	case Float, Exponential:
		f, err := parseFloat(text, k.BitWidth())
		if err != nil {
			return nil, err
		}
		if k == KindREAL {
			return newAtomic(k, uint64(math.Float32bits(float32(f))), r), nil
		}
		return newAtomic(k, math.Float64bits(f), r), nil

	case DateTime, DateTimeNs:
		v, err := r.parseDateTime(text)
		if err != nil {
			return nil, err
		}
		return newAtomic(k, uint64(v), r), nil
	}

	return nil, &errs.FormatError{Input: text, Expected: r.String()}
}

func (r Radix) validate(text string) error {
	if !r.Matches(text) {
		return &errs.FormatError{Input: text, Expected: r.String()}
	}
	return nil
}

// digits strips the specifier and separators from text.
func (r Radix) digits(text string) string {
	s := r.spec()
	text = strings.TrimPrefix(text, s.specifier)
	if s.separator != "" {
		text = strings.ReplaceAll(text, s.separator, "")
	}
	return text
}

// digitCount is the padded digit width of kind k in this radix.
func (r Radix) digitCount(k Kind) int {
	w := k.BitWidth()
	if w == 1 {
		return 1
	}
	switch r {
	case Binary:
		return w
	case Octal:
		return (w + 2) / 3
	case Hex:
		return w / 4
	case Ascii:
		return w / 4
	}
	return 0
}

func parseDigits(text, digits string, base int) (uint64, error) {
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, &errs.RangeError{What: "value", Value: text, Limit: "64 bits"}
		}
		return 0, &errs.FormatError{Input: text, Expected: fmt.Sprintf("base %d digits", base)}
	}
	return v, nil
}

func (r Radix) convertDigits(a *Atomic) string {
	s := r.spec()
	str := strconv.FormatUint(a.bits, s.base)
	if n := r.digitCount(a.kind); len(str) < n {
		str = strings.Repeat("0", n-len(str)) + str
	}
	return s.specifier + group(str, s.group, s.separator)
}

// group inserts sep every n characters counting from the right.
func group(s string, n int, sep string) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	var sb strings.Builder
	lead := len(s) % n
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += n {
		if sb.Len() > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(s[i : i+n])
	}
	return sb.String()
}

func convertDecimal(a *Atomic) string {
	if a.kind.IsSigned() {
		return strconv.FormatInt(a.Int64(), 10)
	}
	return strconv.FormatUint(a.bits, 10)
}

func parseDecimalAs(text string, k Kind) (*Atomic, error) {
	rangeErr := &errs.RangeError{What: "value", Value: text, Limit: k.String()}

	if k == KindBOOL {
		switch strings.TrimPrefix(text, "+") {
		case "0":
			return newAtomic(k, 0, Decimal), nil
		case "1":
			return newAtomic(k, 1, Decimal), nil
		}
		return nil, rangeErr
	}

	if k.IsSigned() {
		v, err := strconv.ParseInt(text, 10, k.BitWidth())
		if err != nil {
			return nil, rangeErr
		}
		return newAtomic(k, uint64(v), Decimal), nil
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, k.BitWidth())
	if err != nil {
		return nil, rangeErr
	}
	return newAtomic(k, v, Decimal), nil
}

func convertAscii(a *Atomic) string {
	var sb strings.Builder
	b := a.Bytes()
	for i := len(b) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "$%02X", b[i])
	}
	return sb.String()
}
