package logix

import (
	"math"
	"strconv"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// Logix spellings of the IEEE special values.
const (
	textNaN    = "1.#QNAN"
	textPosInf = "1.#INF"
	textNegInf = "-1.#INF"
)

func specialFloat(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return textNaN, true
	case math.IsInf(f, 1):
		return textPosInf, true
	case math.IsInf(f, -1):
		return textNegInf, true
	}
	return "", false
}

// convertFloat renders the shortest fixed-point text that parses back to the
// same value, always with a fractional part.
func convertFloat(a *Atomic) string {
	f := a.Float64()
	if s, ok := specialFloat(f); ok {
		return s
	}
	s := strconv.FormatFloat(f, 'f', -1, a.kind.BitWidth())
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// convertExponential renders d.dddddddde±ddd. REAL uses eight fractional
// mantissa digits; LREAL uses sixteen so the text still round-trips.
func convertExponential(a *Atomic) string {
	f := a.Float64()
	if s, ok := specialFloat(f); ok {
		return s
	}

	prec := 8
	if a.kind == KindLREAL {
		prec = 16
	}

	s := strconv.FormatFloat(f, 'e', prec, a.kind.BitWidth())
	mantissa, exp, found := strings.Cut(s, "e")
	if !found {
		return s
	}
	sign := exp[:1]
	digits := exp[1:]
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return mantissa + "e" + sign + digits
}

func parseFloat(text string, bitSize int) (float64, error) {
	switch strings.TrimPrefix(text, "+") {
	case textNaN, "-" + textNaN:
		return math.NaN(), nil
	case textPosInf:
		return math.Inf(1), nil
	case textNegInf:
		return math.Inf(-1), nil
	}

	f, err := strconv.ParseFloat(text, bitSize)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, &errs.RangeError{What: "value", Value: text, Limit: floatKindName(bitSize)}
		}
		return 0, &errs.FormatError{Input: text, Expected: "floating point"}
	}
	return f, nil
}

func floatKindName(bitSize int) string {
	if bitSize == 32 {
		return KindREAL.String()
	}
	return KindLREAL.String()
}
