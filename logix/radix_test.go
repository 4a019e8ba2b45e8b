package logix

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tnunnink/LogixHelper/errs"
)

func TestBinaryEndToEnd(t *testing.T) {
	a, err := Binary.ParseAs("2#0010_0110", KindSINT)
	if err != nil {
		t.Fatalf("ParseAs failed: %v", err)
	}
	if a.Int64() != 38 {
		t.Errorf("expected 38, got %d", a.Int64())
	}

	s, err := Binary.Convert(Sint(38))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if s != "2#0010_0110" {
		t.Errorf("expected 2#0010_0110, got %s", s)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		radix Radix
		value *Atomic
		want  string
	}{
		{"bool binary", Binary, Bool(true), "2#1"},
		{"bool hex", Hex, Bool(false), "16#0"},
		{"sint binary", Binary, Sint(-1), "2#1111_1111"},
		{"int binary", Binary, Int(5), "2#0000_0000_0000_0101"},
		{"sint octal", Octal, Sint(8), "8#010"},
		{"int octal", Octal, Int(-1), "8#177_777"},
		{"dint hex", Hex, Dint(0x1234abcd), "16#1234_abcd"},
		{"sint hex", Hex, Sint(10), "16#0a"},
		{"udint hex", Hex, Udint(1), "16#0000_0001"},
		{"decimal signed", Decimal, Dint(-42), "-42"},
		{"decimal unsigned", Decimal, Ulint(math.MaxUint64), "18446744073709551615"},
		{"float whole", Float, Real(1), "1.0"},
		{"float fraction", Float, Real(1.5), "1.5"},
		{"float negative", Float, Lreal(-0.25), "-0.25"},
		{"float nan", Float, Real(float32(math.NaN())), "1.#QNAN"},
		{"float inf", Float, Lreal(math.Inf(1)), "1.#INF"},
		{"float neg inf", Float, Lreal(math.Inf(-1)), "-1.#INF"},
		{"exponential real", Exponential, Real(1234.5), "1.23450000e+003"},
		{"exponential small", Exponential, Real(0.001), "1.00000000e-003"},
		{"exponential zero", Exponential, Real(0), "0.00000000e+000"},
		{"ascii dint", Ascii, Dint(0x41424344), "$41$42$43$44"},
		{"ascii sint", Ascii, Sint(0x0a), "$0A"},
		{"ascii int", Ascii, Int(0x2041), "$20$41"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.radix.Convert(tt.value)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConvertUnsupportedKind(t *testing.T) {
	tests := []struct {
		name  string
		radix Radix
		value *Atomic
	}{
		{"float of dint", Float, Dint(1)},
		{"hex of real", Hex, Real(1)},
		{"ascii of bool", Ascii, Bool(true)},
		{"datetime of dint", DateTime, Dint(1)},
		{"null of dint", Null, Dint(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.radix.Convert(tt.value)
			if !errors.Is(err, errs.ErrUnsupportedKind) {
				t.Errorf("expected ErrUnsupportedKind, got %v", err)
			}
		})
	}
}

// boundaryValues returns zero, one, min and max of each kind.
func boundaryValues(k Kind) []*Atomic {
	switch k {
	case KindBOOL:
		return []*Atomic{Bool(false), Bool(true)}
	case KindSINT:
		return []*Atomic{Sint(0), Sint(1), Sint(math.MinInt8), Sint(math.MaxInt8)}
	case KindINT:
		return []*Atomic{Int(0), Int(1), Int(math.MinInt16), Int(math.MaxInt16)}
	case KindDINT:
		return []*Atomic{Dint(0), Dint(1), Dint(math.MinInt32), Dint(math.MaxInt32)}
	case KindLINT:
		return []*Atomic{Lint(0), Lint(1), Lint(math.MinInt64), Lint(math.MaxInt64)}
	case KindUSINT:
		return []*Atomic{Usint(0), Usint(1), Usint(math.MaxUint8)}
	case KindUINT:
		return []*Atomic{Uint(0), Uint(1), Uint(math.MaxUint16)}
	case KindUDINT:
		return []*Atomic{Udint(0), Udint(1), Udint(math.MaxUint32)}
	case KindULINT:
		return []*Atomic{Ulint(0), Ulint(1), Ulint(math.MaxUint64)}
	case KindREAL:
		return []*Atomic{
			Real(0), Real(1), Real(-1.25), Real(0.1),
			Real(math.MaxFloat32), Real(-math.MaxFloat32), Real(math.SmallestNonzeroFloat32),
		}
	case KindLREAL:
		return []*Atomic{
			Lreal(0), Lreal(1), Lreal(-1.25), Lreal(0.1),
			Lreal(math.MaxFloat64), Lreal(-math.MaxFloat64), Lreal(math.SmallestNonzeroFloat64),
		}
	}
	return nil
}

func TestRoundTrip(t *testing.T) {
	for _, r := range Radixes {
		if r == DateTime || r == DateTimeNs {
			continue // covered by TestDateTimeRoundTrip
		}
		for _, k := range r.Kinds() {
			for _, v := range boundaryValues(k) {
				text, err := r.Convert(v)
				if err != nil {
					t.Errorf("%s %s %v: Convert failed: %v", r, k, v.Value(), err)
					continue
				}
				back, err := r.ParseAs(text, k)
				if err != nil {
					t.Errorf("%s %s %q: ParseAs failed: %v", r, k, text, err)
					continue
				}
				if !back.Equal(v) {
					t.Errorf("%s %s: %v -> %q -> %v", r, k, v.Value(), text, back.Value())
				}
			}
		}
	}
}

func TestDateTimeRoundTrip(t *testing.T) {
	saved := Location
	Location = time.UTC
	defer func() { Location = saved }()

	tests := []struct {
		name  string
		radix Radix
		value int64
		want  string
	}{
		{"epoch", DateTime, 0, "DT#1970-01-01-00:00:00.000000(UTC+00:00)"},
		{"micros", DateTime, 1_700_000_000_123_456, "DT#2023-11-14-22:13:20.123456(UTC+00:00)"},
		{"before epoch", DateTime, -1, "DT#1969-12-31-23:59:59.999999(UTC+00:00)"},
		{"ns epoch", DateTimeNs, 0, "LDT#1970-01-01-00:00:00.0000000(UTC+00:00)"},
		{"ns ticks", DateTimeNs, 17_000_000_001_234_567, "LDT#2023-11-14-22:13:20.1234567(UTC+00:00)"},
		{"ns before epoch", DateTimeNs, -1, "LDT#1969-12-31-23:59:59.9999999(UTC+00:00)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.radix.Convert(Lint(tt.value))
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}

			back, err := tt.radix.Parse(got)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if back.Kind() != KindLINT || back.Int64() != tt.value {
				t.Errorf("expected LINT %d, got %s %d", tt.value, back.Kind(), back.Int64())
			}
		})
	}
}

func TestDateTimeParseHonoursOffset(t *testing.T) {
	a, err := DateTime.Parse("DT#1970-01-01-01:00:00.000000(UTC+01:00)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if a.Int64() != 0 {
		t.Errorf("expected 0, got %d", a.Int64())
	}
}

func TestDateTimeOutOfRange(t *testing.T) {
	_, err := DateTime.Convert(Lint(math.MaxInt64))
	if !errors.Is(err, errs.ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
}

func TestParseNaturalKind(t *testing.T) {
	tests := []struct {
		name  string
		radix Radix
		text  string
		kind  Kind
		value int64
	}{
		{"binary bool", Binary, "2#1", KindBOOL, 1},
		{"binary sint", Binary, "2#0010_0110", KindSINT, 38},
		{"binary int", Binary, "2#1_0000_0000", KindINT, 256},
		{"octal sint", Octal, "8#017", KindSINT, 15},
		{"octal int", Octal, "8#777", KindINT, 511},
		{"hex sint", Hex, "16#7f", KindSINT, 127},
		{"hex upper", Hex, "16#7F", KindSINT, 127},
		{"hex dint", Hex, "16#0001_0000", KindDINT, 65536},
		{"decimal sint", Decimal, "100", KindSINT, 100},
		{"decimal int", Decimal, "-1000", KindINT, -1000},
		{"decimal dint", Decimal, "100000", KindDINT, 100000},
		{"decimal lint", Decimal, "10000000000", KindLINT, 10000000000},
		{"ascii sint", Ascii, "$41", KindSINT, 0x41},
		{"ascii dint", Ascii, "$00$00$00$41", KindDINT, 0x41},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.radix.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if a.Kind() != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, a.Kind())
			}
			if a.Int64() != tt.value {
				t.Errorf("expected %d, got %d", tt.value, a.Int64())
			}
			if a.Radix() != tt.radix {
				t.Errorf("expected radix %s, got %s", tt.radix, a.Radix())
			}
		})
	}
}

func TestParseFloatKind(t *testing.T) {
	tests := []struct {
		radix Radix
		text  string
		kind  Kind
		value float64
	}{
		{Float, "1.5", KindREAL, 1.5},
		{Float, "-0.25", KindREAL, -0.25},
		{Float, "0.30000000000000004", KindLREAL, 0.30000000000000004},
		{Float, "0.1", KindLREAL, 0.1},
		{Float, "1" + zeros(40) + ".0", KindLREAL, 1e40},
		{Exponential, "1.5e+002", KindREAL, 150},
		{Exponential, "1.2345678901234e+002", KindLREAL, 123.45678901234},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			a, err := tt.radix.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if a.Kind() != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, a.Kind())
			}
			if a.Float64() != tt.value {
				t.Errorf("expected %v, got %v", tt.value, a.Float64())
			}
		})
	}
}

func TestParseDecimalULINT(t *testing.T) {
	a, err := Decimal.Parse("18446744073709551615")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if a.Kind() != KindULINT || a.Uint64() != math.MaxUint64 {
		t.Errorf("expected ULINT max, got %s %d", a.Kind(), a.Uint64())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		radix Radix
		text  string
		kind  Kind
		want  error
	}{
		{"binary digits", Binary, "2#102", KindSINT, errs.ErrFormat},
		{"missing specifier", Hex, "ff", KindSINT, errs.ErrFormat},
		{"trailing separator", Binary, "2#0101_", KindSINT, errs.ErrFormat},
		{"decimal text", Decimal, "12a", KindDINT, errs.ErrFormat},
		{"hex too wide", Hex, "16#1_0000", KindINT, errs.ErrRange},
		{"decimal overflow", Decimal, "128", KindSINT, errs.ErrRange},
		{"bool decimal", Decimal, "2", KindBOOL, errs.ErrRange},
		{"float overflow", Float, "1" + zeros(40) + ".0", KindREAL, errs.ErrRange},
		{"float for dint", Float, "1.5", KindDINT, errs.ErrUnsupportedKind},
		{"ascii for bool", Ascii, "$01", KindBOOL, errs.ErrUnsupportedKind},
		{"datetime text", DateTime, "DT#2020-13-45-00:00:00.000000(UTC+00:00)", KindLINT, errs.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.radix.ParseAs(tt.text, tt.kind)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func TestInfer(t *testing.T) {
	tests := []struct {
		text string
		want Radix
	}{
		{"2#0101", Binary},
		{"8#17", Octal},
		{"42", Decimal},
		{"-42", Decimal},
		{"16#beef", Hex},
		{"1.5", Float},
		{"-1.#INF", Float},
		{"1.5e+003", Exponential},
		{"$41$42", Ascii},
		{"DT#1970-01-01-00:00:00.000000(UTC+00:00)", DateTime},
		{"LDT#1970-01-01-00:00:00.0000000(UTC+00:00)", DateTimeNs},
		{"", Null},
		{"hello", Null},
		{"16#", Null},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Infer(tt.text); got != tt.want {
				t.Errorf("Infer(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestFormatsIsolated(t *testing.T) {
	f := NewFormats(Null, Hex, Decimal)
	if diff := cmp.Diff([]Radix{Hex, Decimal}, f.Radixes()); diff != "" {
		t.Errorf("Radixes mismatch (-want +got):\n%s", diff)
	}
	if got := f.Infer("2#01"); got != Null {
		t.Errorf("expected Null for unregistered binary, got %s", got)
	}
	if _, err := f.Parse("2#01"); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}

	a, err := f.Parse("16#ff")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if a.Kind() != KindSINT || a.Int64() != -1 {
		t.Errorf("expected SINT -1, got %s %d", a.Kind(), a.Int64())
	}
}

func TestParseRadix(t *testing.T) {
	tests := []struct {
		name string
		want Radix
	}{
		{"Binary", Binary},
		{"hex", Hex},
		{"ASCII", Ascii},
		{"Ascii", Ascii},
		{"Date/Time", DateTime},
		{"Date/Time (ns)", DateTimeNs},
		{"DateTimeNs", DateTimeNs},
		{"NullType", Null},
		{"", Null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRadix(tt.name)
			if err != nil {
				t.Fatalf("ParseRadix failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := ParseRadix("Roman"); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestRadixTextMarshal(t *testing.T) {
	var r Radix
	if err := r.UnmarshalText([]byte("Date/Time")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if r != DateTime {
		t.Errorf("expected DateTime, got %s", r)
	}
	b, _ := Hex.MarshalText()
	if string(b) != "Hex" {
		t.Errorf("expected Hex, got %s", b)
	}
}

func TestGroup(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"1", 4, "1"},
		{"1234", 4, "1234"},
		{"12345", 4, "1_2345"},
		{"123456", 3, "123_456"},
		{"1234567", 3, "1_234_567"},
	}
	for _, tt := range tests {
		if got := group(tt.in, tt.n, "_"); got != tt.want {
			t.Errorf("group(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
