package datatype

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/tagname"
)

func names(types []DataType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name()
	}
	return out
}

func memberNames(members []*Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func tagNames(t DataType) []string {
	var out []string
	for _, n := range TagNames(t) {
		out = append(out, n.String())
	}
	return out
}

func TestArrayDimensions(t *testing.T) {
	arr, err := NewArray(NewAtomic(logix.KindDINT), Dimensions{3, 4})
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}

	if arr.Name() != "DINT[3,4]" {
		t.Errorf("expected name DINT[3,4], got %s", arr.Name())
	}
	if arr.Len() != 12 {
		t.Errorf("expected 12 elements, got %d", arr.Len())
	}

	members := arr.Members()
	if members[0].Name != "[0,0]" || members[1].Name != "[0,1]" || members[4].Name != "[1,0]" || members[11].Name != "[2,3]" {
		t.Errorf("elements not in row-major order: %v", memberNames(members))
	}

	m, err := arr.At(2, 3)
	if err != nil {
		t.Fatalf("At(2, 3) failed: %v", err)
	}
	if m.Name != "[2,3]" {
		t.Errorf("expected [2,3], got %s", m.Name)
	}

	if _, err := arr.At(3, 0); !errors.Is(err, errs.ErrRange) {
		t.Errorf("At(3, 0) expected ErrRange, got %v", err)
	}

	_, err = arr.At(1)
	var dimErr *errs.DimensionalityError
	if !errors.As(err, &dimErr) {
		t.Fatalf("At(1) expected DimensionalityError, got %v", err)
	}
	if dimErr.Want != 2 || dimErr.Got != 1 {
		t.Errorf("expected want 2 got 1, got %+v", dimErr)
	}
}

func TestArrayRejects(t *testing.T) {
	tests := []struct {
		name string
		seed DataType
		dims Dimensions
		want error
	}{
		{"no extents", NewAtomic(logix.KindINT), nil, errs.ErrDimensionality},
		{"four extents", NewAtomic(logix.KindINT), Dimensions{1, 2, 3, 4}, errs.ErrDimensionality},
		{"zero extent", NewAtomic(logix.KindINT), Dimensions{0}, errs.ErrRange},
		{"no seed", nil, Dimensions{2}, errs.ErrName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewArray(tt.seed, tt.dims); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestArrayElementsAreIndependent(t *testing.T) {
	arr, err := NewArray(Timer(), Dimensions{2})
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}

	pre, err := MembersTo(arr, "[0].PRE")
	if err != nil {
		t.Fatalf("MembersTo failed: %v", err)
	}
	if err := pre[1].Type.(*Atomic).Set(logix.Dint(5000)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	other, _ := MembersTo(arr, "[1].PRE")
	if got := other[1].Type.(*Atomic).Int64(); got != 0 {
		t.Errorf("element [1] changed with [0]: %d", got)
	}
}

func TestArrayRadixOption(t *testing.T) {
	arr, err := NewArray(NewAtomic(logix.KindDINT), Dimensions{2}, WithRadix(logix.Hex))
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}
	for _, m := range arr.Members() {
		if m.Radix != logix.Hex || m.Type.(*Atomic).Radix() != logix.Hex {
			t.Errorf("%s expected Hex radix, got member %s value %s", m.Name, m.Radix, m.Type.(*Atomic).Radix())
		}
	}

	if _, err := NewArray(NewAtomic(logix.KindREAL), Dimensions{2}, WithRadix(logix.Hex)); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind for a hex REAL array, got %v", err)
	}
}

func TestString(t *testing.T) {
	s, err := NewString("MyString", 10, "short string")
	if err != nil {
		t.Fatalf("NewString failed: %v", err)
	}

	if s.Class() != ClassUser || s.Family() != FamilyString {
		t.Errorf("unexpected class/family %s/%s", s.Class(), s.Family())
	}
	if diff := cmp.Diff([]string{StringLen, StringData}, memberNames(s.Members())); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetValue("hello"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if s.Value() != "hello" || s.Len() != 5 {
		t.Errorf("expected hello/5, got %q/%d", s.Value(), s.Len())
	}

	data := s.Members()[1]
	if data.Radix != logix.Ascii {
		t.Errorf("expected DATA radix Ascii, got %s", data.Radix)
	}
	first, _ := data.Type.(*Array).At(0)
	if text, _ := first.Type.(*Atomic).ToText(logix.Null); text != "$68" {
		t.Errorf("expected $68, got %s", text)
	}

	if err := s.SetValue("this is too long"); !errors.Is(err, errs.ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
	if s.Value() != "hello" {
		t.Errorf("failed SetValue changed the string to %q", s.Value())
	}

	if err := s.SetValue("hi"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if s.Value() != "hi" {
		t.Errorf("expected hi, got %q", s.Value())
	}
	third, _ := data.Type.(*Array).At(2)
	if third.Type.(*Atomic).Int64() != 0 {
		t.Error("expected unused DATA to be zeroed")
	}
}

func TestPredefinedString(t *testing.T) {
	s := PredefinedString()
	if s.Capacity() != StringCapacity || s.Class() != ClassPredefined {
		t.Errorf("expected capacity 82 ProductDefined, got %d %s", s.Capacity(), s.Class())
	}
	if s.Members()[1].Type.Name() != "SINT[82]" {
		t.Errorf("expected SINT[82] data, got %s", s.Members()[1].Type.Name())
	}
}

func TestTagNames(t *testing.T) {
	if diff := cmp.Diff([]string{"PRE", "ACC", "EN", "TT", "DN"}, tagNames(Timer())); diff != "" {
		t.Errorf("TIMER tag names mismatch (-want +got):\n%s", diff)
	}

	s, err := NewBuilder("Recipe").
		Member("Step", NewAtomic(logix.KindINT)).
		Array("Temps", NewAtomic(logix.KindREAL), Dimensions{2}).
		Member("Delay", Timer()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{
		"Step",
		"Temps", "Temps[0]", "Temps[1]",
		"Delay", "Delay.PRE", "Delay.ACC", "Delay.EN", "Delay.TT", "Delay.DN",
	}
	if diff := cmp.Diff(want, tagNames(s)); diff != "" {
		t.Errorf("tag names mismatch (-want +got):\n%s", diff)
	}

	if tagNames(NewAtomic(logix.KindDINT)) != nil {
		t.Error("expected no tag names for an atomic")
	}
}

func TestMembersTo(t *testing.T) {
	s, err := NewBuilder("Line").
		Array("Timers", Timer(), Dimensions{3}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	chain, err := MembersTo(s, "timers[2].dn")
	if err != nil {
		t.Fatalf("MembersTo failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Timers", "[2]", "DN"}, memberNames(chain)); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}

	_, err = MembersTo(s, "Timers[2].Missing")
	var lookupErr *errs.LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected LookupError, got %v", err)
	}
	want := errs.LookupError{Path: "Timers[2].Missing", Segment: "Missing", Type: NameTimer}
	if *lookupErr != want {
		t.Errorf("expected %+v, got %+v", want, *lookupErr)
	}

	if _, err := MembersTo(s, "Timers[3]"); !errors.Is(err, errs.ErrLookup) {
		t.Errorf("expected ErrLookup past the end of the array, got %v", err)
	}
	if _, err := MembersTo(s, tagname.Empty); !errors.Is(err, errs.ErrLookup) {
		t.Errorf("expected ErrLookup for an empty path, got %v", err)
	}

	if !ContainsMember(s, "Timers[0].PRE") || ContainsMember(s, "Timers[0].Nope") {
		t.Error("ContainsMember mismatch")
	}
}

func TestGetMember(t *testing.T) {
	if m := GetMember(Timer(), "acc"); m == nil || m.Name != "ACC" {
		t.Errorf("expected ACC, got %v", m)
	}
	if m := GetMember(NewAtomic(logix.KindDINT), "PRE"); m != nil {
		t.Errorf("expected nil from an atomic, got %v", m)
	}
	if m := GetMember(PredefinedString(), "DATA"); m == nil || !m.IsArrayMember() {
		t.Errorf("expected DATA array member, got %v", m)
	}
}

func TestDependentTypes(t *testing.T) {
	t2, err := NewBuilder("T2").
		Member("Tmr", Timer()).
		Array("Values", NewAtomic(logix.KindDINT), Dimensions{5}).
		Build()
	if err != nil {
		t.Fatalf("Build T2 failed: %v", err)
	}

	t1, err := NewBuilder("T1").
		Member("Sub", t2.Instantiate()).
		Array("More", t2, Dimensions{2}).
		Member("Label", PredefinedString()).
		Build()
	if err != nil {
		t.Fatalf("Build T1 failed: %v", err)
	}

	want := []string{"T2", NameTimer, "DINT", "BOOL", NameString, "SINT"}
	if diff := cmp.Diff(want, names(DependentTypes(t1))); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}

	arr, _ := NewArray(t2, Dimensions{4})
	want = []string{"T2", NameTimer, "DINT", "BOOL"}
	if diff := cmp.Diff(want, names(DependentTypes(arr))); diff != "" {
		t.Errorf("array dependencies mismatch (-want +got):\n%s", diff)
	}

	if deps := DependentTypes(NewAtomic(logix.KindDINT)); len(deps) != 0 {
		t.Errorf("expected no dependencies for an atomic, got %v", names(deps))
	}
}

func TestEqual(t *testing.T) {
	build := func(name, member string) *Structure {
		s, err := NewBuilder(name).
			Member(member, NewAtomic(logix.KindDINT)).
			Array("Data", NewAtomic(logix.KindINT), Dimensions{4}).
			Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return s
	}

	dint := func(v int32) DataType { return AtomicOf(logix.Dint(v)) }

	tests := []struct {
		name string
		a, b DataType
		want bool
	}{
		{"same shape", build("Udt", "Count"), build("UDT", "count"), true},
		{"instance", build("Udt", "Count"), build("Udt", "Count").Instantiate(), true},
		{"different name", build("Udt", "Count"), build("Other", "Count"), false},
		{"different member", build("Udt", "Count"), build("Udt", "Total"), false},
		{"atomic value", dint(1), dint(1), true},
		{"atomic differs", dint(1), dint(2), false},
		{"atomic kind", dint(1), AtomicOf(logix.Int(1)), false},
		{"variant", PredefinedString(), Timer(), false},
		{"undefined", NewUndefined("Missing"), NewUndefined("MISSING"), true},
		{"nil", nil, nil, true},
		{"one nil", Timer(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	a, _ := NewArray(NewAtomic(logix.KindDINT), Dimensions{2, 3})
	b, _ := NewArray(NewAtomic(logix.KindDINT), Dimensions{3, 2})
	if Equal(a, b) {
		t.Error("arrays with different extents compared equal")
	}
}

func TestInstantiate(t *testing.T) {
	tmr := Timer()
	pre := tmr.Member("PRE").Type.(*Atomic)
	if err := pre.Set(logix.Dint(1000)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	fresh := tmr.Instantiate().(*Structure)
	if got := fresh.Member("PRE").Type.(*Atomic).Int64(); got != 0 {
		t.Errorf("expected zero PRE on instance, got %d", got)
	}
	if fresh.Member("PRE").Type == tmr.Member("PRE").Type {
		t.Error("instance shares a leaf with its template")
	}
	if !Equal(NewAtomic(logix.KindDINT), fresh.Member("ACC").Type) {
		t.Error("expected zero DINT ACC")
	}
}

func TestStructureAdd(t *testing.T) {
	s, err := NewStructure("Motor", "a motor", MustMember("Speed", NewAtomic(logix.KindREAL)))
	if err != nil {
		t.Fatalf("NewStructure failed: %v", err)
	}

	if err := s.Add(MustMember("speed", NewAtomic(logix.KindDINT))); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for duplicate member, got %v", err)
	}
	if err := s.Add(MustMember("Self", s)); !errors.Is(err, errs.ErrCycle) {
		t.Errorf("expected ErrCycle for a self reference, got %v", err)
	}

	holder, err := NewStructure("Holder", "", MustMember("Motor", s.Instantiate()))
	if err != nil {
		t.Fatalf("NewStructure failed: %v", err)
	}
	arr, _ := NewArray(holder, Dimensions{2})
	if err := s.Add(MustMember("Holders", arr)); !errors.Is(err, errs.ErrCycle) {
		t.Errorf("expected ErrCycle through an array, got %v", err)
	}

	if !s.Remove("SPEED") || s.Remove("Speed") {
		t.Error("Remove mismatch")
	}
	if len(s.Members()) != 0 {
		t.Errorf("expected no members, got %v", memberNames(s.Members()))
	}
}

func TestBuilderStopsAtFirstError(t *testing.T) {
	_, err := NewBuilder("Bad").
		Member("Ok", NewAtomic(logix.KindBOOL)).
		Member("2bad", NewAtomic(logix.KindBOOL)).
		Member("Ok", NewAtomic(logix.KindBOOL)).
		Build()

	var nameErr *errs.NameError
	if !errors.As(err, &nameErr) || nameErr.Name != "2bad" {
		t.Errorf("expected NameError for 2bad, got %v", err)
	}

	if _, err := NewBuilder("bad__name").Build(); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName, got %v", err)
	}
}

func TestNewMember(t *testing.T) {
	m, err := NewMember("Flags", NewAtomic(logix.KindDINT), WithRadix(logix.Binary), WithAccess(ReadOnly), WithDescription("bits"))
	if err != nil {
		t.Fatalf("NewMember failed: %v", err)
	}
	if m.Radix != logix.Binary || m.Type.(*Atomic).Radix() != logix.Binary {
		t.Errorf("expected Binary radix, got %s", m.Radix)
	}
	if m.Access != ReadOnly || m.Description != "bits" {
		t.Errorf("options not applied: %+v", m)
	}
	if !m.IsValueMember() || m.IsArrayMember() || m.IsStructureMember() {
		t.Error("unexpected discriminants")
	}

	if m := MustMember("Count", NewAtomic(logix.KindDINT)); m.Radix != logix.Decimal {
		t.Errorf("expected Decimal default radix, got %s", m.Radix)
	}
	if m := MustMember("Level", NewAtomic(logix.KindREAL)); m.Radix != logix.Float {
		t.Errorf("expected Float default radix, got %s", m.Radix)
	}

	if _, err := NewMember("Level", NewAtomic(logix.KindREAL), WithRadix(logix.Hex)); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
	if _, err := NewMember("Tmr", Timer(), WithRadix(logix.Decimal)); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind for a radix on a structure, got %v", err)
	}
	if _, err := NewMember("Tmr", nil); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for a missing type, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"A", "_", "_Tag", "Motor_1", "abcdefghijabcdefghijabcdefghijabcdefghij"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "1Tag", "My Tag", "My__Tag", "Tag_", "Tag.Member", "abcdefghijabcdefghijabcdefghijabcdefghijk"}
	for _, name := range invalid {
		if err := ValidateName(name); !errors.Is(err, errs.ErrName) {
			t.Errorf("ValidateName(%q) expected ErrName, got %v", name, err)
		}
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		in       string
		want     Dimensions
		brackets string
	}{
		{"3 4", Dimensions{3, 4}, "[3,4]"},
		{"[2,3,4]", Dimensions{2, 3, 4}, "[2,3,4]"},
		{"10", Dimensions{10}, "[10]"},
		{"", nil, ""},
		{"0", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDimensions(tt.in)
			if err != nil {
				t.Fatalf("ParseDimensions failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if got.Brackets() != tt.brackets {
				t.Errorf("expected %s, got %s", tt.brackets, got.Brackets())
			}
		})
	}

	if _, err := ParseDimensions("1 2 3 4"); !errors.Is(err, errs.ErrDimensionality) {
		t.Errorf("expected ErrDimensionality, got %v", err)
	}
	if _, err := ParseDimensions("x"); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestAccess(t *testing.T) {
	if MostRestrictive(ReadWrite, ReadOnly) != ReadOnly || MostRestrictive(NoAccess, ReadOnly) != NoAccess {
		t.Error("MostRestrictive mismatch")
	}
	for _, a := range []Access{ReadWrite, ReadOnly, NoAccess} {
		got, err := ParseAccess(a.String())
		if err != nil || got != a {
			t.Errorf("ParseAccess(%q) = %v, %v", a.String(), got, err)
		}
	}
}
