package datatype

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
)

func TestStandardRegistry(t *testing.T) {
	r := StandardRegistry()

	want := []string{NameControl, NameCounter, NameString, NameTimer}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"timer", "Counter", "CONTROL", "string", "DINT"} {
		if !r.Contains(name) {
			t.Errorf("expected registry to contain %s", name)
		}
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	udt, _ := NewStructure("Motor", "")
	if err := r.Register(udt); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	dup, _ := NewStructure("MOTOR", "")
	if err := r.Register(dup); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for duplicate, got %v", err)
	}

	atomicName := &Structure{name: "DINT", class: ClassUser}
	if err := r.Register(atomicName); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for atomic name, got %v", err)
	}

	if err := r.Register(NewAtomic(logix.KindDINT)); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for an atomic, got %v", err)
	}
	if err := r.Register(NewUndefined("Thing")); !errors.Is(err, errs.ErrName) {
		t.Errorf("expected ErrName for an undefined type, got %v", err)
	}

	got, ok := r.Lookup("motor")
	if !ok || got != DataType(udt) {
		t.Errorf("Lookup returned %v, %v", got, ok)
	}

	if !r.Unregister("Motor") || r.Unregister("Motor") {
		t.Error("Unregister mismatch")
	}
	if len(r.Types()) != 0 {
		t.Errorf("expected empty registry, got %v", names(r.Types()))
	}
}

func TestRegistryNew(t *testing.T) {
	r := StandardRegistry()

	tests := []struct {
		name    string
		variant string
		want    string
	}{
		{"dint", "*datatype.Atomic", "DINT"},
		{"timer", "*datatype.Structure", NameTimer},
		{"String", "*datatype.String", NameString},
		{"Missing", "*datatype.Undefined", "Missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.New(tt.name)
			if got.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Name())
			}
			var variant string
			switch got.(type) {
			case *Atomic:
				variant = "*datatype.Atomic"
			case *Structure:
				variant = "*datatype.Structure"
			case *String:
				variant = "*datatype.String"
			case *Undefined:
				variant = "*datatype.Undefined"
			}
			if variant != tt.variant {
				t.Errorf("expected %s, got %s", tt.variant, variant)
			}
		})
	}

	template, _ := r.Lookup(NameTimer)
	instance := r.New(NameTimer)
	if instance == template {
		t.Error("New returned the shared template")
	}

	arr, err := r.NewArray("counter", Dimensions{4})
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}
	if arr.Name() != "COUNTER[4]" {
		t.Errorf("expected COUNTER[4], got %s", arr.Name())
	}
}

const definitionsYAML = `
types:
  - name: Line
    description: production line
    members:
      - name: Station
        type: Station
        dimension: "2"
      - name: Label
        type: Label
  - name: Station
    members:
      - name: Count
        type: DINT
      - name: Status
        type: DINT
        radix: Hex
        access: Read Only
        description: status word
      - name: Delay
        type: TIMER
  - name: Label
    family: StringFamily
    length: 20
`

func TestDefine(t *testing.T) {
	defs, err := ReadDefinitions(strings.NewReader(definitionsYAML))
	if err != nil {
		t.Fatalf("ReadDefinitions failed: %v", err)
	}

	r := StandardRegistry()
	if err := r.Define(defs); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	line, ok := r.Lookup("Line")
	if !ok {
		t.Fatal("Line not registered")
	}
	if line.Description() != "production line" {
		t.Errorf("unexpected description %q", line.Description())
	}

	want := []string{"Station", "DINT", NameTimer, "BOOL", "Label", "SINT"}
	if diff := cmp.Diff(want, names(DependentTypes(line))); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}

	label, _ := r.Lookup("label")
	if s, ok := label.(*String); !ok || s.Capacity() != 20 {
		t.Errorf("expected a 20 character string, got %v", label)
	}

	chain, err := MembersTo(line, "Station[1].Status")
	if err != nil {
		t.Fatalf("MembersTo failed: %v", err)
	}
	status := chain[len(chain)-1]
	if status.Radix != logix.Hex || status.Access != ReadOnly || status.Description != "status word" {
		t.Errorf("member options not applied: %+v", status)
	}
}

func TestDefineFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown type",
			yaml: `
types:
  - name: A
    members:
      - name: B
        type: Nowhere
`,
			want: errs.ErrLookup,
		},
		{
			name: "cycle",
			yaml: `
types:
  - name: A
    members:
      - name: B
        type: B
  - name: B
    members:
      - name: A
        type: A
`,
			want: errs.ErrCycle,
		},
		{
			name: "duplicate",
			yaml: `
types:
  - name: A
  - name: a
`,
			want: errs.ErrName,
		},
		{
			name: "predefined collision",
			yaml: `
types:
  - name: Timer
`,
			want: errs.ErrName,
		},
		{
			name: "bad radix",
			yaml: `
types:
  - name: Ok
    members:
      - name: X
        type: DINT
  - name: A
    members:
      - name: X
        type: REAL
        radix: Hex
`,
			want: errs.ErrUnsupportedKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := ReadDefinitions(strings.NewReader(tt.yaml))
			if err != nil {
				t.Fatalf("ReadDefinitions failed: %v", err)
			}

			r := StandardRegistry()
			before := r.Names()
			if err := r.Define(defs); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if diff := cmp.Diff(before, r.Names()); diff != "" {
				t.Errorf("failed Define changed the registry (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	defs, err := ReadDefinitions(strings.NewReader(definitionsYAML))
	if err != nil {
		t.Fatalf("ReadDefinitions failed: %v", err)
	}

	r := StandardRegistry()
	if err := r.Define(defs); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	var out []Definition
	for _, d := range defs {
		typ, _ := r.Lookup(d.Name)
		def, err := DefinitionOf(typ)
		if err != nil {
			t.Fatalf("DefinitionOf(%s) failed: %v", d.Name, err)
		}
		out = append(out, def)
	}
	if diff := cmp.Diff(defs, out); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")

	var buf bytes.Buffer
	if err := WriteDefinitions(&buf, out); err != nil {
		t.Fatalf("WriteDefinitions failed: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	loaded, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions failed: %v", err)
	}
	if diff := cmp.Diff(defs, loaded); diff != "" {
		t.Errorf("reloaded definitions mismatch (-want +got):\n%s", diff)
	}

	if _, err := DefinitionOf(NewAtomic(logix.KindDINT)); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind for an atomic, got %v", err)
	}
}

func TestReadDefinitionsEmpty(t *testing.T) {
	defs, err := ReadDefinitions(strings.NewReader(""))
	if err != nil || len(defs) != 0 {
		t.Errorf("expected no definitions, got %v, %v", defs, err)
	}
}
