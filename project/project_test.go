package project

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tagname"
)

const typesYAML = `
types:
  - name: Motor
    description: conveyor motor
    members:
      - name: Speed
        type: REAL
        description: speed
      - name: Status
        type: DINT
        radix: Hex
        access: Read Only
      - name: Delay
        type: TIMER
`

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "types.yaml"), []byte(typesYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Definitions = []string{"types.yaml"}
	cfg.Types = []datatype.Definition{
		{Name: "Line", Members: []datatype.MemberDefinition{
			{Name: "Motors", Type: "Motor", Dimension: "2"},
		}},
	}
	cfg.Tags = []config.TagConfig{
		{
			Name:        "Pump1",
			Type:        "Motor",
			Description: "north pump",
			Values:      map[string]string{"Speed": "1750.5", "Delay.PRE": "5000"},
			Comments:    map[string]string{"Pump1.Delay": "start delay"},
		},
		{Name: "Line1", Type: "Line"},
		{Name: "Counts", Type: "DINT", Dimensions: "4", Radix: "Hex"},
	}
	return cfg, filepath.Join(dir, "config.yaml")
}

func TestLoad(t *testing.T) {
	cfg, path := testConfig(t)

	p, err := Load(cfg, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var names []string
	for _, tg := range p.Tags() {
		names = append(names, tg.Name().String())
	}
	if diff := cmp.Diff([]string{"Pump1", "Line1", "Counts"}, names); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	if !p.Registry().Contains("line") || !p.Registry().Contains("Motor") {
		t.Error("expected Motor and Line to be registered")
	}

	info, err := p.View(tagname.New("Pump1.Speed"))
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if info.Value != float32(1750.5) {
		t.Errorf("expected initial speed 1750.5, got %v", info.Value)
	}
	if info.Description != "north pump conveyor motor" {
		t.Errorf("unexpected description %q", info.Description)
	}

	delay, err := p.View(tagname.New("pump1.delay"))
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if delay.Description != "start delay" {
		t.Errorf("expected comment, got %q", delay.Description)
	}
	if diff := cmp.Diff([]string{"PRE", "ACC", "EN", "TT", "DN"}, delay.Members); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	counts, _ := p.View(tagname.New("Counts"))
	if counts.Dimensions != "4" || counts.Radix != "Hex" {
		t.Errorf("unexpected array view %+v", counts)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   error
	}{
		{"unknown type", func(c *config.Config) {
			c.Types = append(c.Types, datatype.Definition{Name: "Bad", Members: []datatype.MemberDefinition{{Name: "X", Type: "Nope"}}})
		}, errs.ErrLookup},
		{"bad value", func(c *config.Config) {
			c.Tags[0].Values["Speed"] = "fast"
		}, errs.ErrFormat},
		{"bad value path", func(c *config.Config) {
			c.Tags[0].Values["Missing"] = "1"
		}, errs.ErrLookup},
		{"bad dimensions", func(c *config.Config) {
			c.Tags[2].Dimensions = "4 0"
		}, errs.ErrRange},
		{"duplicate tag", func(c *config.Config) {
			c.Tags = append(c.Tags, config.TagConfig{Name: "PUMP1", Type: "DINT"})
		}, errs.ErrName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, path := testConfig(t)
			tt.modify(cfg)
			if _, err := Load(cfg, path); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingDefinitions(t *testing.T) {
	cfg, path := testConfig(t)
	cfg.Definitions = []string{"missing.yaml"}
	if _, err := Load(cfg, path); err == nil {
		t.Error("expected an error for a missing definitions file")
	}
}

func TestResolve(t *testing.T) {
	cfg, path := testConfig(t)
	p, err := Load(cfg, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	m, err := p.Resolve(tagname.New("Line1.Motors[1].Delay.DN"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.TagName().String() != "Line1.Motors[1].Delay.DN" {
		t.Errorf("unexpected tag name %s", m.TagName())
	}

	var lookup *errs.LookupError
	if _, err := p.Resolve(tagname.New("Nobody.Speed")); !errors.As(err, &lookup) || lookup.Segment != "Nobody" {
		t.Errorf("expected lookup error on Nobody, got %v", err)
	}
	if _, err := p.Resolve(tagname.New("Line1.Motors[5]")); err == nil {
		t.Error("expected an error for an out of range element")
	}
}

func TestSetValue(t *testing.T) {
	cfg, path := testConfig(t)
	p, err := Load(cfg, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	info, err := p.SetValue(tagname.New("Counts[2]"), "255")
	if err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if info.Value != int32(255) || info.Text != "16#0000_00ff" {
		t.Errorf("unexpected result %+v", info)
	}

	if _, err := p.SetValue(tagname.New("Counts[2]"), "nope"); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
	if _, err := p.SetValue(tagname.New("Pump1.Delay"), "1"); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestChangeListeners(t *testing.T) {
	cfg, path := testConfig(t)
	p, err := Load(cfg, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var mu sync.Mutex
	var got []ChangeInfo
	id := p.AddOnChangeListener(func(c tag.Change) {
		mu.Lock()
		got = append(got, DescribeChange(c))
		mu.Unlock()
	})

	p.SetValue(tagname.New("Pump1.Delay.PRE"), "100")
	p.SetValue(tagname.New("Counts[0]"), "16")

	p.RemoveOnChangeListener(id)
	p.SetValue(tagname.New("Counts[1]"), "1")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(got))
	}
	if got[0].TagName != "Pump1.Delay.PRE" || got[0].Value != int32(100) || got[0].Tag != "Pump1" {
		t.Errorf("unexpected first change %+v", got[0])
	}
	if got[1].Text != "16#0000_0010" {
		t.Errorf("expected hex text, got %q", got[1].Text)
	}
}

func TestAddRemoveTag(t *testing.T) {
	p := New(nil)

	tg, err := tag.NewOf(p.Registry(), "Run", "BOOL", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AddTag(tg); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}
	if _, ok := p.Tag("RUN"); !ok {
		t.Error("expected to find RUN")
	}
	if diff := cmp.Diff([]tagname.TagName{"Run"}, p.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	var changes int
	p.AddOnChangeListener(func(tag.Change) { changes++ })
	if err := tg.Root().SetText("1"); err != nil {
		t.Fatal(err)
	}

	if !p.RemoveTag("run") || p.RemoveTag("run") {
		t.Error("RemoveTag mismatch")
	}
	if len(p.Views()) != 0 {
		t.Error("expected no tags")
	}

	if err := tg.Root().SetText("0"); err != nil {
		t.Fatal(err)
	}
	if changes != 1 {
		t.Errorf("expected the removed tag to stop raising changes, got %d", changes)
	}
}

func TestAddMember(t *testing.T) {
	cfg, path := testConfig(t)
	p, err := Load(cfg, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var got []string
	p.AddOnChangeListener(func(c tag.Change) { got = append(got, c.Name.String()) })

	info, err := p.AddMember(tagname.New("Line1.Motors[1]"), "Load", "DINT", nil)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if info.TagName != "Line1.Motors[1].Load" || info.DataType != "DINT" {
		t.Errorf("unexpected member %+v", info)
	}
	if _, err := p.SetValue(tagname.New("Line1.Motors[1].Load"), "12"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Line1.Motors[1].Load"}, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}

	// Other tags of the same type keep their layout.
	if _, err := p.View(tagname.New("Pump1.Load")); !errors.Is(err, errs.ErrLookup) {
		t.Errorf("expected ErrLookup on Pump1.Load, got %v", err)
	}

	if _, err := p.AddMember(tagname.New("Pump1"), "Samples", "INT", datatype.Dimensions{4}); err != nil {
		t.Fatalf("AddMember array failed: %v", err)
	}
	if _, err := p.View(tagname.New("Pump1.Samples[3]")); err != nil {
		t.Errorf("expected the new array element to resolve: %v", err)
	}

	if _, err := p.AddMember(tagname.New("Nobody"), "X", "DINT", nil); !errors.Is(err, errs.ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
	if _, err := p.AddMember(tagname.New("Counts"), "X", "DINT", nil); !errors.Is(err, errs.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}
