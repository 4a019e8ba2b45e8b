package datatype

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"

	"gopkg.in/yaml.v3"
)

// Definitions is the on-disk form of a set of user types.
type Definitions struct {
	Types []Definition `yaml:"types"`
}

// Definition describes one structure or string type.
type Definition struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Family      string             `yaml:"family,omitempty"` // "StringFamily" for string types
	Length      int                `yaml:"length,omitempty"` // string capacity
	Members     []MemberDefinition `yaml:"members,omitempty"`
}

// MemberDefinition describes one structure member.
type MemberDefinition struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Dimension   string `yaml:"dimension,omitempty"`
	Radix       string `yaml:"radix,omitempty"`
	Access      string `yaml:"access,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// IsString reports whether the definition is a string type.
func (d Definition) IsString() bool {
	return strings.EqualFold(d.Family, FamilyString.String()) || strings.EqualFold(d.Family, "string")
}

// ReadDefinitions decodes a YAML definitions document.
func ReadDefinitions(r io.Reader) ([]Definition, error) {
	var doc Definitions
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse type definitions: %w", err)
	}
	return doc.Types, nil
}

// LoadDefinitions reads a YAML definitions file.
func LoadDefinitions(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open type definitions: %w", err)
	}
	defer f.Close()

	defs, err := ReadDefinitions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	registryLog("Loaded %d type definitions from %s", len(defs), path)
	return defs, nil
}

// WriteDefinitions encodes defs as a YAML definitions document.
func WriteDefinitions(w io.Writer, defs []Definition) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Definitions{Types: defs}); err != nil {
		return fmt.Errorf("failed to encode type definitions: %w", err)
	}
	return enc.Close()
}

// DefinitionOf returns the definition of a structure or string type.
func DefinitionOf(t DataType) (Definition, error) {
	switch v := t.(type) {
	case *String:
		return Definition{
			Name:        v.name,
			Description: v.description,
			Family:      FamilyString.String(),
			Length:      v.capacity,
		}, nil
	case *Structure:
		def := Definition{Name: v.name, Description: v.description}
		for _, m := range v.members {
			md := MemberDefinition{Name: m.Name, Description: m.Description}
			if m.Access != ReadWrite {
				md.Access = m.Access.String()
			}
			elem := m.Type
			if a, ok := m.Type.(*Array); ok {
				elem = a.seed
				md.Dimension = a.dims.String()
			}
			md.Type = elem.Name()
			if at, ok := elem.(*Atomic); ok && m.Radix != at.Kind().DefaultRadix() {
				md.Radix = m.Radix.String()
			}
			def.Members = append(def.Members, md)
		}
		return def, nil
	}
	return Definition{}, &errs.UnsupportedKindError{Kind: typeName(t), Format: "definition"}
}

// Define builds and registers defs. Definitions may reference each other in
// any order and may reference types already in the registry. Nothing is
// registered unless every definition builds.
func (r *Registry) Define(defs []Definition) error {
	byName := make(map[string]Definition, len(defs))
	for _, d := range defs {
		key := strings.ToLower(d.Name)
		if _, dup := byName[key]; dup {
			return &errs.NameError{Name: d.Name, Reason: "defined more than once"}
		}
		if _, exists := r.Lookup(d.Name); exists {
			return &errs.NameError{Name: d.Name, Reason: "type already registered"}
		}
		byName[key] = d
	}

	order, err := r.defineOrder(defs, byName)
	if err != nil {
		return err
	}

	built := make(map[string]DataType, len(order))
	resolve := func(name string) DataType {
		if k, ok := logix.KindFromName(name); ok {
			return NewAtomic(k)
		}
		if t, ok := built[strings.ToLower(name)]; ok {
			return t.Instantiate()
		}
		return r.New(name)
	}

	for _, d := range order {
		t, err := buildDefinition(d, resolve)
		if err != nil {
			return fmt.Errorf("type %s: %w", d.Name, err)
		}
		built[strings.ToLower(d.Name)] = t
	}

	for _, d := range order {
		if err := r.Register(built[strings.ToLower(d.Name)]); err != nil {
			return err
		}
	}
	registryLog("Defined %d types", len(order))
	return nil
}

// defineOrder sorts defs so every definition follows the definitions it
// references.
func (r *Registry) defineOrder(defs []Definition, byName map[string]Definition) ([]Definition, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	order := make([]Definition, 0, len(defs))

	var visit func(d Definition, trail []string) error
	visit = func(d Definition, trail []string) error {
		key := strings.ToLower(d.Name)
		switch state[key] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%s: %w", strings.Join(append(trail, d.Name), " -> "), errs.ErrCycle)
		}
		state[key] = visiting
		trail = append(trail, d.Name)

		for _, m := range d.Members {
			if logix.IsAtomicName(m.Type) {
				continue
			}
			if dep, ok := byName[strings.ToLower(m.Type)]; ok {
				if err := visit(dep, trail); err != nil {
					return err
				}
				continue
			}
			if _, ok := r.Lookup(m.Type); !ok {
				return &errs.LookupError{Path: d.Name + "." + m.Name, Segment: m.Type, Type: d.Name}
			}
		}

		state[key] = done
		order = append(order, d)
		return nil
	}

	for _, d := range defs {
		if err := visit(d, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func buildDefinition(d Definition, resolve func(string) DataType) (DataType, error) {
	if d.IsString() {
		if len(d.Members) > 0 {
			return nil, &errs.NameError{Name: d.Name, Reason: "string types cannot declare members"}
		}
		return NewString(d.Name, d.Length, d.Description)
	}

	b := NewBuilder(d.Name).Description(d.Description)
	for _, md := range d.Members {
		opts, err := memberOptions(md)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", md.Name, err)
		}
		dims, err := ParseDimensions(md.Dimension)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", md.Name, err)
		}
		if dims.IsEmpty() {
			b.Member(md.Name, resolve(md.Type), opts...)
		} else {
			b.Array(md.Name, resolve(md.Type), dims, opts...)
		}
	}
	return b.Build()
}

func memberOptions(md MemberDefinition) ([]MemberOption, error) {
	opts := []MemberOption{WithDescription(md.Description)}
	if md.Radix != "" {
		r, err := logix.ParseRadix(md.Radix)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRadix(r))
	}
	access, err := ParseAccess(md.Access)
	if err != nil {
		return nil, err
	}
	return append(opts, WithAccess(access)), nil
}
