package datatype

import (
	"fmt"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// Structure is a named, ordered collection of members. Member order is the
// declaration order and is significant.
type Structure struct {
	name        string
	description string
	class       Class
	members     []*Member
}

// NewStructure creates a user structure with the given members.
func NewStructure(name, description string, members ...*Member) (*Structure, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s := &Structure{name: name, description: description, class: ClassUser}
	for _, m := range members {
		if err := s.Add(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Structure) Name() string        { return s.name }
func (s *Structure) Class() Class        { return s.class }
func (s *Structure) Family() Family      { return FamilyNone }
func (s *Structure) Description() string { return s.description }
func (s *Structure) Members() []*Member  { return append([]*Member(nil), s.members...) }
func (s *Structure) dataType()           {}

// Member returns the member called name, ignoring case.
func (s *Structure) Member(name string) *Member {
	for _, m := range s.members {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// Add appends a member. Duplicate names fail with a NameError and members
// whose type contains this structure fail with ErrCycle.
func (s *Structure) Add(m *Member) error {
	if m == nil || m.Type == nil {
		return &errs.NameError{Name: s.name, Reason: "member has no data type"}
	}
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if s.Member(m.Name) != nil {
		return &errs.NameError{Name: m.Name, Reason: fmt.Sprintf("member already exists in %s", s.name)}
	}
	if s.reachableFrom(m.Type) {
		return fmt.Errorf("member %s of type %s in %s: %w", m.Name, m.Type.Name(), s.name, errs.ErrCycle)
	}

	s.members = append(s.members, m)
	return nil
}

// Remove deletes the member called name and reports whether it existed.
func (s *Structure) Remove(name string) bool {
	for i, m := range s.members {
		if strings.EqualFold(m.Name, name) {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return true
		}
	}
	return false
}

// reachableFrom reports whether s occurs, by identity or by name, in the tree
// rooted at t.
func (s *Structure) reachableFrom(t DataType) bool {
	if t == DataType(s) || (isNamed(t) && strings.EqualFold(t.Name(), s.name)) {
		return true
	}
	if a, ok := t.(*Array); ok {
		return s.reachableFrom(a.seed)
	}
	for _, m := range t.Members() {
		if s.reachableFrom(m.Type) {
			return true
		}
	}
	return false
}

// Instantiate returns a structure of the same shape with fresh member trees.
func (s *Structure) Instantiate() DataType {
	c := &Structure{
		name:        s.name,
		description: s.description,
		class:       s.class,
		members:     make([]*Member, len(s.members)),
	}
	for i, m := range s.members {
		c.members[i] = m.instantiate()
	}
	return c
}

// isNamed reports whether t is a named composite, as opposed to an atomic
// leaf or a synthesized array wrapper.
func isNamed(t DataType) bool {
	switch t.(type) {
	case *Structure, *String, *Undefined:
		return true
	}
	return false
}

// Builder assembles a structure member by member. The first error stops the
// build and is returned by Build.
type Builder struct {
	s   *Structure
	err error
}

// NewBuilder starts a user structure called name.
func NewBuilder(name string) *Builder {
	b := &Builder{s: &Structure{name: name, class: ClassUser}}
	b.err = ValidateName(name)
	return b
}

// Description sets the structure description.
func (b *Builder) Description(desc string) *Builder {
	b.s.description = desc
	return b
}

// Class sets the structure class.
func (b *Builder) Class(c Class) *Builder {
	b.s.class = c
	return b
}

// Member adds a member of type t.
func (b *Builder) Member(name string, t DataType, opts ...MemberOption) *Builder {
	if b.err != nil {
		return b
	}
	m, err := NewMember(name, t, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.err = b.s.Add(m)
	return b
}

// Array adds an array member of seed with the given extents.
func (b *Builder) Array(name string, seed DataType, dims Dimensions, opts ...MemberOption) *Builder {
	if b.err != nil {
		return b
	}
	arr, err := NewArray(seed, dims, opts...)
	if err != nil {
		b.err = err
		return b
	}
	return b.Member(name, arr, opts...)
}

// Build returns the structure or the first error.
func (b *Builder) Build() (*Structure, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.s, nil
}
