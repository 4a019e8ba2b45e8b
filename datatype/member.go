package datatype

import (
	"regexp"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
)

// Member is a named slot of a structure, string or array. The member owns its
// Type value.
type Member struct {
	Name        string
	Type        DataType
	Radix       logix.Radix
	Access      Access
	Description string
}

// MemberOption configures NewMember.
type MemberOption func(*Member)

// WithRadix sets the member radix.
func WithRadix(r logix.Radix) MemberOption {
	return func(m *Member) { m.Radix = r }
}

// WithAccess sets the member external access.
func WithAccess(a Access) MemberOption {
	return func(m *Member) { m.Access = a }
}

// WithDescription sets the member description.
func WithDescription(desc string) MemberOption {
	return func(m *Member) { m.Description = desc }
}

// NewMember creates a member after checking the name and that the radix suits
// the type. Atomic members default to the value's radix.
func NewMember(name string, t DataType, opts ...MemberOption) (*Member, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &errs.NameError{Name: name, Reason: "member has no data type"}
	}

	m := &Member{Name: name, Type: t, Radix: defaultRadix(t)}
	for _, opt := range opts {
		opt(m)
	}

	if err := checkRadix(m.Radix, t); err != nil {
		return nil, err
	}
	if a, ok := t.(*Atomic); ok && a.Radix() != m.Radix {
		v, err := a.WithRadix(m.Radix)
		if err != nil {
			return nil, err
		}
		m.Type = AtomicOf(v)
	}
	return m, nil
}

// MustMember is NewMember that panics on error, for building fixed types.
func MustMember(name string, t DataType, opts ...MemberOption) *Member {
	m, err := NewMember(name, t, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func defaultRadix(t DataType) logix.Radix {
	switch v := t.(type) {
	case *Atomic:
		return v.Radix()
	case *Array:
		return defaultRadix(v.seed)
	}
	return logix.Null
}

func checkRadix(r logix.Radix, t DataType) error {
	switch v := t.(type) {
	case *Atomic:
		if !r.Supports(v.Kind()) {
			return &errs.UnsupportedKindError{Kind: v.Kind().String(), Format: r.String()}
		}
	case *Array:
		return checkRadix(r, v.seed)
	default:
		if r != logix.Null {
			return &errs.UnsupportedKindError{Kind: t.Name(), Format: r.String()}
		}
	}
	return nil
}

// Dimensions returns the array extents when the member is an array.
func (m *Member) Dimensions() Dimensions {
	if a, ok := m.Type.(*Array); ok {
		return a.Dimensions()
	}
	return nil
}

// IsValueMember reports whether the member holds an atomic value.
func (m *Member) IsValueMember() bool {
	_, ok := m.Type.(*Atomic)
	return ok
}

// IsArrayMember reports whether the member is an array.
func (m *Member) IsArrayMember() bool {
	_, ok := m.Type.(*Array)
	return ok
}

// IsStructureMember reports whether the member holds a structure, string or
// unresolved type.
func (m *Member) IsStructureMember() bool {
	switch m.Type.(type) {
	case *Structure, *String, *Undefined:
		return true
	}
	return false
}

// instantiate copies the member with a fresh type tree.
func (m *Member) instantiate() *Member {
	c := *m
	c.Type = m.Type.Instantiate()
	return &c
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,39}$`)

// ValidateName checks the Logix component name rules: a letter or underscore
// followed by letters, digits or underscores, at most 40 characters, with no
// consecutive or trailing underscores.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &errs.NameError{Name: name, Reason: "name is empty"}
	case !namePattern.MatchString(name):
		return &errs.NameError{Name: name, Reason: "must start with a letter or underscore, contain only letters, digits and underscores, and be at most 40 characters"}
	case strings.Contains(name, "__"):
		return &errs.NameError{Name: name, Reason: "consecutive underscores are not allowed"}
	case len(name) > 1 && strings.HasSuffix(name, "_"):
		return &errs.NameError{Name: name, Reason: "trailing underscore is not allowed"}
	}
	return nil
}
