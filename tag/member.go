package tag

import (
	"fmt"
	"strings"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/tagname"
)

// Member is a data type member bound to the tag that owns it. It holds
// references into the tag's tree and must be discarded after structural
// edits to that tree.
type Member struct {
	member *datatype.Member
	tag    *Tag
	parent *Member
}

// Name returns the member name, the tag name at the root.
func (m *Member) Name() string { return m.member.Name }

// Tag returns the owning tag.
func (m *Member) Tag() *Tag { return m.tag }

// Parent returns the enclosing bound member, nil at the root.
func (m *Member) Parent() *Member { return m.parent }

// DataType returns the member's type.
func (m *Member) DataType() datatype.DataType { return m.member.Type }

// Dimensions returns the extents when the member is an array.
func (m *Member) Dimensions() datatype.Dimensions { return m.member.Dimensions() }

// Radix returns the member radix.
func (m *Member) Radix() logix.Radix { return m.member.Radix }

func (m *Member) IsValueMember() bool     { return m.member.IsValueMember() }
func (m *Member) IsArrayMember() bool     { return m.member.IsArrayMember() }
func (m *Member) IsStructureMember() bool { return m.member.IsStructureMember() }

// TagName returns the full path of the member, root included.
func (m *Member) TagName() tagname.TagName {
	if m.parent == nil {
		return tagname.TagName(m.member.Name)
	}
	return tagname.Concat(m.parent.TagName(), tagname.TagName(m.member.Name))
}

// Description returns the explicit comment for the member if there is one.
// Otherwise descriptions pass through: members of tags whose type is not a
// user type inherit the parent description, down from the tag's own; for
// user types the root takes the type description, array members join the
// tag description with their own, and other members join the tag
// description with the parent's.
func (m *Member) Description() string {
	name := m.TagName()
	if m.tag.HasComment(name) {
		return m.tag.Comment(name)
	}

	if m.tag.DataType().Class() != datatype.ClassUser {
		if m.parent == nil {
			return m.tag.Description()
		}
		return m.parent.Description()
	}

	if m.parent == nil {
		return m.member.Type.Description()
	}
	if m.IsArrayMember() {
		return strings.TrimSpace(m.tag.Description() + " " + m.member.Description)
	}
	return strings.TrimSpace(m.tag.Description() + " " + m.parent.Description())
}

// SetComment sets an explicit comment for this member on the owning tag.
func (m *Member) SetComment(text string) {
	m.tag.SetComment(m.TagName(), text)
}

// Access is the member's own access at the root and the more restrictive of
// its own and its parent's below it.
func (m *Member) Access() datatype.Access {
	if m.parent == nil {
		return m.member.Access
	}
	return datatype.MostRestrictive(m.member.Access, m.parent.Access())
}

// Member resolves path from this member. The path is either relative to this
// member or absolute, starting with the tag name. An absolute path naming
// only the tag returns the root.
func (m *Member) Member(path tagname.TagName) (*Member, error) {
	start := m
	rel := path
	if tokens := path.Members(); len(tokens) > 0 {
		first := tokens[0]
		if strings.EqualFold(first, m.tag.root.Name) && !m.hasChild(first) {
			start = m.tag.Root()
			rel = tagname.TagName(strings.TrimPrefix(string(path)[len(first):], "."))
			if rel.IsEmpty() {
				return start, nil
			}
		}
	}

	chain, err := datatype.MembersTo(start.member.Type, rel)
	if err != nil {
		debugLog("Resolve %s from %s failed: %v", path, m.TagName(), err)
		return nil, err
	}

	current := start
	for _, dm := range chain {
		current = &Member{member: dm, tag: m.tag, parent: current}
	}
	return current, nil
}

// hasChild reports whether this member has a direct child called name, which
// makes a path starting with name relative even when it matches the tag name.
func (m *Member) hasChild(name string) bool {
	return m.parent != nil && datatype.GetMember(m.member.Type, name) != nil
}

// Index returns the array element at the given coordinates.
func (m *Member) Index(coords ...int) (*Member, error) {
	arr, ok := m.member.Type.(*datatype.Array)
	if !ok {
		return nil, &errs.DimensionalityError{Want: 0, Got: len(coords)}
	}
	el, err := arr.At(coords...)
	if err != nil {
		return nil, err
	}
	return &Member{member: el, tag: m.tag, parent: m}, nil
}

// Members returns the bound direct children.
func (m *Member) Members() []*Member {
	children := m.member.Type.Members()
	out := make([]*Member, len(children))
	for i, c := range children {
		out[i] = &Member{member: c, tag: m.tag, parent: m}
	}
	return out
}

// TagNames returns the full path of every descendant of this member.
func (m *Member) TagNames() []tagname.TagName {
	base := m.TagName()
	rel := datatype.TagNames(m.member.Type)
	out := make([]tagname.TagName, len(rel))
	for i, n := range rel {
		out[i] = tagname.Concat(base, n)
	}
	return out
}

// Contains reports whether name is this member or one of its descendants.
func (m *Member) Contains(name tagname.TagName) bool {
	if m.TagName().Equal(name) {
		return true
	}
	for _, n := range m.TagNames() {
		if n.Equal(name) {
			return true
		}
	}
	return false
}

// Atomic returns the value of an atomic member.
func (m *Member) Atomic() (*logix.Atomic, bool) {
	a, ok := m.member.Type.(*datatype.Atomic)
	if !ok {
		return nil, false
	}
	return a.Atomic, true
}

// Value returns the native value of an atomic member, the text of a string
// member, and nil otherwise.
func (m *Member) Value() interface{} {
	switch v := m.member.Type.(type) {
	case *datatype.Atomic:
		return v.Value()
	case *datatype.String:
		return v.Value()
	}
	return nil
}

// Text renders an atomic member in its radix, or returns a string member's
// text.
func (m *Member) Text() (string, error) {
	switch v := m.member.Type.(type) {
	case *datatype.Atomic:
		return v.ToText(m.member.Radix)
	case *datatype.String:
		return v.Value(), nil
	}
	return "", notAtomic(m)
}

// SetValue assigns v to an atomic member. The bytes of v are reinterpreted
// in the member's kind.
func (m *Member) SetValue(v *logix.Atomic) error {
	a, ok := m.member.Type.(*datatype.Atomic)
	if !ok {
		return notAtomic(m)
	}
	if v == nil {
		return fmt.Errorf("%s: no value to set", m.TagName())
	}
	return a.Set(v)
}

// TrySetValue assigns v when the member is atomic and of the same kind and
// reports whether it did.
func (m *Member) TrySetValue(v *logix.Atomic) bool {
	a, ok := m.member.Type.(*datatype.Atomic)
	if !ok || v == nil || a.Kind() != v.Kind() {
		return false
	}
	return a.Set(v) == nil
}

// SetText parses text in the member's kind and assigns it. String members
// take the text as is.
func (m *Member) SetText(text string) error {
	switch v := m.member.Type.(type) {
	case *datatype.Atomic:
		parsed, err := logix.ParseKind(v.Kind(), text)
		if err != nil {
			return err
		}
		return v.Set(parsed)
	case *datatype.String:
		return v.SetValue(text)
	}
	return notAtomic(m)
}

// String returns the member path.
func (m *Member) String() string {
	return m.TagName().String()
}
