package datatype

import (
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/tagname"
)

// GetMember returns the first direct child of t called name, ignoring case,
// or nil.
func GetMember(t DataType, name string) *Member {
	switch v := t.(type) {
	case *Structure:
		return v.Member(name)
	case *Array:
		m, err := v.Index(name)
		if err != nil {
			return nil
		}
		return m
	case nil:
		return nil
	}
	for _, m := range t.Members() {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// MembersTo walks path one member token at a time from t and returns the
// member found at each level. The path is relative to t, so its first token
// names a direct child.
func MembersTo(t DataType, path tagname.TagName) ([]*Member, error) {
	tokens := path.Members()
	if len(tokens) == 0 {
		return nil, &errs.LookupError{Path: path.String(), Segment: "", Type: typeName(t)}
	}

	out := make([]*Member, 0, len(tokens))
	current := t
	for _, token := range tokens {
		m := GetMember(current, token)
		if m == nil {
			debugLog("MembersTo: %s has no member %s (path %s)", typeName(current), token, path)
			return nil, &errs.LookupError{Path: path.String(), Segment: token, Type: typeName(current)}
		}
		out = append(out, m)
		current = m.Type
	}
	return out, nil
}

// ContainsMember reports whether path resolves from t.
func ContainsMember(t DataType, path tagname.TagName) bool {
	_, err := MembersTo(t, path)
	return err == nil
}

// TagNames returns the relative path of every descendant of t in depth-first
// pre-order, e.g. [PRE ACC EN TT DN] for a TIMER.
func TagNames(t DataType) []tagname.TagName {
	var names []tagname.TagName
	collectTagNames(t, tagname.Empty, &names)
	return names
}

func collectTagNames(t DataType, prefix tagname.TagName, names *[]tagname.TagName) {
	for _, m := range t.Members() {
		name := tagname.Concat(prefix, tagname.TagName(m.Name))
		*names = append(*names, name)
		collectTagNames(m.Type, name, names)
	}
}

// DependentTypes returns every distinct named type reachable through the
// members of t, in discovery order. Atomic kinds are included; array wrappers
// are replaced by their element type and t itself is excluded.
func DependentTypes(t DataType) []DataType {
	seen := map[string]bool{strings.ToLower(t.Name()): true}
	var out []DataType
	collectDependents(t, seen, &out)
	return out
}

func collectDependents(t DataType, seen map[string]bool, out *[]DataType) {
	if a, ok := t.(*Array); ok {
		t = a.seed
		visit(t, seen, out)
		return
	}
	for _, m := range t.Members() {
		visit(m.Type, seen, out)
	}
}

func visit(t DataType, seen map[string]bool, out *[]DataType) {
	if a, ok := t.(*Array); ok {
		visit(a.seed, seen, out)
		return
	}
	key := strings.ToLower(t.Name())
	if seen[key] {
		return
	}
	seen[key] = true
	*out = append(*out, t)
	collectDependents(t, seen, out)
}

// Equal reports structural equality: the same variant and name, and pairwise
// equal members by name, extents and recursively equal type. Atomic leaves
// compare kind and value.
func Equal(a, b DataType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case *Atomic:
		y, ok := b.(*Atomic)
		return ok && x.Atomic.Equal(y.Atomic)
	case *Undefined:
		y, ok := b.(*Undefined)
		return ok && strings.EqualFold(x.name, y.name)
	case *Structure:
		if _, ok := b.(*Structure); !ok {
			return false
		}
	case *String:
		if _, ok := b.(*String); !ok {
			return false
		}
	case *Array:
		y, ok := b.(*Array)
		if !ok || !x.dims.Equal(y.dims) {
			return false
		}
	}

	if !strings.EqualFold(a.Name(), b.Name()) {
		return false
	}

	am, bm := a.Members(), b.Members()
	if len(am) != len(bm) {
		return false
	}
	for i := range am {
		if !strings.EqualFold(am[i].Name, bm[i].Name) {
			return false
		}
		if !am[i].Dimensions().Equal(bm[i].Dimensions()) {
			return false
		}
		if !Equal(am[i].Type, bm[i].Type) {
			return false
		}
	}
	return true
}

func typeName(t DataType) string {
	if t == nil {
		return ""
	}
	return t.Name()
}
