// Package tagname implements the dotted and bracketed path strings that
// address a tag or one of its nested members, e.g. "MyTag.Member[1].Sub" or
// "Local:1:I.Data".
package tagname

import (
	"regexp"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// TagName is a tag or member path. The zero value is the empty name.
//
// Derived views (Tag, Operand, Members, ...) are computed on each call.
// Comparison is case-insensitive; use Equal instead of ==.
type TagName string

// Empty is the empty tag name.
const Empty TagName = ""

const (
	separator    = "."
	arrayBracket = "["
)

var (
	tagNamePattern = regexp.MustCompile(`^[A-Za-z_][\w.\[\],:]*$`)
	rootPattern    = regexp.MustCompile(`^[A-Za-z_]\w*(:\w+)*$`)
	memberPattern  = regexp.MustCompile(`^[A-Za-z_]\w*(:\w+)*$|^\[\d+\]$|^\[\d+,\d+\]$|^\[\d+,\d+,\d+\]$`)
	membersPattern = regexp.MustCompile(`[\w:]+|\[[\d,]+\]`)
	partsPattern   = regexp.MustCompile(`\w+|\[[\d,]+\]`)
)

// New returns the tag name for s without validation. Surrounding space is
// trimmed.
func New(s string) TagName {
	return TagName(strings.TrimSpace(s))
}

// Parse returns the tag name for s, or a FormatError if s is not a valid path.
func Parse(s string) (TagName, error) {
	n := New(s)
	if !n.IsValid() {
		return Empty, &errs.FormatError{Input: s, Expected: "tag name"}
	}
	return n, nil
}

// Combine joins member names into a tag name. Names are joined with '.'
// except array indices, which attach directly to the previous member. Every
// part is checked before anything is built, so a bad part yields only a
// FormatError.
func Combine(parts ...string) (TagName, error) {
	for _, p := range parts {
		if !IsMember(p) {
			return Empty, &errs.FormatError{Input: p, Expected: "member name"}
		}
	}

	var sb strings.Builder
	for _, p := range parts {
		if sb.Len() > 0 && !strings.HasPrefix(p, arrayBracket) {
			sb.WriteString(separator)
		}
		sb.WriteString(p)
	}
	return TagName(sb.String()), nil
}

// Concat appends the relative path rel to base.
func Concat(base, rel TagName) TagName {
	switch {
	case base.IsEmpty():
		return rel
	case rel.IsEmpty():
		return base
	case strings.HasPrefix(string(rel), arrayBracket), strings.HasPrefix(string(rel), separator):
		return base + rel
	default:
		return base + separator + rel
	}
}

// IsMember reports whether s is a single member token: an identifier, a
// module qualified identifier (Local:1:I) or an index of one to three
// coordinates.
func IsMember(s string) bool {
	return memberPattern.MatchString(s)
}

// IsRoot reports whether s is a valid tag root.
func IsRoot(s string) bool {
	return rootPattern.MatchString(s)
}

// Tag returns the root portion: everything up to the first '.'.
func (n TagName) Tag() string {
	s := string(n)
	if i := strings.Index(s, separator); i >= 0 {
		return s[:i]
	}
	return s
}

// Operand returns everything after Tag, including the leading '.'.
func (n TagName) Operand() string {
	return string(n)[len(n.Tag()):]
}

// Path returns Operand without its leading '.'.
func (n TagName) Path() string {
	return strings.TrimPrefix(n.Operand(), separator)
}

// Members splits the name into member tokens, e.g.
// "MyTag.Member[1].Sub" -> [MyTag Member [1] Sub].
func (n TagName) Members() []string {
	return membersPattern.FindAllString(string(n), -1)
}

// Parts is Members with module qualified roots further split on ':'.
func (n TagName) Parts() []string {
	return partsPattern.FindAllString(string(n), -1)
}

// Member returns the last member token, or "" for the empty name.
func (n TagName) Member() string {
	m := n.Members()
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1]
}

// Depth is the number of members below the root. "MyTag[1].Value" has
// depth 2.
func (n TagName) Depth() int {
	return len(n.Members()) - 1
}

// Parent returns the name without its last member, or Empty for a root.
func (n TagName) Parent() TagName {
	m := n.Members()
	if len(m) <= 1 {
		return Empty
	}
	p, err := Combine(m[:len(m)-1]...)
	if err != nil {
		return Empty
	}
	return p
}

// Append adds one member token to the name.
func (n TagName) Append(member string) (TagName, error) {
	if !IsMember(member) {
		return n, &errs.FormatError{Input: member, Expected: "member name"}
	}
	return Concat(n, TagName(member)), nil
}

// Rename replaces the root with root, keeping the operand.
func (n TagName) Rename(root string) (TagName, error) {
	if !IsRoot(root) {
		return n, &errs.FormatError{Input: root, Expected: "tag name root"}
	}
	return TagName(root + n.Operand()), nil
}

// IsEmpty reports whether the name is blank.
func (n TagName) IsEmpty() bool {
	return strings.TrimSpace(string(n)) == ""
}

// IsValid reports whether every member token is valid and the tokens account
// for the whole string.
func (n TagName) IsValid() bool {
	s := string(n)
	if !tagNamePattern.MatchString(s) {
		return false
	}
	members := n.Members()
	if len(members) == 0 || !IsRoot(members[0]) {
		return false
	}
	rebuilt, err := Combine(members...)
	return err == nil && string(rebuilt) == s
}

// Equal compares two names case-insensitively.
func (n TagName) Equal(other TagName) bool {
	return strings.EqualFold(string(n), string(other))
}

// Compare orders two names case-insensitively, returning -1, 0 or 1.
func Compare(a, b TagName) int {
	return strings.Compare(strings.ToLower(string(a)), strings.ToLower(string(b)))
}

// Contains reports whether other occurs anywhere in n, ignoring case. It is
// a text test; use datatype.ContainsMember for structural containment.
func (n TagName) Contains(other TagName) bool {
	return strings.Contains(strings.ToLower(string(n)), strings.ToLower(string(other)))
}

// Key returns the canonical form used as a map key.
func (n TagName) Key() string {
	return strings.ToLower(string(n))
}

func (n TagName) String() string {
	return string(n)
}
