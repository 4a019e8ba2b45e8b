package datatype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tnunnink/LogixHelper/errs"
)

// MaxDimensions is the largest number of array dimensions Logix allows.
const MaxDimensions = 3

// Dimensions holds the extents of an array type, outermost first. An empty
// value means the member is not an array.
type Dimensions []int

// NewDimensions validates extents: at most three, each at least one.
func NewDimensions(extents ...int) (Dimensions, error) {
	if len(extents) > MaxDimensions {
		return nil, &errs.DimensionalityError{Want: MaxDimensions, Got: len(extents)}
	}
	d := make(Dimensions, len(extents))
	for i, e := range extents {
		if e < 1 {
			return nil, &errs.RangeError{What: "dimension", Value: strconv.Itoa(e), Limit: "extent of at least 1"}
		}
		d[i] = e
	}
	return d, nil
}

// ParseDimensions parses the L5X form "3 4" as well as "3,4" and "[3,4]".
// Blank text and "0" give empty dimensions.
func ParseDimensions(s string) (Dimensions, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "0") {
		return nil, nil
	}

	extents := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, &errs.FormatError{Input: s, Expected: "dimensions"}
		}
		extents[i] = n
	}
	return NewDimensions(extents...)
}

// IsEmpty reports whether there are no extents.
func (d Dimensions) IsEmpty() bool { return len(d) == 0 }

// DegreesOfFreedom is the number of extents.
func (d Dimensions) DegreesOfFreedom() int { return len(d) }

// Length is the element count, the product of the extents.
func (d Dimensions) Length() int {
	if len(d) == 0 {
		return 0
	}
	n := 1
	for _, e := range d {
		n *= e
	}
	return n
}

// Indices returns every bracket key in row-major order: [0,0], [0,1], ...
func (d Dimensions) Indices() []string {
	n := d.Length()
	keys := make([]string, 0, n)
	coords := make([]int, len(d))
	for i := 0; i < n; i++ {
		keys = append(keys, indexKey(coords))
		for j := len(d) - 1; j >= 0; j-- {
			coords[j]++
			if coords[j] < d[j] {
				break
			}
			coords[j] = 0
		}
	}
	return keys
}

// Index returns the bracket key for coords, checking their count and bounds.
func (d Dimensions) Index(coords ...int) (string, error) {
	if len(coords) != len(d) {
		return "", &errs.DimensionalityError{Want: len(d), Got: len(coords)}
	}
	for i, c := range coords {
		if c < 0 || c >= d[i] {
			return "", &errs.RangeError{What: "index", Value: indexKey(coords), Limit: "array" + d.Brackets()}
		}
	}
	return indexKey(coords), nil
}

// Equal compares extents.
func (d Dimensions) Equal(other Dimensions) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// String returns the L5X attribute form, e.g. "3 4".
func (d Dimensions) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = strconv.Itoa(e)
	}
	return strings.Join(parts, " ")
}

// Brackets returns the bracket form used in type names, e.g. "[3,4]".
func (d Dimensions) Brackets() string {
	if len(d) == 0 {
		return ""
	}
	return indexKey(d)
}

func indexKey(coords []int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range coords {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", c)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Access is the external access of a member: how tools outside the
// controller may use it.
type Access int

const (
	ReadWrite Access = iota
	ReadOnly
	NoAccess
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "Read Only"
	case NoAccess:
		return "None"
	default:
		return "Read/Write"
	}
}

// ParseAccess maps the L5X ExternalAccess names. Blank text is ReadWrite.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read/write", "readwrite":
		return ReadWrite, nil
	case "read only", "readonly":
		return ReadOnly, nil
	case "none":
		return NoAccess, nil
	}
	return ReadWrite, &errs.FormatError{Input: s, Expected: "external access"}
}

// MostRestrictive returns the stricter of a and b.
func MostRestrictive(a, b Access) Access {
	if a > b {
		return a
	}
	return b
}
