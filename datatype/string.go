package datatype

import (
	"strconv"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
)

// String member names.
const (
	StringLen  = "LEN"
	StringData = "DATA"
)

// String is a fixed-capacity string type made of a DINT length and a SINT
// data array rendered in the ASCII radix.
type String struct {
	name        string
	description string
	class       Class
	capacity    int
	len         *Member
	data        *Member
}

// NewString creates a user string type holding up to capacity characters.
func NewString(name string, capacity int, description string) (*String, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return newString(name, capacity, description, ClassUser)
}

func newString(name string, capacity int, description string, class Class) (*String, error) {
	if capacity < 1 {
		return nil, &errs.RangeError{What: "string capacity", Value: strconv.Itoa(capacity), Limit: "at least 1"}
	}

	data, err := NewArray(NewAtomic(logix.KindSINT), Dimensions{capacity}, WithRadix(logix.Ascii))
	if err != nil {
		return nil, err
	}

	return &String{
		name:        name,
		description: description,
		class:       class,
		capacity:    capacity,
		len:         &Member{Name: StringLen, Type: NewAtomic(logix.KindDINT), Radix: logix.Decimal},
		data:        &Member{Name: StringData, Type: data, Radix: logix.Ascii},
	}, nil
}

func (s *String) Name() string        { return s.name }
func (s *String) Class() Class        { return s.class }
func (s *String) Family() Family      { return FamilyString }
func (s *String) Description() string { return s.description }
func (s *String) Capacity() int       { return s.capacity }
func (s *String) Members() []*Member  { return []*Member{s.len, s.data} }
func (s *String) dataType()           {}

// Instantiate returns an empty string of the same type.
func (s *String) Instantiate() DataType {
	c, _ := newString(s.name, s.capacity, s.description, s.class)
	return c
}

// Len returns the current length, clamped to the capacity.
func (s *String) Len() int {
	n := int(s.len.Type.(*Atomic).Int64())
	switch {
	case n < 0:
		return 0
	case n > s.capacity:
		return s.capacity
	}
	return n
}

// Value returns the string held in DATA up to LEN.
func (s *String) Value() string {
	n := s.Len()
	elements := s.data.Type.(*Array).elements
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(elements[i].Type.(*Atomic).Uint64())
	}
	return string(b)
}

// SetValue stores v, zeroing unused DATA elements. Values longer than the
// capacity fail with a RangeError and leave the string unchanged.
func (s *String) SetValue(v string) error {
	if len(v) > s.capacity {
		return &errs.RangeError{
			What:  "string length",
			Value: strconv.Itoa(len(v)),
			Limit: s.name + " capacity " + strconv.Itoa(s.capacity),
		}
	}

	for i, m := range s.data.Type.(*Array).elements {
		var b byte
		if i < len(v) {
			b = v[i]
		}
		if err := m.Type.(*Atomic).Set(logix.Sint(int8(b))); err != nil {
			return err
		}
	}
	return s.len.Type.(*Atomic).Set(logix.Dint(int32(len(v))))
}
