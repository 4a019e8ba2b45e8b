package datatype

import (
	"github.com/tnunnink/LogixHelper/errs"
)

// Array is a fixed-size array of one to three dimensions. Elements are
// members named by their bracket index ("[0]", "[1,2]") in row-major order.
type Array struct {
	seed     DataType
	dims     Dimensions
	elements []*Member
	index    map[string]int
	opts     []MemberOption
}

// NewArray creates an array whose elements are fresh instances of seed. The
// options apply to every element.
func NewArray(seed DataType, dims Dimensions, opts ...MemberOption) (*Array, error) {
	if seed == nil {
		return nil, &errs.NameError{Name: "", Reason: "array has no element type"}
	}
	if _, nested := seed.(*Array); nested {
		return nil, &errs.DimensionalityError{Want: MaxDimensions, Got: MaxDimensions + 1}
	}
	if dims.IsEmpty() || dims.DegreesOfFreedom() > MaxDimensions {
		return nil, &errs.DimensionalityError{Want: MaxDimensions, Got: dims.DegreesOfFreedom()}
	}
	if _, err := NewDimensions(dims...); err != nil {
		return nil, err
	}

	keys := dims.Indices()
	a := &Array{
		seed:     seed,
		dims:     append(Dimensions(nil), dims...),
		elements: make([]*Member, len(keys)),
		index:    make(map[string]int, len(keys)),
		opts:     opts,
	}

	for i, key := range keys {
		m := &Member{Name: key, Type: seed.Instantiate(), Radix: defaultRadix(seed)}
		for _, opt := range opts {
			opt(m)
		}
		if err := checkRadix(m.Radix, seed); err != nil {
			return nil, err
		}
		if at, ok := m.Type.(*Atomic); ok && at.Radix() != m.Radix {
			v, err := at.WithRadix(m.Radix)
			if err != nil {
				return nil, err
			}
			m.Type = AtomicOf(v)
		}
		a.elements[i] = m
		a.index[key] = i
	}

	debugLog("NewArray: %s with %d elements", a.Name(), len(keys))
	return a, nil
}

// Name is the element type name followed by the extents, e.g. "DINT[10]".
func (a *Array) Name() string {
	return a.seed.Name() + a.dims.Brackets()
}

func (a *Array) Class() Class           { return a.seed.Class() }
func (a *Array) Family() Family         { return a.seed.Family() }
func (a *Array) Description() string    { return "" }
func (a *Array) ElementType() DataType  { return a.seed }
func (a *Array) Dimensions() Dimensions { return append(Dimensions(nil), a.dims...) }
func (a *Array) Len() int               { return len(a.elements) }
func (a *Array) Members() []*Member     { return append([]*Member(nil), a.elements...) }
func (a *Array) dataType()              {}

// At returns the element at the given coordinates. The number of coordinates
// must equal the degrees of freedom.
func (a *Array) At(coords ...int) (*Member, error) {
	key, err := a.dims.Index(coords...)
	if err != nil {
		return nil, err
	}
	return a.elements[a.index[key]], nil
}

// Index returns the element with bracket key, e.g. "[2,1]".
func (a *Array) Index(key string) (*Member, error) {
	i, ok := a.index[key]
	if !ok {
		return nil, &errs.RangeError{What: "index", Value: key, Limit: a.Name()}
	}
	return a.elements[i], nil
}

// Instantiate returns a new array of the same seed, extents and element
// options.
func (a *Array) Instantiate() DataType {
	c, err := NewArray(a.seed, a.dims, a.opts...)
	if err != nil {
		// The receiver was built from the same arguments.
		panic(err)
	}
	return c
}
