package datatype

import (
	"sort"
	"strings"
	"sync"

	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logix"
)

// Registry maps type names to shared definitions. Names compare without case.
// Registered types act as templates; New hands out independent instances.
type Registry struct {
	mu    sync.RWMutex
	types map[string]DataType
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]DataType)}
}

// StandardRegistry returns a registry holding the predefined STRING, TIMER,
// COUNTER and CONTROL types.
func StandardRegistry() *Registry {
	r := NewRegistry()
	for _, t := range Predefined() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a named composite. Atomic names and names already present
// fail with a NameError.
func (r *Registry) Register(t DataType) error {
	if t == nil {
		return &errs.NameError{Name: "", Reason: "no data type"}
	}
	switch t.(type) {
	case *Structure, *String:
	default:
		return &errs.NameError{Name: t.Name(), Reason: "only structures and strings can be registered"}
	}
	if logix.IsAtomicName(t.Name()) {
		return &errs.NameError{Name: t.Name(), Reason: "collides with an atomic type"}
	}

	key := strings.ToLower(t.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[key]; exists {
		return &errs.NameError{Name: t.Name(), Reason: "type already registered"}
	}
	r.types[key] = t
	r.order = append(r.order, key)
	registryLog("Registered %s (%s)", t.Name(), t.Class())
	return nil
}

// Unregister removes the type called name and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[key]; !exists {
		return false
	}
	delete(r.types, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the registered type called name. The returned value is the
// shared template; use New for a value to mutate.
func (r *Registry) Lookup(name string) (DataType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[strings.ToLower(name)]
	return t, ok
}

// Contains reports whether name is registered or is an atomic kind.
func (r *Registry) Contains(name string) bool {
	if logix.IsAtomicName(name) {
		return true
	}
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names sorted without case.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.order))
	for _, key := range r.order {
		names = append(names, r.types[key].Name())
	}
	r.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Types returns the registered templates in registration order.
func (r *Registry) Types() []DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DataType, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.types[key])
	}
	return out
}

// New returns a fresh value of the named type: a zero atomic for kind names,
// an instance of a registered type, or an Undefined placeholder.
func (r *Registry) New(name string) DataType {
	if k, ok := logix.KindFromName(name); ok {
		return NewAtomic(k)
	}
	if t, ok := r.Lookup(name); ok {
		return t.Instantiate()
	}
	registryLog("New: %s is not registered, using an undefined placeholder", name)
	return NewUndefined(name)
}

// NewArray returns a fresh array of the named element type.
func (r *Registry) NewArray(name string, dims Dimensions, opts ...MemberOption) (*Array, error) {
	return NewArray(r.New(name), dims, opts...)
}

func equalName(a, b string) bool {
	return strings.EqualFold(a, b)
}
