// Package project holds a loaded set of data types and tags and guards them
// for concurrent use by the API, the browser and the publishers.
package project

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tagname"
)

// ListenerID identifies a project change listener.
type ListenerID string

// Project is a registry of types plus the tags built from them. All methods
// are safe for concurrent use.
type Project struct {
	mu       sync.RWMutex
	registry *datatype.Registry
	tags     map[string]*tag.Tag
	order    []string
	// dispatch listener registered on each tag, by tag key
	attached map[string]tag.ListenerID

	listeners       map[ListenerID]func(tag.Change)
	listenersMu     sync.RWMutex
	listenerCounter uint64
}

// New creates an empty project over registry. A nil registry means the
// standard registry.
func New(registry *datatype.Registry) *Project {
	if registry == nil {
		registry = datatype.StandardRegistry()
	}
	return &Project{
		registry:  registry,
		tags:      make(map[string]*tag.Tag),
		attached:  make(map[string]tag.ListenerID),
		listeners: make(map[ListenerID]func(tag.Change)),
	}
}

// Load builds a project from cfg. Definition file paths are resolved against
// the directory of configPath.
func Load(cfg *config.Config, configPath string) (*Project, error) {
	registry := datatype.StandardRegistry()

	var defs []datatype.Definition
	for _, path := range cfg.DefinitionPaths(configPath) {
		fileDefs, err := datatype.LoadDefinitions(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	defs = append(defs, cfg.Types...)
	if err := registry.Define(defs); err != nil {
		return nil, fmt.Errorf("failed to define types: %w", err)
	}

	p := New(registry)
	for _, tc := range cfg.Tags {
		t, err := BuildTag(registry, tc)
		if err != nil {
			return nil, err
		}
		if err := p.AddTag(t); err != nil {
			return nil, err
		}
	}

	debugLog("Loaded project: %d types, %d tags", len(registry.Names()), len(p.order))
	return p, nil
}

// BuildTag creates a tag from its configuration and applies its comments and
// initial values.
func BuildTag(registry *datatype.Registry, tc config.TagConfig) (*tag.Tag, error) {
	dims, err := datatype.ParseDimensions(tc.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", tc.Name, err)
	}
	access, err := datatype.ParseAccess(tc.Access)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", tc.Name, err)
	}

	opts := []tag.Option{tag.WithAccess(access), tag.WithDescription(tc.Description)}
	if tc.Radix != "" {
		r, err := logix.ParseRadix(tc.Radix)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tc.Name, err)
		}
		opts = append(opts, tag.WithRadix(r))
	}

	t, err := tag.NewOf(registry, tc.Name, tc.Type, dims, opts...)
	if err != nil {
		return nil, err
	}

	for path, text := range tc.Comments {
		m, err := t.Member(tagname.New(path))
		if err != nil {
			return nil, fmt.Errorf("tag %s comment: %w", tc.Name, err)
		}
		m.SetComment(text)
	}

	for _, path := range sortedKeys(tc.Values) {
		m, err := t.Member(tagname.New(path))
		if err != nil {
			return nil, fmt.Errorf("tag %s value: %w", tc.Name, err)
		}
		if err := m.SetText(tc.Values[path]); err != nil {
			return nil, fmt.Errorf("tag %s value %s: %w", tc.Name, path, err)
		}
	}
	return t, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry returns the project's type registry.
func (p *Project) Registry() *datatype.Registry { return p.registry }

// AddTag adds t. Tag names are unique without case.
func (p *Project) AddTag(t *tag.Tag) error {
	key := t.Name().Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.tags[key]; exists {
		return &errs.NameError{Name: t.Name().String(), Reason: "tag already exists"}
	}
	p.tags[key] = t
	p.order = append(p.order, key)
	p.attached[key] = t.AddOnChangeListener(p.dispatch)
	debugLog("Added tag %s", t)
	return nil
}

// RemoveTag removes the tag called name and reports whether it existed.
func (p *Project) RemoveTag(name string) bool {
	key := strings.ToLower(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	t, exists := p.tags[key]
	if !exists {
		return false
	}
	t.RemoveOnChangeListener(p.attached[key])
	delete(p.attached, key)
	delete(p.tags, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Tag returns the tag called name.
func (p *Project) Tag(name string) (*tag.Tag, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tags[strings.ToLower(name)]
	return t, ok
}

// Tags returns the tags in the order they were added.
func (p *Project) Tags() []*tag.Tag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tag.Tag, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.tags[key])
	}
	return out
}

// Types returns the registered types.
func (p *Project) Types() []datatype.DataType {
	return p.registry.Types()
}

// Resolve returns the bound member for a full path such as
// "Pump1.Delay.PRE". The member is not guarded; use View and SetValue when
// other goroutines may change the project.
func (p *Project) Resolve(path tagname.TagName) (*tag.Member, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resolve(path)
}

func (p *Project) resolve(path tagname.TagName) (*tag.Member, error) {
	tokens := path.Members()
	if len(tokens) == 0 {
		return nil, &errs.LookupError{Path: path.String()}
	}
	t, ok := p.tags[strings.ToLower(tokens[0])]
	if !ok {
		return nil, &errs.LookupError{Path: path.String(), Segment: tokens[0]}
	}
	return t.Member(path)
}

// View resolves path and describes the member under the read lock.
func (p *Project) View(path tagname.TagName) (MemberInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, err := p.resolve(path)
	if err != nil {
		return MemberInfo{}, err
	}
	return Describe(m), nil
}

// Views describes the root of every tag.
func (p *Project) Views() []MemberInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]MemberInfo, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, Describe(p.tags[key].Root()))
	}
	return out
}

// SetValue parses text into the member at path.
func (p *Project) SetValue(path tagname.TagName, text string) (MemberInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.resolve(path)
	if err != nil {
		return MemberInfo{}, err
	}
	if err := m.SetText(text); err != nil {
		debugLog("SetValue %s = %q failed: %v", path, text, err)
		return MemberInfo{}, err
	}
	return Describe(m), nil
}

// AddMember appends a member of the named type to the structure at parent,
// a full path such as "Pump1" or "Line1.Motors[0]". Only that tag's tree
// changes. A non-empty dims makes the member an array.
func (p *Project) AddMember(parent tagname.TagName, name, typeName string, dims datatype.Dimensions) (MemberInfo, error) {
	var (
		dt  datatype.DataType
		err error
	)
	if dims.IsEmpty() {
		dt = p.registry.New(typeName)
	} else if dt, err = p.registry.NewArray(typeName, dims); err != nil {
		return MemberInfo{}, err
	}
	member, err := datatype.NewMember(name, dt)
	if err != nil {
		return MemberInfo{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.resolve(parent)
	if err != nil {
		return MemberInfo{}, err
	}
	added, err := m.Tag().AddMember(m.TagName(), member)
	if err != nil {
		debugLog("AddMember %s.%s failed: %v", parent, name, err)
		return MemberInfo{}, err
	}
	return Describe(added), nil
}

// AddOnChangeListener registers a callback for leaf changes on every tag.
func (p *Project) AddOnChangeListener(cb func(tag.Change)) ListenerID {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	id := ListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&p.listenerCounter, 1)))
	p.listeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (p *Project) RemoveOnChangeListener(id ListenerID) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	delete(p.listeners, id)
}

func (p *Project) dispatch(c tag.Change) {
	p.listenersMu.RLock()
	listeners := make([]func(tag.Change), 0, len(p.listeners))
	for _, cb := range p.listeners {
		listeners = append(listeners, cb)
	}
	p.listenersMu.RUnlock()

	for _, cb := range listeners {
		cb(c)
	}
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Project", format, args...)
}
