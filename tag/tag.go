// Package tag binds data type trees to named tags and resolves member paths
// inside them.
package tag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/tagname"
)

// ListenerID identifies a registered change listener.
type ListenerID string

// Change describes one atomic leaf of a tag taking a new value.
type Change struct {
	Tag       *Tag
	Name      tagname.TagName // Full path of the leaf, root included
	Value     *logix.Atomic   // Copy of the new value
	Timestamp time.Time
}

// Tag owns a data type tree under a name. Member comments are kept per tag
// name, apart from the tag's own description.
//
// The tree is not synchronized. Listeners are.
type Tag struct {
	root        *datatype.Member
	description string
	comments    map[string]comment

	listeners       map[ListenerID]func(Change)
	listenersMu     sync.RWMutex
	listenerCounter uint64
}

type comment struct {
	name tagname.TagName
	text string
}

// Option configures New.
type Option func(*datatype.Member)

// WithAccess sets the tag's external access.
func WithAccess(a datatype.Access) Option {
	return func(m *datatype.Member) { m.Access = a }
}

// WithDescription sets the tag's description.
func WithDescription(desc string) Option {
	return func(m *datatype.Member) { m.Description = desc }
}

// WithRadix sets the radix of an atomic tag.
func WithRadix(r logix.Radix) Option {
	return func(m *datatype.Member) { m.Radix = r }
}

// New creates a tag named name that owns t. The caller must not keep using t
// through other owners.
func New(name string, t datatype.DataType, opts ...Option) (*Tag, error) {
	if err := datatype.ValidateName(name); err != nil {
		return nil, err
	}

	var memberOpts []datatype.MemberOption
	applied := &datatype.Member{Access: datatype.ReadWrite}
	for _, opt := range opts {
		opt(applied)
	}
	if applied.Radix != logix.Null {
		memberOpts = append(memberOpts, datatype.WithRadix(applied.Radix))
	}
	memberOpts = append(memberOpts, datatype.WithAccess(applied.Access))

	root, err := datatype.NewMember(name, t, memberOpts...)
	if err != nil {
		return nil, err
	}

	tag := &Tag{
		root:        root,
		description: strings.TrimSpace(applied.Description),
		comments:    make(map[string]comment),
		listeners:   make(map[ListenerID]func(Change)),
	}
	tag.hook(root.Type, tag.Name())

	debugLog("New tag %s of type %s", name, t.Name())
	return tag, nil
}

// NewOf creates a tag of the named type from the registry. Arrays are
// created when dims is not empty, and a radix option then applies to every
// element.
func NewOf(r *datatype.Registry, name, typeName string, dims datatype.Dimensions, opts ...Option) (*Tag, error) {
	var t datatype.DataType
	if dims.IsEmpty() {
		t = r.New(typeName)
	} else {
		applied := &datatype.Member{}
		for _, opt := range opts {
			opt(applied)
		}
		var elemOpts []datatype.MemberOption
		if applied.Radix != logix.Null {
			elemOpts = append(elemOpts, datatype.WithRadix(applied.Radix))
		}
		arr, err := r.NewArray(typeName, dims, elemOpts...)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", name, err)
		}
		t = arr
	}
	return New(name, t, opts...)
}

// Name returns the tag name.
func (t *Tag) Name() tagname.TagName { return tagname.TagName(t.root.Name) }

// DataType returns the tree owned by the tag.
func (t *Tag) DataType() datatype.DataType { return t.root.Type }

// Access returns the tag's external access.
func (t *Tag) Access() datatype.Access { return t.root.Access }

// Dimensions returns the extents of an array tag.
func (t *Tag) Dimensions() datatype.Dimensions { return t.root.Dimensions() }

// Radix returns the tag's radix, Null for composite tags.
func (t *Tag) Radix() logix.Radix { return t.root.Radix }

// Description returns the tag's own description.
func (t *Tag) Description() string {
	return t.description
}

// SetDescription replaces the tag's own description.
func (t *Tag) SetDescription(desc string) {
	t.description = strings.TrimSpace(desc)
}

// Comment returns the explicit comment for a member path, or "".
func (t *Tag) Comment(name tagname.TagName) string {
	return t.comments[name.Key()].text
}

// HasComment reports whether name carries an explicit comment.
func (t *Tag) HasComment(name tagname.TagName) bool {
	_, ok := t.comments[name.Key()]
	return ok
}

// SetComment sets the comment on a member path. Blank text removes it.
func (t *Tag) SetComment(name tagname.TagName, text string) {
	if strings.TrimSpace(text) == "" {
		delete(t.comments, name.Key())
		return
	}
	t.comments[name.Key()] = comment{name: name, text: text}
}

// Comments returns the explicit comments keyed by path.
func (t *Tag) Comments() map[tagname.TagName]string {
	out := make(map[tagname.TagName]string, len(t.comments))
	for _, c := range t.comments {
		out[c.name] = c.text
	}
	return out
}

// CommentNames returns the commented paths sorted without case.
func (t *Tag) CommentNames() []tagname.TagName {
	names := make([]tagname.TagName, 0, len(t.comments))
	for _, c := range t.comments {
		names = append(names, c.name)
	}
	sort.Slice(names, func(i, j int) bool { return tagname.Compare(names[i], names[j]) < 0 })
	return names
}

// Root returns the bound member for the tag itself.
func (t *Tag) Root() *Member {
	return &Member{member: t.root, tag: t}
}

// Member resolves path relative to the tag or as an absolute path starting
// with the tag name.
func (t *Tag) Member(path tagname.TagName) (*Member, error) {
	return t.Root().Member(path)
}

// Members returns the bound top-level members.
func (t *Tag) Members() []*Member {
	return t.Root().Members()
}

// TagNames returns the full path of every descendant.
func (t *Tag) TagNames() []tagname.TagName {
	return t.Root().TagNames()
}

// Value returns the native value of an atomic or string tag.
func (t *Tag) Value() interface{} {
	return t.Root().Value()
}

// Rebind reinstalls change hooks after structural edits to the tree.
func (t *Tag) Rebind() {
	t.hook(t.root.Type, t.Name())
}

// AddMember appends m to the structure at parent and rebinds the tree so the
// new leaves raise changes.
func (t *Tag) AddMember(parent tagname.TagName, m *datatype.Member) (*Member, error) {
	owner, err := t.Member(parent)
	if err != nil {
		return nil, err
	}
	s, ok := owner.DataType().(*datatype.Structure)
	if !ok || s.Class() != datatype.ClassUser {
		return nil, &errs.UnsupportedKindError{Kind: owner.DataType().Name(), Format: "member"}
	}
	if err := s.Add(m); err != nil {
		return nil, err
	}
	t.Rebind()
	debugLog("Added member %s to %s", m.Name, owner.TagName())
	return owner.Member(tagname.TagName(m.Name))
}

// hook attaches change hooks to every atomic leaf under dt.
func (t *Tag) hook(dt datatype.DataType, name tagname.TagName) {
	if a, ok := dt.(*datatype.Atomic); ok {
		leaf := name
		a.OnChange(func(v *logix.Atomic) { t.notify(leaf, v) })
		return
	}
	for _, m := range dt.Members() {
		t.hook(m.Type, tagname.Concat(name, tagname.TagName(m.Name)))
	}
}

// AddOnChangeListener registers a callback for leaf changes. The callback
// runs on the goroutine that made the change.
func (t *Tag) AddOnChangeListener(cb func(Change)) ListenerID {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	id := ListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&t.listenerCounter, 1)))
	t.listeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (t *Tag) RemoveOnChangeListener(id ListenerID) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	delete(t.listeners, id)
}

func (t *Tag) notify(name tagname.TagName, v *logix.Atomic) {
	t.listenersMu.RLock()
	listeners := make([]func(Change), 0, len(t.listeners))
	for _, cb := range t.listeners {
		listeners = append(listeners, cb)
	}
	t.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	change := Change{Tag: t, Name: name, Value: v.Clone(), Timestamp: time.Now()}
	debugLogVerbose("Change %s = %s", name, v)
	for _, cb := range listeners {
		cb(change)
	}
}

// String returns the tag name and type, e.g. "Timer1 (TIMER)".
func (t *Tag) String() string {
	return fmt.Sprintf("%s (%s)", t.root.Name, t.root.Type.Name())
}

var verboseLogging bool

// SetVerboseLogging enables logging of every leaf change.
func SetVerboseLogging(enabled bool) {
	verboseLogging = enabled
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Tag", format, args...)
}

func debugLogVerbose(format string, args ...interface{}) {
	if verboseLogging {
		logging.DebugLog("Tag", format, args...)
	}
}

// notAtomic reports a value operation on a composite member.
func notAtomic(m *Member) error {
	return &errs.UnsupportedKindError{Kind: m.member.Type.Name(), Format: "atomic value"}
}
