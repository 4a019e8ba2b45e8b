package project

import (
	"time"

	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tagname"
)

// MemberInfo is a detached description of a bound member suitable for JSON
// encoding and display.
type MemberInfo struct {
	Name        string      `json:"name"`
	TagName     string      `json:"tagName"`
	DataType    string      `json:"dataType"`
	Class       string      `json:"class"`
	Dimensions  string      `json:"dimensions,omitempty"`
	Radix       string      `json:"radix"`
	Access      string      `json:"access"`
	Description string      `json:"description,omitempty"`
	Value       interface{} `json:"value,omitempty"`
	Text        string      `json:"text,omitempty"`
	Members     []string    `json:"members,omitempty"`
}

// Describe captures the current state of m.
func Describe(m *tag.Member) MemberInfo {
	info := MemberInfo{
		Name:        m.Name(),
		TagName:     m.TagName().String(),
		DataType:    m.DataType().Name(),
		Class:       m.DataType().Class().String(),
		Radix:       m.Radix().String(),
		Access:      m.Access().String(),
		Description: m.Description(),
		Value:       m.Value(),
	}
	if dims := m.Dimensions(); !dims.IsEmpty() {
		info.Dimensions = dims.String()
	}
	if text, err := m.Text(); err == nil {
		info.Text = text
	}
	for _, c := range m.Members() {
		info.Members = append(info.Members, c.Name())
	}
	return info
}

// ChangeInfo is a detached tag change.
type ChangeInfo struct {
	Tag       string      `json:"tag"`
	TagName   string      `json:"tagName"`
	DataType  string      `json:"dataType"`
	Value     interface{} `json:"value"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// DescribeChange converts c, rendering the value in the leaf's radix.
func DescribeChange(c tag.Change) ChangeInfo {
	info := ChangeInfo{
		Tag:       c.Tag.Name().String(),
		TagName:   c.Name.String(),
		DataType:  c.Value.Name(),
		Value:     c.Value.Value(),
		Timestamp: c.Timestamp,
	}
	radix := c.Value.Radix()
	if m, err := c.Tag.Member(c.Name); err == nil {
		radix = m.Radix()
	}
	if text, err := c.Value.ToText(radix); err == nil {
		info.Text = text
	} else {
		info.Text = c.Value.String()
	}
	return info
}

// Names returns the full paths of every member of every tag.
func (p *Project) Names() []tagname.TagName {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []tagname.TagName
	for _, key := range p.order {
		t := p.tags[key]
		out = append(out, t.Name())
		out = append(out, t.TagNames()...)
	}
	return out
}
