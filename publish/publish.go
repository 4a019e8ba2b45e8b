// Package publish turns tag member changes into broker messages and routes
// write requests from brokers back into the project.
package publish

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tagname"
)

// Message is the payload published for one atomic member.
type Message struct {
	Namespace string      `json:"namespace"`
	Tag       string      `json:"tag"`
	Member    string      `json:"member"`
	Type      string      `json:"type"`
	Value     interface{} `json:"value"`
	Text      string      `json:"text"`
	Writable  bool        `json:"writable"`
	Timestamp time.Time   `json:"timestamp"`
}

// WriteRequest asks for a member to take a new value. Value may be a JSON
// number, bool or string in any radix the member's kind accepts.
type WriteRequest struct {
	Member string      `json:"member"`
	Value  interface{} `json:"value"`
}

// WriteResponse reports the outcome of a WriteRequest.
type WriteResponse struct {
	Member    string      `json:"member"`
	Value     interface{} `json:"value"`
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WriteHandler applies a write request's text to a member.
type WriteHandler func(member, text string) error

// Sink receives messages for delivery to one kind of broker.
type Sink interface {
	Publish(msg Message, force bool)
}

// MaxQueueSize is the number of pending messages held before new ones are
// dropped.
const MaxQueueSize = 1000

// Hub listens to a project and fans messages for published tags out to its
// sinks from a single worker.
type Hub struct {
	namespace string
	project   *project.Project

	mu        sync.RWMutex
	sinks     []Sink
	published map[string]bool
	listener  project.ListenerID
	running   bool

	queue    chan Message
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewHub creates a hub for the tags marked for publishing in cfg.
func NewHub(p *project.Project, cfg *config.Config) *Hub {
	h := &Hub{
		namespace: cfg.Namespace,
		project:   p,
		published: make(map[string]bool),
	}
	for _, tc := range cfg.Tags {
		if tc.Publish {
			h.published[strings.ToLower(tc.Name)] = true
		}
	}
	return h
}

// AddSink registers a destination for messages.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// SetPublished marks a tag for publishing or stops publishing it.
func (h *Hub) SetPublished(name string, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if enabled {
		h.published[strings.ToLower(name)] = true
	} else {
		delete(h.published, strings.ToLower(name))
	}
}

// IsPublished reports whether changes to the tag called name are published.
func (h *Hub) IsPublished(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published[strings.ToLower(name)]
}

// Start subscribes to project changes and starts the delivery worker.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.queue = make(chan Message, MaxQueueSize)
	h.stopChan = make(chan struct{})
	h.mu.Unlock()

	h.wg.Add(1)
	go h.worker(h.queue, h.stopChan)

	id := h.project.AddOnChangeListener(h.onChange)
	h.mu.Lock()
	h.listener = id
	h.mu.Unlock()
	debugLog("Hub started for namespace %s", h.namespace)
}

// Stop unsubscribes and stops the delivery worker. Queued messages are
// dropped.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	id := h.listener
	stop := h.stopChan
	h.mu.Unlock()

	h.project.RemoveOnChangeListener(id)
	close(stop)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		debugLog("Timeout waiting for publish worker to stop")
	}
}

func (h *Hub) worker(queue chan Message, stop chan struct{}) {
	defer h.wg.Done()
	for {
		select {
		case <-stop:
			return
		case msg := <-queue:
			h.deliver(msg, false)
		}
	}
}

func (h *Hub) deliver(msg Message, force bool) {
	h.mu.RLock()
	sinks := make([]Sink, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.RUnlock()

	for _, s := range sinks {
		s.Publish(msg, force)
	}
}

// onChange runs on the goroutine that changed the value and must not block.
func (h *Hub) onChange(c tag.Change) {
	if !h.IsPublished(c.Tag.Name().String()) {
		return
	}
	msg := h.message(c)

	h.mu.RLock()
	queue := h.queue
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	select {
	case queue <- msg:
	default:
		debugLog("Publish queue full, dropping %s", msg.Member)
	}
}

func (h *Hub) message(c tag.Change) Message {
	info := project.DescribeChange(c)
	writable := false
	if m, err := c.Tag.Member(c.Name); err == nil {
		writable = m.Access() == datatype.ReadWrite
	}
	return Message{
		Namespace: h.namespace,
		Tag:       info.Tag,
		Member:    info.TagName,
		Type:      info.DataType,
		Value:     info.Value,
		Text:      info.Text,
		Writable:  writable,
		Timestamp: info.Timestamp.UTC(),
	}
}

// Snapshot returns a message for every atomic member of every published tag.
func (h *Hub) Snapshot() []Message {
	var out []Message
	now := time.Now().UTC()
	for _, t := range h.project.Tags() {
		if !h.IsPublished(t.Name().String()) {
			continue
		}
		for _, name := range append([]tagname.TagName{t.Name()}, t.TagNames()...) {
			info, err := h.project.View(name)
			if err != nil || info.Members != nil || info.Value == nil {
				continue
			}
			if _, isString := info.Value.(string); isString {
				continue
			}
			out = append(out, Message{
				Namespace: h.namespace,
				Tag:       t.Name().String(),
				Member:    info.TagName,
				Type:      info.DataType,
				Value:     info.Value,
				Text:      info.Text,
				Writable:  info.Access == datatype.ReadWrite.String(),
				Timestamp: now,
			})
		}
	}
	return out
}

// PublishAll sends the current value of every published member to every
// sink, bypassing change detection. Publishers call it after connecting.
func (h *Hub) PublishAll() int {
	msgs := h.Snapshot()
	for _, msg := range msgs {
		h.deliver(msg, true)
	}
	debugLog("Published %d members", len(msgs))
	return len(msgs)
}

// Write applies a write request to a published, writable member.
func (h *Hub) Write(member, text string) error {
	name, err := tagname.Parse(member)
	if err != nil {
		return err
	}
	if !h.IsPublished(name.Members()[0]) {
		return fmt.Errorf("tag not published: %s", name.Members()[0])
	}
	info, err := h.project.View(name)
	if err != nil {
		return err
	}
	if info.Access != datatype.ReadWrite.String() {
		return fmt.Errorf("member not writable: %s (%s)", member, info.Access)
	}
	_, err = h.project.SetValue(name, text)
	return err
}

// ValueText converts a decoded JSON value into text a member can parse.
func ValueText(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10), nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("no value to write")
	}
	return "", fmt.Errorf("unsupported value type: %T", v)
}

// HandleWrite runs req through handler and builds the response.
func HandleWrite(handler WriteHandler, req WriteRequest) WriteResponse {
	resp := WriteResponse{
		Member:    req.Member,
		Value:     req.Value,
		Timestamp: time.Now().UTC(),
	}

	text, err := ValueText(req.Value)
	switch {
	case err != nil:
	case handler == nil:
		err = fmt.Errorf("no write handler configured")
	default:
		err = handler(req.Member, text)
	}

	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Success = true
	}
	debugLog("Write %s = %v -> success=%v", req.Member, req.Value, resp.Success)
	return resp
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Publish", format, args...)
}
