package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/tag"
)

// SSE event type constants.
const (
	eventValueChange = "value-change"
)

// sseEvent is an internal event for the API SSE hub.
type sseEvent struct {
	Type string
	Tag  string // set when event is tag-specific (for filtering)
	Data interface{}
}

type apiSSEClient struct {
	id     string
	events chan sseEvent
}

// eventHub manages SSE client connections and broadcasts events.
type eventHub struct {
	clients    map[string]*apiSSEClient
	register   chan *apiSSEClient
	unregister chan *apiSSEClient
	broadcast  chan sseEvent
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
	counter    uint64
}

func newEventHub() *eventHub {
	hub := &eventHub{
		clients:    make(map[string]*apiSSEClient),
		register:   make(chan *apiSSEClient),
		unregister: make(chan *apiSSEClient),
		broadcast:  make(chan sseEvent, 256),
		done:       make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *eventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.events)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.events <- event:
				default:
					logging.DebugLog("api-sse", "client %s buffer full, dropping %s event", client.id, event.Type)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.events)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues an event for every client without blocking.
func (h *eventHub) Broadcast(event sseEvent) {
	select {
	case h.broadcast <- event:
	default:
		logging.DebugLog("api-sse", "broadcast channel full, dropping %s event", event.Type)
	}
}

func (h *eventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// join registers a client, returning false once the hub has stopped.
func (h *eventHub) join(client *apiSSEClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *eventHub) leave(client *apiSSEClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// splitFilter parses a comma separated query value into a lower-cased set.
func splitFilter(value string) map[string]bool {
	if value == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = true
		}
	}
	return set
}

// handleSSE serves the /events stream. Query parameters "types" and "tags"
// restrict the events sent.
func (h *handlers) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	typeFilter := splitFilter(r.URL.Query().Get("types"))
	tagFilter := splitFilter(r.URL.Query().Get("tags"))

	client := &apiSSEClient{
		id:     fmt.Sprintf("api-%d", atomic.AddUint64(&h.hub.counter, 1)),
		events: make(chan sseEvent, 64),
	}
	if !h.hub.join(client) {
		http.Error(w, "event stream stopped", http.StatusServiceUnavailable)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"id\":%q}\n\n", client.id)
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.hub.leave(client)
			return

		case event, ok := <-client.events:
			if !ok {
				return
			}
			if typeFilter != nil && !typeFilter[event.Type] {
				continue
			}
			if tagFilter != nil && event.Tag != "" && !tagFilter[strings.ToLower(event.Tag)] {
				continue
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, string(data))
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// setupSSE broadcasts project value changes to the SSE hub. The returned
// function removes the listener and stops the hub.
func (h *handlers) setupSSE() func() {
	p := h.backend.GetProject()

	h.changeListenerID = p.AddOnChangeListener(func(c tag.Change) {
		info := project.DescribeChange(c)
		h.hub.Broadcast(sseEvent{
			Type: eventValueChange,
			Tag:  info.Tag,
			Data: info,
		})
	})

	return func() {
		p.RemoveOnChangeListener(h.changeListenerID)
		h.hub.Stop()
	}
}
