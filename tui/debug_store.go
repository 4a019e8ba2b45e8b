package tui

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnunnink/LogixHelper/logging"
)

// LogMessage represents a single log entry in the debug store.
type LogMessage struct {
	Timestamp time.Time
	Message   string
}

// DebugStoreListenerID is a unique identifier for a debug store subscriber.
type DebugStoreListenerID string

// DebugLogStore keeps the most recent debug lines for the Debug tab. It is an
// io.Writer so a logging.DebugLogger can write straight into it.
type DebugLogStore struct {
	messages    []LogMessage
	mu          sync.RWMutex
	maxLines    int
	partial     string
	listeners   map[DebugStoreListenerID]func(LogMessage)
	listenersMu sync.RWMutex
	counter     uint64
	fileLogger  *logging.FileLogger
}

// NewDebugLogStore creates a store holding at most maxLines messages.
func NewDebugLogStore(maxLines int) *DebugLogStore {
	if maxLines <= 0 {
		maxLines = 1000
	}
	return &DebugLogStore{
		maxLines:  maxLines,
		listeners: make(map[DebugStoreListenerID]func(LogMessage)),
	}
}

// Write splits p into lines and logs each complete one.
func (s *DebugLogStore) Write(p []byte) (int, error) {
	s.mu.Lock()
	text := s.partial + string(p)
	lines := strings.Split(text, "\n")
	s.partial = lines[len(lines)-1]
	s.mu.Unlock()

	for _, line := range lines[:len(lines)-1] {
		if line != "" {
			s.Log("%s", line)
		}
	}
	return len(p), nil
}

// Log adds a message to the store and notifies all subscribers.
func (s *DebugLogStore) Log(format string, args ...interface{}) {
	msg := LogMessage{
		Timestamp: time.Now(),
		Message:   fmt.Sprintf(format, args...),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.maxLines {
		s.messages = s.messages[len(s.messages)-s.maxLines:]
	}
	fileLogger := s.fileLogger
	s.mu.Unlock()

	if fileLogger != nil {
		fileLogger.Log("%s", msg.Message)
	}

	s.listenersMu.RLock()
	listeners := make([]func(LogMessage), 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.listenersMu.RUnlock()

	for _, cb := range listeners {
		go cb(msg)
	}
}

// Subscribe registers a callback to receive new log messages.
func (s *DebugLogStore) Subscribe(cb func(LogMessage)) DebugStoreListenerID {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := DebugStoreListenerID(fmt.Sprintf("debug-%d", atomic.AddUint64(&s.counter, 1)))
	s.listeners[id] = cb
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (s *DebugLogStore) Unsubscribe(id DebugStoreListenerID) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	delete(s.listeners, id)
}

// GetMessages returns a copy of all messages in the store.
func (s *DebugLogStore) GetMessages() []LogMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]LogMessage, len(s.messages))
	copy(result, s.messages)
	return result
}

// MaxLines returns the store capacity.
func (s *DebugLogStore) MaxLines() int { return s.maxLines }

// Clear removes all messages from the store.
func (s *DebugLogStore) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// SetFileLogger mirrors every message to logger.
func (s *DebugLogStore) SetFileLogger(logger *logging.FileLogger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileLogger = logger
}
