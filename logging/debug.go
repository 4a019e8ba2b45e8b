// Package logging provides the debug and file loggers used across the engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// DebugLogger writes verbose, subsystem-tagged trace lines.
// It is intended for troubleshooting type resolution, radix parsing and
// definition loading; the core packages stay silent when no logger is set.
type DebugLogger struct {
	out     io.Writer
	closer  io.Closer
	mu      sync.Mutex
	closed  bool
	filters map[string]bool // Subsystem filters (empty = log all)
}

var globalDebugLogger *DebugLogger
var globalDebugMu sync.RWMutex

// Known subsystem names for filtering.
var knownSubsystems = []string{
	"logix",
	"radix",
	"datatype",
	"registry",
	"tag",
	"config",
	"project",
	"api",
	"publish",
	"mqtt",
	"kafka",
	"valkey",
	"tui",
	"debug",
}

// KnownSubsystems returns the subsystem names accepted by SetFilter.
func KnownSubsystems() []string {
	out := make([]string, len(knownSubsystems))
	copy(out, knownSubsystems)
	return out
}

// NewDebugLogger creates a debug logger that writes to the specified path.
// The file is truncated for each session.
func NewDebugLogger(path string) (*DebugLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open debug log file: %w", err)
	}

	logger := NewDebugWriter(file)
	logger.closer = file

	logger.Log("DEBUG", "Debug logging started - %s", time.Now().Format(time.RFC3339))
	logger.Log("DEBUG", "========================================")

	return logger, nil
}

// NewDebugWriter creates a debug logger over an arbitrary writer.
// Close does not close w.
func NewDebugWriter(w io.Writer) *DebugLogger {
	return &DebugLogger{
		out:     w,
		filters: make(map[string]bool),
	}
}

// SetFilter sets the subsystem filter.
// The filter is a comma-separated list matched case-insensitively; an empty
// string or "all" logs everything. "logix" also enables "radix", "datatype"
// also enables "registry" and "publish" enables each broker subsystem.
func (l *DebugLogger) SetFilter(filter string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.filters = make(map[string]bool)

	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "all") {
		return
	}

	for _, s := range strings.Split(filter, ",") {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		l.filters[s] = true
		switch s {
		case "logix":
			l.filters["radix"] = true
		case "datatype":
			l.filters["registry"] = true
		case "publish":
			l.filters["mqtt"] = true
			l.filters["kafka"] = true
			l.filters["valkey"] = true
		}
	}

	if len(l.filters) > 0 {
		list := make([]string, 0, len(l.filters))
		for s := range l.filters {
			list = append(list, s)
		}
		sort.Strings(list)
		fmt.Fprintf(l.out, "%s [DEBUG] Filtering enabled for subsystems: %s\n",
			timestamp(), strings.Join(list, ", "))
	}
}

// shouldLog must be called with l.mu held.
func (l *DebugLogger) shouldLog(subsystem string) bool {
	if len(l.filters) == 0 {
		return true
	}
	lower := strings.ToLower(subsystem)
	if lower == "debug" {
		return true
	}
	return l.filters[lower]
}

// SetGlobalDebugLogger sets the global debug logger instance.
func SetGlobalDebugLogger(logger *DebugLogger) {
	globalDebugMu.Lock()
	defer globalDebugMu.Unlock()
	globalDebugLogger = logger
}

// GetGlobalDebugLogger returns the global debug logger instance.
func GetGlobalDebugLogger() *DebugLogger {
	globalDebugMu.RLock()
	defer globalDebugMu.RUnlock()
	return globalDebugLogger
}

// Log writes a formatted message with timestamp and subsystem prefix.
func (l *DebugLogger) Log(subsystem, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || !l.shouldLog(subsystem) {
		return
	}

	fmt.Fprintf(l.out, "%s [%s] %s\n", timestamp(), subsystem, fmt.Sprintf(format, args...))
}

// LogBytes logs a labelled hex dump, e.g. the raw payload of an atomic value.
func (l *DebugLogger) LogBytes(subsystem, label string, data []byte) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || !l.shouldLog(subsystem) {
		return
	}

	fmt.Fprintf(l.out, "%s [%s] %s (%d bytes):\n", timestamp(), subsystem, label, len(data))
	fmt.Fprintf(l.out, "%s\n", hexDump(data))
}

// LogError logs an error with context.
func (l *DebugLogger) LogError(subsystem, context string, err error) {
	l.Log(subsystem, "ERROR in %s: %v", context, err)
}

// Close writes the footer and closes the underlying file, if any.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	fmt.Fprintf(l.out, "%s [DEBUG] Debug logging ended\n", timestamp())

	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}

// hexDump returns a hex dump of the data in a readable format.
// Format: offset: hex bytes   ASCII
//
//	0000: 26 00 00 00 00 00 00 00  00 00 00 00 00 00 00 00  &...............
func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}

	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("    %04X: ", offset))

		for i := 0; i < 16; i++ {
			if i == 8 {
				sb.WriteString(" ")
			}
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")

		for i := 0; i < 16 && offset+i < len(data); i++ {
			b := data[offset+i]
			if b >= 32 && b < 127 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// Global debug logging functions for use by the engine packages

// DebugLog logs a message if debug logging is enabled.
func DebugLog(subsystem, format string, args ...interface{}) {
	if logger := GetGlobalDebugLogger(); logger != nil {
		logger.Log(subsystem, format, args...)
	}
}

// DebugBytes logs a hex dump if debug logging is enabled.
func DebugBytes(subsystem, label string, data []byte) {
	if logger := GetGlobalDebugLogger(); logger != nil {
		logger.LogBytes(subsystem, label, data)
	}
}

// DebugError logs an error if debug logging is enabled.
func DebugError(subsystem, context string, err error) {
	if logger := GetGlobalDebugLogger(); logger != nil {
		logger.LogError(subsystem, context, err)
	}
}
