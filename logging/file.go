package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLogger appends operator-facing messages to a file.
// It is safe for concurrent use; the API server logs from request goroutines.
type FileLogger struct {
	sink   *fileSink
	prefix string
}

type fileSink struct {
	file   *os.File
	mu     sync.Mutex
	closed bool
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileLogger{sink: &fileSink{file: file}}, nil
}

// WithPrefix returns a logger sharing the same file that tags every line
// with prefix, e.g. "[api]".
func (l *FileLogger) WithPrefix(prefix string) *FileLogger {
	return &FileLogger{sink: l.sink, prefix: prefix}
}

// Log writes a timestamped line.
func (l *FileLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = l.prefix + " " + msg
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.closed {
		return
	}
	fmt.Fprintf(l.sink.file, "%s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), msg)
}

// Close closes the log file for this logger and every logger derived from it.
func (l *FileLogger) Close() error {
	if l == nil {
		return nil
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.closed {
		return nil
	}

	l.sink.closed = true
	return l.sink.file.Close()
}
