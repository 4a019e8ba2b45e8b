package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewFileLogger(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("creates new file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test1.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Error("log file was not created")
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test2.log")
		if err := os.WriteFile(path, []byte("existing content\n"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log("new content")
		logger.Close()

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "existing content") {
			t.Error("existing content was overwritten")
		}
		if !strings.Contains(string(content), "new content") {
			t.Error("new content was not appended")
		}
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		_, err := NewFileLogger("/nonexistent/directory/file.log")
		if err == nil {
			t.Error("expected error for invalid path")
		}
	})
}

func TestFileLogger_Prefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.WithPrefix("[api]").Log("GET %s", "/types")
	logger.Close()
	logger.WithPrefix("[api]").Log("should not appear")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	str := string(content)
	if !strings.Contains(str, "[api] GET /types") {
		t.Errorf("expected prefixed message, got: %s", str)
	}
	if strings.Contains(str, "should not appear") {
		t.Error("derived logger wrote after close")
	}
}

func TestFileLogger_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Log("message from goroutine %d", n)
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestDebugLogger_Filter(t *testing.T) {
	tests := []struct {
		filter    string
		subsystem string
		want      bool
	}{
		{"", "tag", true},
		{"all", "datatype", true},
		{"tag", "tag", true},
		{"tag", "radix", false},
		{"logix", "radix", true},
		{"datatype", "registry", true},
		{"TAG, api", "api", true},
		{"tag", "debug", true},
	}

	for _, tc := range tests {
		t.Run(tc.filter+"/"+tc.subsystem, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewDebugWriter(&buf)
			logger.SetFilter(tc.filter)
			buf.Reset()

			logger.Log(tc.subsystem, "hello")
			got := strings.Contains(buf.String(), "hello")
			if got != tc.want {
				t.Errorf("filter %q subsystem %q logged = %v, want %v", tc.filter, tc.subsystem, got, tc.want)
			}
		})
	}
}

func TestDebugLogger_LogBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugWriter(&buf)

	logger.LogBytes("logix", "DINT payload", []byte{0x26, 0x00, 0x00, 0x00})
	out := buf.String()

	if !strings.Contains(out, "DINT payload (4 bytes)") {
		t.Errorf("missing label: %s", out)
	}
	if !strings.Contains(out, "0000: 26 00 00 00") {
		t.Errorf("missing hex dump: %s", out)
	}
	if !strings.Contains(out, "&...") {
		t.Errorf("missing ascii column: %s", out)
	}
}

func TestDebugLogger_NilSafe(t *testing.T) {
	var logger *DebugLogger
	logger.Log("tag", "ignored")
	logger.SetFilter("tag")
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}

	SetGlobalDebugLogger(nil)
	DebugLog("tag", "no logger installed")
}

func TestHexDump(t *testing.T) {
	if got := hexDump(nil); got != "    (empty)" {
		t.Errorf("hexDump(nil) = %q", got)
	}

	data := make([]byte, 20)
	lines := strings.Split(hexDump(data), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "    0010: ") {
		t.Errorf("second line offset = %q", lines[1])
	}
}
