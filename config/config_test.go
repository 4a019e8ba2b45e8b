package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Namespace != "l5x" {
		t.Errorf("expected namespace l5x, got %s", cfg.Namespace)
	}
	if cfg.Web.Enabled {
		t.Error("expected web server disabled by default")
	}
	if cfg.Web.Port != 8080 || cfg.Web.Host != "127.0.0.1" {
		t.Errorf("unexpected web defaults %s:%d", cfg.Web.Host, cfg.Web.Port)
	}
	if cfg.Tags == nil || cfg.MQTT == nil || cfg.Valkey == nil || cfg.Kafka == nil {
		t.Error("expected initialized slices")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("returns default for nonexistent file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nonexistent.yaml")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Namespace != "l5x" {
			t.Error("expected default config")
		}
		if cfg.Web.SessionSecret == "" {
			t.Error("expected a generated session secret")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("Load created the missing file")
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nested", "test.yaml")

		cfg := &Config{
			Namespace:   "plant1",
			Definitions: []string{"types.yaml"},
			Tags: []TagConfig{
				{
					Name:        "Pump1",
					Type:        "Motor",
					Description: "north pump",
					Values:      map[string]string{"Speed": "1750.0", "Delay.PRE": "5000"},
					Comments:    map[string]string{"Pump1.Speed": "actual speed"},
					Publish:     true,
				},
				{Name: "Counts", Type: "DINT", Dimensions: "10", Radix: "Hex", Access: "Read Only"},
			},
			Web: WebConfig{Enabled: true, Host: "0.0.0.0", Port: 9090, SessionSecret: "secret"},
			MQTT: []MQTTConfig{
				{Name: "TestMQTT", Broker: "mqtt.local", Port: 1883, ClientID: "l5x"},
			},
			Valkey: []ValkeyConfig{
				{Name: "cache", Address: "localhost:6379", KeyTTL: time.Minute, PublishChanges: true},
			},
			Kafka: []KafkaConfig{
				{Name: "events", Brokers: []string{"k1:9092", "k2:9092"}, RequiredAcks: -1},
			},
			Debug: DebugConfig{Filter: "tag,publish", Verbose: true},
		}

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		opts := cmpopts.IgnoreUnexported(Config{})
		if diff := cmp.Diff(cfg, loaded, opts); diff != "" {
			t.Errorf("config mismatch (-saved +loaded):\n%s", diff)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.yaml")
		os.WriteFile(path, []byte("tags: [unclosed"), 0644)
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestLoadInlineTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
namespace: line4
types:
  - name: Motor
    members:
      - name: Speed
        type: REAL
tags:
  - name: M1
    type: Motor
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Types) != 1 || cfg.Types[0].Name != "Motor" || cfg.Types[0].Members[0].Type != "REAL" {
		t.Errorf("inline types not loaded: %+v", cfg.Types)
	}
	if cfg.FindTag("m1") == nil {
		t.Error("expected tag M1")
	}
}

func TestTagOperations(t *testing.T) {
	cfg := DefaultConfig()

	cfg.AddTag(TagConfig{Name: "Tag1", Type: "DINT"})
	cfg.AddTag(TagConfig{Name: "Tag2", Type: "TIMER"})

	if found := cfg.FindTag("TAG1"); found == nil || found.Type != "DINT" {
		t.Errorf("FindTag returned %+v", found)
	}
	if cfg.FindTag("Missing") != nil {
		t.Error("expected nil for a missing tag")
	}

	if !cfg.UpdateTag("tag2", TagConfig{Name: "Tag2", Type: "COUNTER"}) {
		t.Error("UpdateTag failed")
	}
	if cfg.FindTag("Tag2").Type != "COUNTER" {
		t.Error("UpdateTag did not apply")
	}

	if !cfg.RemoveTag("Tag1") || cfg.RemoveTag("Tag1") {
		t.Error("RemoveTag mismatch")
	}
	if len(cfg.Tags) != 1 {
		t.Errorf("expected 1 tag, got %d", len(cfg.Tags))
	}
}

func TestBrokerOperations(t *testing.T) {
	cfg := DefaultConfig()

	cfg.AddMQTT(MQTTConfig{Name: "m"})
	cfg.AddValkey(ValkeyConfig{Name: "v"})
	cfg.AddKafka(KafkaConfig{Name: "k"})

	if cfg.FindMQTT("m") == nil || cfg.FindValkey("v") == nil || cfg.FindKafka("k") == nil {
		t.Fatal("expected to find each broker")
	}
	if !cfg.RemoveMQTT("m") || !cfg.RemoveValkey("v") || !cfg.RemoveKafka("k") {
		t.Error("remove failed")
	}
	if cfg.RemoveMQTT("m") || cfg.RemoveValkey("v") || cfg.RemoveKafka("k") {
		t.Error("remove of a missing broker succeeded")
	}
}

func TestWebUserOperations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddWebUser(WebUser{Username: "admin", PasswordHash: "x", Role: RoleAdmin})

	if u := cfg.FindWebUser("admin"); u == nil || u.Role != RoleAdmin {
		t.Errorf("FindWebUser returned %+v", u)
	}
	if !cfg.RemoveWebUser("admin") || cfg.FindWebUser("admin") != nil {
		t.Error("RemoveWebUser failed")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errStr string
	}{
		{"valid", func(c *Config) { c.AddTag(TagConfig{Name: "Ok", Type: "DINT", Dimensions: "2 3"}) }, ""},
		{"bad namespace", func(c *Config) { c.Namespace = "has space" }, "invalid namespace"},
		{"bad tag name", func(c *Config) { c.AddTag(TagConfig{Name: "1Tag", Type: "DINT"}) }, "1Tag"},
		{"duplicate tag", func(c *Config) {
			c.AddTag(TagConfig{Name: "Tag", Type: "DINT"})
			c.AddTag(TagConfig{Name: "TAG", Type: "DINT"})
		}, "more than once"},
		{"missing type", func(c *Config) { c.AddTag(TagConfig{Name: "Tag"}) }, "no type"},
		{"bad dimensions", func(c *Config) { c.AddTag(TagConfig{Name: "Tag", Type: "DINT", Dimensions: "1 2 3 4"}) }, "Tag"},
		{"bad access", func(c *Config) { c.AddTag(TagConfig{Name: "Tag", Type: "DINT", Access: "sometimes"}) }, "Tag"},
		{"bad port", func(c *Config) { c.Web.Enabled = true; c.Web.Port = 0 }, "web port"},
		{"bad role", func(c *Config) { c.AddWebUser(WebUser{Username: "bob", Role: "root"}) }, "unknown role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errStr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errStr) {
				t.Errorf("expected error containing %q, got %v", tt.errStr, err)
			}
		})
	}
}

func TestDefinitionPaths(t *testing.T) {
	cfg := DefaultConfig()
	abs := filepath.Join(t.TempDir(), "abs.yaml")
	cfg.Definitions = []string{"types.yaml", abs}

	got := cfg.DefinitionPaths(filepath.Join("etc", "l5x", "config.yaml"))
	want := []string{filepath.Join("etc", "l5x", "types.yaml"), abs}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeListeners(t *testing.T) {
	cfg := DefaultConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")

	var wg sync.WaitGroup
	wg.Add(1)
	id := cfg.AddOnChangeListener(func() { wg.Done() })

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not called")
	}

	cfg.RemoveOnChangeListener(id)
	cfg.Lock()
	cfg.Namespace = "changed"
	if err := cfg.UnlockAndSave(path); err != nil {
		t.Fatalf("UnlockAndSave failed: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	if !strings.HasSuffix(path, filepath.Join(".l5x", "config.yaml")) && path != "config.yaml" {
		t.Errorf("unexpected default path %s", path)
	}
}
