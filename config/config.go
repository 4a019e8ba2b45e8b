// Package config handles configuration persistence for the l5x tool.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logging"

	"gopkg.in/yaml.v3"
)

// ConfigListenerID is a unique identifier for a config change listener.
type ConfigListenerID string

// Config holds the complete application configuration.
type Config struct {
	Namespace   string                `yaml:"namespace"`             // Root of published topics and keys
	Definitions []string              `yaml:"definitions,omitempty"` // Paths of YAML type definition files
	Types       []datatype.Definition `yaml:"types,omitempty"`       // Inline type definitions
	Tags        []TagConfig           `yaml:"tags"`
	Web         WebConfig             `yaml:"web"`
	MQTT        []MQTTConfig          `yaml:"mqtt"`
	Valkey      []ValkeyConfig        `yaml:"valkey,omitempty"`
	Kafka       []KafkaConfig         `yaml:"kafka,omitempty"`
	Debug       DebugConfig           `yaml:"debug,omitempty"`
	UI          UIConfig              `yaml:"ui,omitempty"`

	// Data mutex protects all config fields against concurrent access.
	// Callers that modify config should Lock(), modify, then call UnlockAndSave().
	// Save() acquires the lock internally for callers that don't hold it.
	dataMu sync.Mutex `yaml:"-"`

	// Change listeners (not serialized)
	changeListeners map[ConfigListenerID]func() `yaml:"-"`
	listenersMu     sync.RWMutex                `yaml:"-"`
	listenerCounter uint64                      `yaml:"-"`
}

// TagConfig declares a tag, its type and its initial values.
type TagConfig struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Dimensions  string            `yaml:"dimensions,omitempty"` // "10" or "2 3"
	Description string            `yaml:"description,omitempty"`
	Access      string            `yaml:"access,omitempty"` // Read/Write (default), Read Only, None
	Radix       string            `yaml:"radix,omitempty"`  // Atomic tags only
	Values      map[string]string `yaml:"values,omitempty"` // Member path -> value text
	Comments    map[string]string `yaml:"comments,omitempty"`
	Publish     bool              `yaml:"publish,omitempty"` // Publish changes to the brokers
}

// DebugConfig controls the debug log.
type DebugConfig struct {
	Filter  string `yaml:"filter,omitempty"` // Comma-separated subsystems
	Verbose bool   `yaml:"verbose,omitempty"`
}

// UIConfig stores terminal browser preferences.
type UIConfig struct {
	Theme     string `yaml:"theme,omitempty"`
	ASCIIMode bool   `yaml:"ascii_mode,omitempty"` // Use ASCII characters for borders (for terminals without Unicode)
}

// WebConfig holds web server configuration.
type WebConfig struct {
	Enabled       bool      `yaml:"enabled"`
	Host          string    `yaml:"host"`
	Port          int       `yaml:"port"`
	SessionSecret string    `yaml:"session_secret,omitempty"`
	Users         []WebUser `yaml:"users,omitempty"`
}

// WebUser represents an API user.
type WebUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Role         string `yaml:"role"`          // "admin" or "viewer"
}

// Web user roles
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// MQTTConfig holds MQTT publisher configuration.
type MQTTConfig struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	ClientID string `yaml:"client_id"`
	Selector string `yaml:"selector,omitempty"` // Optional sub-namespace
	UseTLS   bool   `yaml:"use_tls,omitempty"`
}

// ValkeyConfig holds Valkey/Redis publisher configuration.
type ValkeyConfig struct {
	Name            string        `yaml:"name"`
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"` // host:port format
	Password        string        `yaml:"password,omitempty"`
	Database        int           `yaml:"database"`           // Redis DB number (default 0)
	Selector        string        `yaml:"selector,omitempty"` // Optional sub-namespace
	UseTLS          bool          `yaml:"use_tls,omitempty"`
	KeyTTL          time.Duration `yaml:"key_ttl,omitempty"`          // TTL for keys (0 = no expiry)
	PublishChanges  bool          `yaml:"publish_changes,omitempty"`  // Publish to Pub/Sub on changes
	EnableWriteback bool          `yaml:"enable_writeback,omitempty"` // Accept writes from the write queue
}

// KafkaConfig holds Kafka cluster configuration for YAML persistence.
// AutoCreateTopics is a pointer so an unset value can default to true.
type KafkaConfig struct {
	Name             string        `yaml:"name"`
	Enabled          bool          `yaml:"enabled"`
	Brokers          []string      `yaml:"brokers"`
	UseTLS           bool          `yaml:"use_tls,omitempty"`
	TLSSkipVerify    bool          `yaml:"tls_skip_verify,omitempty"`
	SASLMechanism    string        `yaml:"sasl_mechanism,omitempty"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username         string        `yaml:"username,omitempty"`
	Password         string        `yaml:"password,omitempty"`
	RequiredAcks     int           `yaml:"required_acks,omitempty"` // -1=all, 0=none, 1=leader
	MaxRetries       int           `yaml:"max_retries,omitempty"`
	RetryBackoff     time.Duration `yaml:"retry_backoff,omitempty"`
	Selector         string        `yaml:"selector,omitempty"`           // Optional sub-namespace
	AutoCreateTopics *bool         `yaml:"auto_create_topics,omitempty"` // Auto-create topics if they don't exist (default true)
	EnableWriteback  bool          `yaml:"enable_writeback,omitempty"`   // Consume write requests
	ConsumerGroup    string        `yaml:"consumer_group,omitempty"`     // Defaults to {ns}[-{sel}]-writer
	WriteMaxAge      time.Duration `yaml:"write_max_age,omitempty"`      // Older write requests are skipped (default 2s)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "l5x",
		Tags:      []TagConfig{},
		Web: WebConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8080,
		},
		MQTT:   []MQTTConfig{},
		Valkey: []ValkeyConfig{},
		Kafka:  []KafkaConfig{},
	}
}

// DefaultPath returns the default configuration file path (~/.l5x/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".l5x", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults without creating it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		debugLog("No config at %s, using defaults", path)
		cfg.ensureSessionSecret()
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Generate session secret if not already set (needed for API logins)
	if cfg.ensureSessionSecret() && cfg.Web.Enabled {
		if err := cfg.Save(path); err != nil {
			debugLog("Failed to persist session secret: %v", err)
		}
	}

	debugLog("Loaded %s: %d tags, %d definition files", path, len(cfg.Tags), len(cfg.Definitions))
	return cfg, nil
}

func (c *Config) ensureSessionSecret() bool {
	if c.Web.SessionSecret != "" {
		return false
	}
	secret := make([]byte, 32)
	rand.Read(secret)
	c.Web.SessionSecret = base64.StdEncoding.EncodeToString(secret)
	return true
}

// DefinitionPaths returns the definition file paths resolved against the
// directory of the config file.
func (c *Config) DefinitionPaths(configPath string) []string {
	dir := filepath.Dir(configPath)
	out := make([]string, len(c.Definitions))
	for i, p := range c.Definitions {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(dir, p)
		}
	}
	return out
}

// AddOnChangeListener registers a callback to be called when the config is saved.
// Returns an ID that can be used to remove the listener later.
func (c *Config) AddOnChangeListener(cb func()) ConfigListenerID {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	if c.changeListeners == nil {
		c.changeListeners = make(map[ConfigListenerID]func())
	}

	id := ConfigListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&c.listenerCounter, 1)))
	c.changeListeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (c *Config) RemoveOnChangeListener(id ConfigListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	delete(c.changeListeners, id)
}

// notifyChangeListeners calls all registered change listeners.
func (c *Config) notifyChangeListeners() {
	c.listenersMu.RLock()
	listeners := make([]func(), 0, len(c.changeListeners))
	for _, cb := range c.changeListeners {
		listeners = append(listeners, cb)
	}
	c.listenersMu.RUnlock()

	// Call listeners outside the lock to avoid deadlocks
	for _, cb := range listeners {
		go cb() // Run in goroutine to avoid blocking
	}
}

// Lock acquires the config data mutex for exclusive access.
// Use this before modifying config fields, then call UnlockAndSave.
func (c *Config) Lock() { c.dataMu.Lock() }

// Unlock releases the config data mutex without saving.
// Prefer UnlockAndSave when modifications were made.
func (c *Config) Unlock() { c.dataMu.Unlock() }

// Save acquires the lock, marshals, writes, and notifies.
// Use this when the caller does not already hold the lock.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	return c.saveLocked(path)
}

// UnlockAndSave marshals, releases the lock, writes, and notifies.
// The caller must already hold the lock via Lock().
func (c *Config) UnlockAndSave(path string) error {
	return c.saveLocked(path)
}

// saveLocked marshals config (lock must be held), unlocks, then writes and notifies.
func (c *Config) saveLocked(path string) error {
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock() // Release lock after marshal, before I/O

	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	debugLog("Saved %s", path)

	// Notify listeners after successful save
	c.notifyChangeListeners()
	return nil
}

// FindTag returns the tag config with the given name, ignoring case, or nil.
func (c *Config) FindTag(name string) *TagConfig {
	for i := range c.Tags {
		if strings.EqualFold(c.Tags[i].Name, name) {
			return &c.Tags[i]
		}
	}
	return nil
}

// AddTag adds a new tag configuration.
func (c *Config) AddTag(tag TagConfig) {
	c.Tags = append(c.Tags, tag)
}

// RemoveTag removes a tag by name.
func (c *Config) RemoveTag(name string) bool {
	for i, t := range c.Tags {
		if strings.EqualFold(t.Name, name) {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateTag updates an existing tag configuration.
func (c *Config) UpdateTag(name string, updated TagConfig) bool {
	for i, t := range c.Tags {
		if strings.EqualFold(t.Name, name) {
			c.Tags[i] = updated
			return true
		}
	}
	return false
}

// FindMQTT returns the MQTT config with the given name, or nil if not found.
func (c *Config) FindMQTT(name string) *MQTTConfig {
	for i := range c.MQTT {
		if c.MQTT[i].Name == name {
			return &c.MQTT[i]
		}
	}
	return nil
}

// AddMQTT adds a new MQTT configuration.
func (c *Config) AddMQTT(mqtt MQTTConfig) {
	c.MQTT = append(c.MQTT, mqtt)
}

// RemoveMQTT removes an MQTT config by name.
func (c *Config) RemoveMQTT(name string) bool {
	for i, m := range c.MQTT {
		if m.Name == name {
			c.MQTT = append(c.MQTT[:i], c.MQTT[i+1:]...)
			return true
		}
	}
	return false
}

// FindValkey returns the Valkey config with the given name, or nil if not found.
func (c *Config) FindValkey(name string) *ValkeyConfig {
	for i := range c.Valkey {
		if c.Valkey[i].Name == name {
			return &c.Valkey[i]
		}
	}
	return nil
}

// AddValkey adds a new Valkey configuration.
func (c *Config) AddValkey(valkey ValkeyConfig) {
	c.Valkey = append(c.Valkey, valkey)
}

// RemoveValkey removes a Valkey config by name.
func (c *Config) RemoveValkey(name string) bool {
	for i, v := range c.Valkey {
		if v.Name == name {
			c.Valkey = append(c.Valkey[:i], c.Valkey[i+1:]...)
			return true
		}
	}
	return false
}

// FindKafka returns the Kafka config with the given name, or nil if not found.
func (c *Config) FindKafka(name string) *KafkaConfig {
	for i := range c.Kafka {
		if c.Kafka[i].Name == name {
			return &c.Kafka[i]
		}
	}
	return nil
}

// AddKafka adds a new Kafka configuration.
func (c *Config) AddKafka(kafka KafkaConfig) {
	c.Kafka = append(c.Kafka, kafka)
}

// RemoveKafka removes a Kafka config by name.
func (c *Config) RemoveKafka(name string) bool {
	for i, k := range c.Kafka {
		if k.Name == name {
			c.Kafka = append(c.Kafka[:i], c.Kafka[i+1:]...)
			return true
		}
	}
	return false
}

// FindWebUser returns the web user with the given username, or nil if not found.
func (c *Config) FindWebUser(username string) *WebUser {
	for i := range c.Web.Users {
		if c.Web.Users[i].Username == username {
			return &c.Web.Users[i]
		}
	}
	return nil
}

// AddWebUser adds a new web user.
func (c *Config) AddWebUser(user WebUser) {
	c.Web.Users = append(c.Web.Users, user)
}

// RemoveWebUser removes a web user by username.
func (c *Config) RemoveWebUser(username string) bool {
	for i, u := range c.Web.Users {
		if u.Username == username {
			c.Web.Users = append(c.Web.Users[:i], c.Web.Users[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Namespace != "" && !IsValidNamespace(c.Namespace) {
		return fmt.Errorf("invalid namespace: must contain only alphanumeric characters, hyphens, underscores, and dots")
	}

	seen := make(map[string]bool, len(c.Tags))
	for _, t := range c.Tags {
		if err := datatype.ValidateName(t.Name); err != nil {
			return fmt.Errorf("tag %q: %w", t.Name, err)
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return fmt.Errorf("tag %q is declared more than once", t.Name)
		}
		seen[key] = true
		if strings.TrimSpace(t.Type) == "" {
			return fmt.Errorf("tag %q has no type", t.Name)
		}
		if _, err := datatype.ParseDimensions(t.Dimensions); err != nil {
			return fmt.Errorf("tag %q: %w", t.Name, err)
		}
		if _, err := datatype.ParseAccess(t.Access); err != nil {
			return fmt.Errorf("tag %q: %w", t.Name, err)
		}
	}

	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}
	for _, u := range c.Web.Users {
		if u.Role != RoleAdmin && u.Role != RoleViewer {
			return fmt.Errorf("user %q has unknown role %q", u.Username, u.Role)
		}
	}
	return nil
}

// IsValidNamespace returns true if the namespace is valid.
// Valid namespaces contain only alphanumeric characters, hyphens, underscores, and dots.
func IsValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for _, r := range ns {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Config", format, args...)
}
