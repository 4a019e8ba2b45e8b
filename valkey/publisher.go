// Package valkey stores tag member values in Valkey/Redis and serves write
// requests from a list key.
package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/publish"
)

// Publisher handles publishing member values to a Valkey server.
type Publisher struct {
	config  *config.ValkeyConfig
	builder *namespace.Builder
	client  *redis.Client
	running bool
	mu      sync.RWMutex

	writeHandler      publish.WriteHandler
	onConnectCallback func()

	// Write-back processing
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher for cfg under namespace ns.
func NewPublisher(cfg *config.ValkeyConfig, ns string) *Publisher {
	return &Publisher{
		config:   cfg,
		builder:  namespace.New(ns, cfg.Selector),
		stopChan: make(chan struct{}),
	}
}

// Name returns the publisher's name.
func (p *Publisher) Name() string { return p.config.Name }

// options builds the client options for the configured server.
func (p *Publisher) options() *redis.Options {
	opts := &redis.Options{
		Addr:         p.config.Address,
		Password:     p.config.Password,
		DB:           p.config.Database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
	if p.config.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Start connects to the Valkey server.
func (p *Publisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	client := redis.NewClient(p.options())

	debugLog("Attempting to connect to Valkey at %s (DB: %d, TLS: %v)",
		p.config.Address, p.config.Database, p.config.UseTLS)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		debugLog("Valkey connection failed: %v", err)
		client.Close()
		return fmt.Errorf("failed to connect to Valkey at %s: %w", p.config.Address, err)
	}

	debugLog("Successfully connected to Valkey at %s", p.config.Address)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		client.Close()
		return nil
	}

	p.client = client
	p.running = true
	p.stopChan = make(chan struct{})

	if p.config.EnableWriteback {
		p.wg.Add(1)
		go p.writebackListener(client, p.stopChan)
	}

	if p.onConnectCallback != nil {
		go p.onConnectCallback()
	}
	return nil
}

// Stop disconnects from the Valkey server.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopChan)
	client := p.client
	p.client = nil
	p.mu.Unlock()

	// The write-back listener wakes from BLPop at least once a second.
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(1500 * time.Millisecond):
	}

	if client != nil {
		return client.Close()
	}
	return nil
}

// IsRunning returns whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Config returns the publisher's configuration.
func (p *Publisher) Config() *config.ValkeyConfig {
	return p.config
}

// Address returns the server URL.
func (p *Publisher) Address() string {
	scheme := "redis"
	if p.config.UseTLS {
		scheme = "rediss"
	}
	return fmt.Sprintf("%s://%s", scheme, p.config.Address)
}

// Key returns the key a member's value is stored under.
func (p *Publisher) Key(member string) string {
	return p.builder.ValkeyTagKey(member)
}

// Publish stores msg under the member's key and, when enabled, announces it
// on the tag and all-changes channels.
func (p *Publisher) Publish(msg publish.Message) error {
	p.mu.RLock()
	if !p.running || p.client == nil {
		p.mu.RUnlock()
		return nil
	}
	client := p.client
	cfg := p.config
	p.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal member value: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Set(ctx, p.Key(msg.Member), data, cfg.KeyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	if cfg.PublishChanges {
		client.Publish(ctx, p.builder.ValkeyChangesChannel(msg.Tag), data)
		client.Publish(ctx, p.builder.ValkeyAllChangesChannel(), data)
	}
	return nil
}

// SetWriteHandler sets the callback for processing write requests.
func (p *Publisher) SetWriteHandler(handler publish.WriteHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHandler = handler
}

// SetOnConnectCallback sets the callback invoked after connection is established.
func (p *Publisher) SetOnConnectCallback(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnectCallback = callback
}

// writebackListener pops write requests from the write queue until stop is
// closed.
func (p *Publisher) writebackListener(client *redis.Client, stop chan struct{}) {
	defer p.wg.Done()

	queueKey := p.builder.ValkeyWriteQueue()
	responseChannel := p.builder.ValkeyWriteResponseChannel()

	for {
		select {
		case <-stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		result, err := client.BLPop(ctx, 1*time.Second, queueKey).Result()
		cancel()

		if err != nil {
			if err != redis.Nil {
				debugLog("Valkey write queue error: %v", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		resp := p.processWriteRequest([]byte(result[1]))
		data, _ := json.Marshal(resp)
		client.Publish(context.Background(), responseChannel, data)
	}
}

// processWriteRequest decodes and applies one queued write request.
func (p *Publisher) processWriteRequest(payload []byte) publish.WriteResponse {
	p.mu.RLock()
	handler := p.writeHandler
	p.mu.RUnlock()

	var req publish.WriteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		debugLog("Failed to parse write request: %v", err)
		return publish.WriteResponse{
			Success:   false,
			Error:     fmt.Sprintf("invalid JSON: %v", err),
			Timestamp: time.Now().UTC(),
		}
	}
	return publish.HandleWrite(handler, req)
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Valkey", format, args...)
}
