// Package mqtt provides MQTT publishing of tag member values.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/publish"
)

// writeJob represents a pending write operation.
type writeJob struct {
	client  pahomqtt.Client
	req     publish.WriteRequest
	err     error // set when the request was rejected before queuing
	handler publish.WriteHandler
}

// MaxWriteWorkers is the maximum number of concurrent write goroutines per publisher.
const MaxWriteWorkers = 5

// MaxWriteQueueSize is the maximum number of pending write jobs per publisher.
const MaxWriteQueueSize = 100

// Publisher handles one MQTT broker connection.
type Publisher struct {
	config  *config.MQTTConfig
	builder *namespace.Builder
	client  pahomqtt.Client
	running bool
	mu      sync.RWMutex

	// Track last published values to detect changes
	lastValues map[string]interface{}
	lastMu     sync.RWMutex

	writeHandler      publish.WriteHandler
	onConnectCallback func()

	// Worker pool for bounded write goroutines
	writeQueue chan writeJob
	wg         sync.WaitGroup
	stopChan   chan struct{}
}

// NewPublisher creates a publisher for cfg under namespace ns.
func NewPublisher(cfg *config.MQTTConfig, ns string) *Publisher {
	return &Publisher{
		config:     cfg,
		builder:    namespace.New(ns, cfg.Selector),
		lastValues: make(map[string]interface{}),
		writeQueue: make(chan writeJob, MaxWriteQueueSize),
		stopChan:   make(chan struct{}),
	}
}

// Name returns the publisher's name.
func (p *Publisher) Name() string {
	return p.config.Name
}

// IsRunning returns whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Start connects to the broker and subscribes to the write topic.
func (p *Publisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.Address())
	if p.config.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.SetClientID(p.config.ClientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	debugLog("Attempting to connect to MQTT broker %s", p.Address())

	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		debugLog("MQTT connection timeout")
		return fmt.Errorf("connection timeout")
	}
	if token.Error() != nil {
		debugLog("MQTT connection error: %v", token.Error())
		return token.Error()
	}
	debugLog("Successfully connected to MQTT broker %s", p.Address())

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		client.Disconnect(100)
		return nil
	}
	p.client = client
	p.running = true
	onConnect := p.onConnectCallback
	p.mu.Unlock()

	p.ClearLastValues()
	p.startWriteWorkers()
	p.subscribeWriteTopic()

	if onConnect != nil {
		go onConnect()
	}
	return nil
}

func (p *Publisher) startWriteWorkers() {
	p.mu.RLock()
	queue, stop := p.writeQueue, p.stopChan
	p.mu.RUnlock()

	for i := 0; i < MaxWriteWorkers; i++ {
		p.wg.Add(1)
		go p.writeWorker(queue, stop)
	}
}

func (p *Publisher) writeWorker(queue chan writeJob, stop chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-stop:
			return
		case job := <-queue:
			var resp publish.WriteResponse
			if job.err != nil {
				resp = publish.WriteResponse{
					Member:    job.req.Member,
					Value:     job.req.Value,
					Error:     job.err.Error(),
					Timestamp: time.Now().UTC(),
				}
			} else {
				resp = publish.HandleWrite(job.handler, job.req)
			}
			p.publishWriteResponse(job.client, resp)
		}
	}
}

// Stop disconnects from the broker.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running || p.client == nil {
		p.mu.Unlock()
		return
	}
	p.running = false
	client := p.client
	p.client = nil

	oldStopChan := p.stopChan
	p.stopChan = make(chan struct{})
	p.writeQueue = make(chan writeJob, MaxWriteQueueSize)
	p.mu.Unlock()

	close(oldStopChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		debugLog("Timeout waiting for write workers to stop")
	}

	client.Disconnect(500)
}

// Topic returns the topic a member is published on.
func (p *Publisher) Topic(member string) string {
	return p.builder.MQTTTagTopic(member)
}

// shouldPublish reports whether value differs from the last value published
// for member.
func (p *Publisher) shouldPublish(member string, value interface{}, force bool) bool {
	p.lastMu.RLock()
	last, exists := p.lastValues[member]
	p.lastMu.RUnlock()
	return !exists || force || fmt.Sprintf("%v", last) != fmt.Sprintf("%v", value)
}

func (p *Publisher) remember(member string, value interface{}) {
	p.lastMu.Lock()
	p.lastValues[member] = value
	p.lastMu.Unlock()
}

// ClearLastValues forgets published values so the next publish of each member
// goes out.
func (p *Publisher) ClearLastValues() {
	p.lastMu.Lock()
	p.lastValues = make(map[string]interface{})
	p.lastMu.Unlock()
}

// Publish sends msg as a retained message if the value changed since the
// last publish of the member.
func (p *Publisher) Publish(msg publish.Message, force bool) bool {
	p.mu.RLock()
	running := p.running
	client := p.client
	p.mu.RUnlock()

	if !running || client == nil {
		return false
	}
	if !p.shouldPublish(msg.Member, msg.Value, force) {
		return false
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	token := client.Publish(p.Topic(msg.Member), 1, true, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return false
	}
	if token.Error() != nil {
		debugLog("Publish %s failed: %v", msg.Member, token.Error())
		return false
	}

	p.remember(msg.Member, msg.Value)
	return true
}

// Address returns the broker URL.
func (p *Publisher) Address() string {
	if p.config.UseTLS {
		return fmt.Sprintf("ssl://%s:%d", p.config.Broker, p.config.Port)
	}
	return fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port)
}

// Config returns the publisher's configuration.
func (p *Publisher) Config() *config.MQTTConfig {
	return p.config
}

// SetWriteHandler sets the callback for handling write requests.
func (p *Publisher) SetWriteHandler(handler publish.WriteHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHandler = handler
}

// SetOnConnectCallback sets the callback invoked after connecting.
func (p *Publisher) SetOnConnectCallback(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnectCallback = callback
}

func (p *Publisher) subscribeWriteTopic() {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return
	}

	topic := p.builder.MQTTWriteTopic()
	token := client.Subscribe(topic, 1, p.handleWriteMessage)
	if !token.WaitTimeout(2 * time.Second) {
		debugLog("Subscribe timeout for %s", topic)
		return
	}
	if token.Error() != nil {
		debugLog("Subscribe error for %s: %v", topic, token.Error())
		return
	}
	debugLog("Subscribed to: %s", topic)
}

// parseWriteRequest decodes a write request payload.
func parseWriteRequest(payload []byte) (publish.WriteRequest, error) {
	var req publish.WriteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("invalid JSON: %v", err)
	}
	if req.Member == "" {
		return req, fmt.Errorf("write request has no member")
	}
	return req, nil
}

func (p *Publisher) handleWriteMessage(client pahomqtt.Client, msg pahomqtt.Message) {
	debugLog("Received write request on topic %s: %s", msg.Topic(), string(msg.Payload()))

	p.mu.RLock()
	handler := p.writeHandler
	queue := p.writeQueue
	p.mu.RUnlock()

	req, err := parseWriteRequest(msg.Payload())
	job := writeJob{client: client, req: req, err: err, handler: handler}

	select {
	case queue <- job:
	default:
		debugLog("Write queue full, rejecting write for %s", req.Member)
		job.err = fmt.Errorf("write queue full, try again later")
		go p.publishWriteResponse(client, publish.WriteResponse{
			Member:    req.Member,
			Value:     req.Value,
			Error:     job.err.Error(),
			Timestamp: time.Now().UTC(),
		})
	}
}

func (p *Publisher) publishWriteResponse(client pahomqtt.Client, resp publish.WriteResponse) {
	payload, _ := json.Marshal(resp)
	token := client.Publish(p.builder.MQTTWriteResponseTopic(), 1, false, payload)
	token.WaitTimeout(2 * time.Second)
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("MQTT", format, args...)
}
