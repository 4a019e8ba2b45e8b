package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/publish"
)

// publishJob represents a pending Kafka publish operation.
type publishJob struct {
	producer *Producer
	topic    string
	key      []byte
	payload  []byte
	cacheKey string
	value    interface{}
}

// cluster groups the connections to one configured cluster.
type cluster struct {
	producer *Producer
	consumer *Consumer
	builder  *namespace.Builder
}

// MaxPublishWorkers is the maximum number of concurrent publish goroutines.
const MaxPublishWorkers = 10

// MaxPublishQueueSize is the maximum number of pending publish jobs.
const MaxPublishQueueSize = 1000

// Manager manages the configured Kafka clusters.
type Manager struct {
	namespace    string
	clusters     map[string]*cluster
	mu           sync.RWMutex
	writeHandler publish.WriteHandler

	lastValues map[string]interface{} // cluster/member -> last published value
	lastMu     sync.RWMutex

	// Worker pool for bounded publish goroutines
	publishQueue chan publishJob
	wg           sync.WaitGroup
	stopChan     chan struct{}
	started      bool
}

// NewManager creates a manager whose topics use namespace ns.
func NewManager(ns string) *Manager {
	return &Manager{
		namespace:    ns,
		clusters:     make(map[string]*cluster),
		lastValues:   make(map[string]interface{}),
		publishQueue: make(chan publishJob, MaxPublishQueueSize),
		stopChan:     make(chan struct{}),
	}
}

func (m *Manager) startWorkers() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	queue, stop := m.publishQueue, m.stopChan
	m.mu.Unlock()

	for i := 0; i < MaxPublishWorkers; i++ {
		m.wg.Add(1)
		go m.publishWorker(queue, stop)
	}
}

func (m *Manager) publishWorker(queue chan publishJob, stop chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-stop:
			return
		case job := <-queue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := job.producer.Produce(ctx, job.topic, job.key, job.payload); err == nil {
				m.updateLastValue(job.cacheKey, job.value)
			} else {
				logKafka("Failed to publish %s: %v", job.cacheKey, err)
			}
			cancel()
		}
	}
}

// AddCluster adds a cluster. A second cluster with the same name is ignored.
func (m *Manager) AddCluster(cfg *config.KafkaConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clusters[cfg.Name]; exists {
		return
	}
	producer := NewProducer(cfg)
	builder := namespace.New(m.namespace, cfg.Selector)
	c := &cluster{producer: producer, builder: builder}
	if cfg.EnableWriteback {
		c.consumer = NewConsumer(cfg, producer, builder)
		c.consumer.SetWriteHandler(m.writeHandler)
	}
	m.clusters[cfg.Name] = c
}

// RemoveCluster stops and removes a cluster.
func (m *Manager) RemoveCluster(name string) {
	m.mu.Lock()
	c, exists := m.clusters[name]
	if exists {
		delete(m.clusters, name)
	}
	m.mu.Unlock()

	if exists {
		c.stop()
	}
}

func (c *cluster) stop() {
	if c.consumer != nil {
		c.consumer.Stop()
	}
	c.producer.Disconnect()
}

// GetProducer returns the producer for the named cluster.
func (m *Manager) GetProducer(name string) *Producer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clusters[name]; ok {
		return c.producer
	}
	return nil
}

// ListClusters returns all cluster names.
func (m *Manager) ListClusters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clusters))
	for name := range m.clusters {
		names = append(names, name)
	}
	return names
}

func (m *Manager) snapshot() []*cluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*cluster, 0, len(m.clusters))
	for _, c := range m.clusters {
		out = append(out, c)
	}
	return out
}

// Connect connects to the named cluster and starts its write consumer.
func (m *Manager) Connect(ctx context.Context, name string) error {
	m.mu.RLock()
	c, exists := m.clusters[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("kafka cluster not found: %s", name)
	}
	if err := c.producer.Connect(ctx); err != nil {
		return err
	}
	m.startWorkers()
	if c.consumer != nil {
		return c.consumer.Start()
	}
	return nil
}

// Disconnect stops the named cluster's consumer and closes its producer.
func (m *Manager) Disconnect(name string) error {
	m.mu.RLock()
	c, exists := m.clusters[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("kafka cluster not found: %s", name)
	}
	if c.consumer != nil {
		c.consumer.Stop()
	}
	c.producer.Disconnect()
	return nil
}

// ConnectEnabled connects every enabled cluster concurrently and returns how
// many connected.
func (m *Manager) ConnectEnabled(ctx context.Context) int {
	var (
		wg        sync.WaitGroup
		connected atomic.Int32
	)
	for _, c := range m.snapshot() {
		if !c.producer.config.Enabled {
			continue
		}
		name := c.producer.Name()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Connect(ctx, name); err != nil {
				logKafka("Failed to connect %s: %v", name, err)
				return
			}
			connected.Add(1)
		}()
	}
	wg.Wait()
	return int(connected.Load())
}

// StopAll stops the publish workers and disconnects every cluster.
func (m *Manager) StopAll() {
	m.mu.Lock()
	started := m.started
	oldStopChan := m.stopChan
	if started {
		m.stopChan = make(chan struct{})
		m.publishQueue = make(chan publishJob, MaxPublishQueueSize)
		m.started = false
	}
	m.mu.Unlock()

	if started {
		close(oldStopChan)
		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			logKafka("Timeout waiting for publish workers to stop")
		}
	}

	for _, c := range m.snapshot() {
		c.stop()
	}
}

// GetClusterStatus returns the status of a specific cluster.
func (m *Manager) GetClusterStatus(name string) (ConnectionStatus, error) {
	p := m.GetProducer(name)
	if p == nil {
		return StatusDisconnected, fmt.Errorf("cluster not found")
	}
	return p.GetStatus(), p.GetError()
}

// LoadFromConfig adds every configured cluster.
func (m *Manager) LoadFromConfig(cfgs []config.KafkaConfig) {
	for i := range cfgs {
		m.AddCluster(&cfgs[i])
	}
}

// SetWriteHandler sets the write handler used by the write consumers.
func (m *Manager) SetWriteHandler(handler publish.WriteHandler) {
	m.mu.Lock()
	m.writeHandler = handler
	m.mu.Unlock()

	for _, c := range m.snapshot() {
		if c.consumer != nil {
			c.consumer.SetWriteHandler(handler)
		}
	}
}

func (m *Manager) updateLastValue(key string, value interface{}) {
	m.lastMu.Lock()
	m.lastValues[key] = value
	m.lastMu.Unlock()
}

func (m *Manager) shouldPublish(cacheKey string, value interface{}, force bool) bool {
	m.lastMu.RLock()
	last, exists := m.lastValues[cacheKey]
	m.lastMu.RUnlock()
	return !exists || force || fmt.Sprintf("%v", last) != fmt.Sprintf("%v", value)
}

// ClearLastValues clears the change tracking cache, forcing republish of all values.
func (m *Manager) ClearLastValues() {
	m.lastMu.Lock()
	m.lastValues = make(map[string]interface{})
	m.lastMu.Unlock()
}

// Publish queues msg for every connected cluster whose last published value
// for the member differs, keyed by tag name so a tag's members stay in one
// partition.
func (m *Manager) Publish(msg publish.Message, force bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	m.mu.RLock()
	queue := m.publishQueue
	m.mu.RUnlock()

	for _, c := range m.snapshot() {
		if c.producer.GetStatus() != StatusConnected {
			continue
		}
		cacheKey := c.producer.Name() + "/" + msg.Member
		if !m.shouldPublish(cacheKey, msg.Value, force) {
			continue
		}

		job := publishJob{
			producer: c.producer,
			topic:    c.builder.KafkaTagTopic(),
			key:      []byte(msg.Tag),
			payload:  payload,
			cacheKey: cacheKey,
			value:    msg.Value,
		}
		select {
		case queue <- job:
		default:
			logKafka("Publish queue full, dropping message for %s", cacheKey)
		}
	}
}

// AnyPublishing returns true if any cluster is connected.
func (m *Manager) AnyPublishing() bool {
	for _, c := range m.snapshot() {
		if c.producer.GetStatus() == StatusConnected {
			return true
		}
	}
	return false
}
