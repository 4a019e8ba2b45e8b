package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/publish"
)

// WriteBackBatchInterval is how often collected write requests are applied.
const WriteBackBatchInterval = 250 * time.Millisecond

// WriteRequest is a write request read from the write topic.
type WriteRequest struct {
	publish.WriteRequest
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// WriteResponse is produced to the write response topic for every request.
type WriteResponse struct {
	publish.WriteResponse
	RequestID    string `json:"request_id,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`      // request was older than the max age
	Deduplicated bool   `json:"deduplicated,omitempty"` // request was replaced by a newer one
}

// pendingWrite is a write request waiting for the next batch.
type pendingWrite struct {
	request     WriteRequest
	messageTime time.Time
	offset      int64
}

// Consumer reads write requests for one cluster and applies them in batches
// where the latest request for a member wins.
type Consumer struct {
	config   *config.KafkaConfig
	producer *Producer // for responses
	builder  *namespace.Builder
	reader   *kafka.Reader
	running  bool
	mu       sync.RWMutex

	writeHandler publish.WriteHandler

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewConsumer creates a write request consumer.
func NewConsumer(cfg *config.KafkaConfig, producer *Producer, builder *namespace.Builder) *Consumer {
	return &Consumer{
		config:   cfg,
		producer: producer,
		builder:  builder,
		stopChan: make(chan struct{}),
	}
}

// SetWriteHandler sets the callback that applies write requests.
func (c *Consumer) SetWriteHandler(handler publish.WriteHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeHandler = handler
}

// ConsumerGroup returns the configured group or the namespace default.
func (c *Consumer) ConsumerGroup() string {
	if c.config.ConsumerGroup != "" {
		return c.config.ConsumerGroup
	}
	return c.builder.KafkaConsumerGroup()
}

// Start begins consuming write requests.
func (c *Consumer) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}

	writeTopic := c.builder.KafkaWriteTopic()
	group := c.ConsumerGroup()
	logConsumer("Starting consumer for topic '%s' with group '%s'", writeTopic, group)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		Topic:          writeTopic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        100 * time.Millisecond,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           tlsConfig(c.config),
			SASLMechanism: saslMechanism(c.config),
		},
	})
	c.running = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumeLoop()
	return nil
}

// Stop stops the consumer after applying any pending writes.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	logConsumer("Stopping consumer")
	c.running = false
	close(c.stopChan)
	reader := c.reader
	c.reader = nil
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		logConsumer("Consumer stop timeout")
	}

	if reader != nil {
		reader.Close()
	}
}

// IsRunning returns whether the consumer is running.
func (c *Consumer) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Consumer) consumeLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(WriteBackBatchInterval)
	defer ticker.Stop()

	batch := newWriteBatch()

	c.mu.RLock()
	reader, stop := c.reader, c.stopChan
	c.mu.RUnlock()

	for {
		select {
		case <-stop:
			if !batch.empty() {
				c.processBatch(batch)
			}
			return

		case <-ticker.C:
			if !batch.empty() {
				c.processBatch(batch)
				batch = newWriteBatch()
			}

		default:
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			msg, err := reader.FetchMessage(ctx)
			cancel()
			if err != nil {
				continue
			}

			var req WriteRequest
			if err := json.Unmarshal(msg.Value, &req); err != nil {
				logConsumer("JSON parse error at offset %d: %v", msg.Offset, err)
				c.commitMessage(reader, msg)
				continue
			}
			batch.add(string(msg.Key), pendingWrite{request: req, messageTime: msg.Time, offset: msg.Offset})
			c.commitMessage(reader, msg)
		}
	}
}

// writeBatch collects requests between batch intervals.
type writeBatch struct {
	pending   map[string]pendingWrite
	order     []string
	discarded []pendingWrite
}

func newWriteBatch() *writeBatch {
	return &writeBatch{pending: make(map[string]pendingWrite)}
}

func (b *writeBatch) empty() bool {
	return len(b.pending) == 0 && len(b.discarded) == 0
}

// add stores pw under key, or under the request's member when key is empty.
// An earlier request under the same key is moved to the discarded list.
func (b *writeBatch) add(key string, pw pendingWrite) {
	if key == "" {
		key = pw.request.Member
	}
	if existing, exists := b.pending[key]; exists {
		b.discarded = append(b.discarded, existing)
	} else {
		b.order = append(b.order, key)
	}
	b.pending[key] = pw
}

// resolve applies the batch through handler and returns one response per
// request received, in arrival order of the surviving keys.
func (b *writeBatch) resolve(handler publish.WriteHandler, maxAge time.Duration, now time.Time) []WriteResponse {
	out := make([]WriteResponse, 0, len(b.pending)+len(b.discarded))

	for _, pw := range b.discarded {
		out = append(out, WriteResponse{
			WriteResponse: publish.WriteResponse{
				Member:    pw.request.Member,
				Value:     pw.request.Value,
				Error:     "request superseded by newer write to same member",
				Timestamp: now,
			},
			RequestID:    pw.request.RequestID,
			Deduplicated: true,
		})
	}

	for _, key := range b.order {
		pw := b.pending[key]
		if age := now.Sub(pw.messageTime); age > maxAge {
			out = append(out, WriteResponse{
				WriteResponse: publish.WriteResponse{
					Member:    pw.request.Member,
					Value:     pw.request.Value,
					Error:     fmt.Sprintf("request expired (age: %v, max: %v)", age.Round(time.Millisecond), maxAge),
					Timestamp: now,
				},
				RequestID: pw.request.RequestID,
				Skipped:   true,
			})
			continue
		}
		out = append(out, WriteResponse{
			WriteResponse: publish.HandleWrite(handler, pw.request.WriteRequest),
			RequestID:     pw.request.RequestID,
		})
	}
	return out
}

func (c *Consumer) processBatch(b *writeBatch) {
	c.mu.RLock()
	handler := c.writeHandler
	c.mu.RUnlock()

	responses := b.resolve(handler, writeMaxAge(c.config), time.Now())
	logConsumer("Batch complete: %d responses, %d deduplicated", len(responses), len(b.discarded))
	for _, resp := range responses {
		c.sendResponse(resp)
	}
}

func (c *Consumer) sendResponse(resp WriteResponse) {
	if c.producer == nil || c.producer.GetStatus() != StatusConnected {
		logConsumer("Cannot send response: producer not connected")
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		logConsumer("Failed to marshal response: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	topic := c.builder.KafkaWriteResponseTopic()
	if err := c.producer.Produce(ctx, topic, []byte(resp.Member), payload); err != nil {
		logConsumer("Failed to publish response to %s: %v", topic, err)
	}
}

func (c *Consumer) commitMessage(reader *kafka.Reader, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reader.CommitMessages(ctx, msg); err != nil {
		logConsumer("Failed to commit message: %v", err)
	}
}

func logConsumer(format string, args ...interface{}) {
	logging.DebugLog("Kafka", "[Consumer] "+format, args...)
}
