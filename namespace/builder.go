// Package namespace builds the topics, keys and channels used by the MQTT,
// Valkey and Kafka publishers so every service shares one naming scheme.
package namespace

import "strings"

// Builder constructs namespace-prefixed topics and keys.
type Builder struct {
	namespace string
	selector  string
}

// New creates a new namespace builder. The selector is an optional
// sub-namespace.
func New(namespace, selector string) *Builder {
	return &Builder{
		namespace: namespace,
		selector:  selector,
	}
}

// Namespace returns the namespace the builder was created with.
func (b *Builder) Namespace() string { return b.namespace }

// --- MQTT (delimiter: /) ---

// MQTTTagTopic returns the topic for a tag member: {ns}[/{sel}]/tags/{path}
// Member separators become topic levels, so "Pump1.Delay.PRE" publishes to
// ".../tags/Pump1/Delay/PRE".
func (b *Builder) MQTTTagTopic(path string) string {
	return b.mqttBase() + "/tags/" + strings.ReplaceAll(path, ".", "/")
}

// MQTTTagWildcard returns the subscription filter for every tag topic.
func (b *Builder) MQTTTagWildcard() string {
	return b.mqttBase() + "/tags/#"
}

// MQTTWriteTopic returns the topic for write requests: {ns}[/{sel}]/write
func (b *Builder) MQTTWriteTopic() string {
	return b.mqttBase() + "/write"
}

// MQTTWriteResponseTopic returns the topic for write responses: {ns}[/{sel}]/write/response
func (b *Builder) MQTTWriteResponseTopic() string {
	return b.mqttBase() + "/write/response"
}

// MQTTBase returns the base topic: {ns}[/{sel}]
func (b *Builder) MQTTBase() string {
	return b.mqttBase()
}

func (b *Builder) mqttBase() string {
	if b.selector != "" {
		return b.namespace + "/" + b.selector
	}
	return b.namespace
}

// --- Valkey (delimiter: :) ---

// ValkeyTagKey returns the key for a tag member: {ns}[:{sel}]:tags:{path}
func (b *Builder) ValkeyTagKey(path string) string {
	return b.valkeyBase() + ":tags:" + path
}

// ValkeyChangesChannel returns the channel for member changes of one tag:
// {ns}[:{sel}]:{tag}:changes
func (b *Builder) ValkeyChangesChannel(tag string) string {
	return b.valkeyBase() + ":" + tag + ":changes"
}

// ValkeyAllChangesChannel returns the channel for all changes: {ns}[:{sel}]:_all:changes
func (b *Builder) ValkeyAllChangesChannel() string {
	return b.valkeyBase() + ":_all:changes"
}

// ValkeyWriteQueue returns the list key for write requests: {ns}[:{sel}]:writes
func (b *Builder) ValkeyWriteQueue() string {
	return b.valkeyBase() + ":writes"
}

// ValkeyWriteResponseChannel returns the channel for write responses: {ns}[:{sel}]:write:responses
func (b *Builder) ValkeyWriteResponseChannel() string {
	return b.valkeyBase() + ":write:responses"
}

// ValkeyBase returns the base key: {ns}[:{sel}]
func (b *Builder) ValkeyBase() string {
	return b.valkeyBase()
}

func (b *Builder) valkeyBase() string {
	if b.selector != "" {
		return b.namespace + ":" + b.selector
	}
	return b.namespace
}

// --- Kafka (delimiter: -) ---

// KafkaTagTopic returns the topic for member changes: {ns}[-{sel}]
// The tag name is used as the message key for partitioning.
func (b *Builder) KafkaTagTopic() string {
	return b.kafkaBase()
}

// KafkaWriteTopic returns the topic for write requests: {ns}[-{sel}]-writes
func (b *Builder) KafkaWriteTopic() string {
	return b.kafkaBase() + "-writes"
}

// KafkaWriteResponseTopic returns the topic for write responses: {ns}[-{sel}]-write-responses
func (b *Builder) KafkaWriteResponseTopic() string {
	return b.kafkaBase() + "-write-responses"
}

// KafkaConsumerGroup returns the default consumer group for write requests:
// {ns}[-{sel}]-writer
func (b *Builder) KafkaConsumerGroup() string {
	return b.kafkaBase() + "-writer"
}

func (b *Builder) kafkaBase() string {
	if b.selector != "" {
		return b.namespace + "-" + b.selector
	}
	return b.namespace
}
