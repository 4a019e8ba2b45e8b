// Package kafka produces tag member changes to Kafka and consumes write
// requests from it.
package kafka

import (
	"crypto/tls"
	"time"

	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/logging"
)

// SASLMechanism represents the SASL authentication mechanism.
type SASLMechanism string

const (
	SASLNone        SASLMechanism = ""
	SASLPlain       SASLMechanism = "PLAIN"
	SASLSCRAMSHA256 SASLMechanism = "SCRAM-SHA-256"
	SASLSCRAMSHA512 SASLMechanism = "SCRAM-SHA-512"
)

// DefaultWriteMaxAge is how old a write request may be before it is skipped.
const DefaultWriteMaxAge = 2 * time.Second

// DefaultConfig returns a Kafka cluster configuration with sensible defaults.
func DefaultConfig(name string) config.KafkaConfig {
	return config.KafkaConfig{
		Name:         name,
		Brokers:      []string{"localhost:9092"},
		RequiredAcks: -1, // All replicas must acknowledge
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// tlsConfig returns a TLS configuration if TLS is enabled.
func tlsConfig(cfg *config.KafkaConfig) *tls.Config {
	if !cfg.UseTLS {
		return nil
	}
	return &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify,
	}
}

// saslMechanism returns the configured SASL mechanism, nil without a user.
func saslMechanism(cfg *config.KafkaConfig) sasl.Mechanism {
	if cfg.Username == "" {
		return nil
	}

	switch SASLMechanism(cfg.SASLMechanism) {
	case SASLPlain:
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	case SASLSCRAMSHA256:
		mechanism, _ := scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
		return mechanism
	case SASLSCRAMSHA512:
		mechanism, _ := scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
		return mechanism
	default:
		return nil
	}
}

// autoCreateTopics defaults to true when unset.
func autoCreateTopics(cfg *config.KafkaConfig) bool {
	if cfg.AutoCreateTopics == nil {
		return true
	}
	return *cfg.AutoCreateTopics
}

func writeMaxAge(cfg *config.KafkaConfig) time.Duration {
	if cfg.WriteMaxAge > 0 {
		return cfg.WriteMaxAge
	}
	return DefaultWriteMaxAge
}

func logKafka(format string, args ...interface{}) {
	logging.DebugLog("Kafka", format, args...)
}
