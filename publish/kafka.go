// Package publish optionally republishes indexed events onto a Kafka
// topic, for operators who want a push feed in addition to the
// queryable store. Disabled unless a publish section is present in
// config; the indexer runs identically without it.
package publish

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/kadena-io/chainweb-indexer/log"
	"github.com/kadena-io/chainweb-indexer/store"
)

var logger = log.NewModuleLogger(log.Publish)

const (
	DefaultReplicas   = 1
	DefaultPartitions = 1
)

// Config names the Kafka cluster and topic events are republished to.
type Config struct {
	Brokers    []string
	Topic      string
	Partitions int32
	Replicas   int16
}

// DefaultConfig returns a Config for brokers and topic with
// DefaultPartitions and DefaultReplicas. The producer settings
// (synchronous acknowledgement of successes and the highest protocol
// version the client supports) are applied by NewPublisher, not here.
func DefaultConfig(brokers []string, topic string) Config {
	return Config{
		Brokers:    brokers,
		Topic:      topic,
		Partitions: DefaultPartitions,
		Replicas:   DefaultReplicas,
	}
}

// Publisher republishes store.EventDoc values onto a Kafka topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a synchronous Kafka producer against cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Version = sarama.MaxVersion

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "connecting kafka producer")
	}
	return &Publisher{producer: producer, topic: cfg.Topic}, nil
}

// Publish republishes one event as a JSON-encoded Kafka message, keyed
// by event name so a single topic can be partitioned by consumer
// interest.
func (p *Publisher) Publish(doc store.EventDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding event for publish")
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(doc.Name),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		logger.Error("failed to publish event", "name", doc.Name, "height", doc.Height, "err", err)
		return err
	}
	return nil
}

// Close releases the underlying producer's connections.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
