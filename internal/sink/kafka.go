package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// Kafka publishes events as JSON messages keyed by symbol.
type Kafka struct {
	producer *kafka.Producer
	topic    string
	logger   *logrus.Logger
}

// NewKafka creates a Kafka sink and starts its delivery report loop.
func NewKafka(broker, topic string, logger *logrus.Logger) (*Kafka, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	k := &Kafka{producer: producer, topic: topic, logger: logger}

	go func() {
		for e := range producer.Events() {
			if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
				logger.Errorf("Message delivery failed: %v", ev.TopicPartition.Error)
			}
		}
	}()

	logger.Info("Kafka producer initialized")
	return k, nil
}

func (k *Kafka) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(ev.Symbol),
		Value:          payload,
	}, nil)
}

// Close flushes pending messages and releases the producer.
func (k *Kafka) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
	k.logger.Info("Kafka producer closed")
}
