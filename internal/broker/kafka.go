package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"pulsegen/internal/config"
	"pulsegen/internal/logger"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaProducer builds a producer for one bootstrap endpoint. The
// hash balancer keeps messages with the same key on the same partition.
func NewKafkaProducer(bootstrap string, cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(bootstrap, ",")...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		BatchSize:              cfg.BatchSize,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   key,
			Value: value,
			Time:  time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NewFactory returns a Factory bound to the shared Kafka tuning options.
func NewFactory(cfg config.KafkaConfig, log logger.Logger) Factory {
	return func(bootstrap string) Producer {
		return NewKafkaProducer(bootstrap, cfg, log)
	}
}
