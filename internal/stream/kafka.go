package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fluxCapacitor/internal/model"
)

// KafkaConfig selects the topic carrying JSON streamer messages.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes streamer messages from a Kafka topic. An offset is
// committed once its message has been handed to the consumer.
type KafkaSource struct {
	reader messageReader
	logger *zap.Logger
}

// NewKafkaSource creates a consumer-group reader for cfg.
func NewKafkaSource(cfg KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("incomplete kafka configuration: brokers, topic, group id are all required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		SessionTimeout: 30 * time.Second,
		StartOffset:    kafka.FirstOffset,
	}
	switch cfg.StartOffset {
	case "", "earliest":
	case "latest":
		readerConfig.StartOffset = kafka.LastOffset
	default:
		return nil, fmt.Errorf("unknown start offset %q", cfg.StartOffset)
	}

	logger.Info("kafka source created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
	)
	return &KafkaSource{reader: kafka.NewReader(readerConfig), logger: logger}, nil
}

func (s *KafkaSource) Stream(ctx context.Context, out chan<- model.StreamerMessage) error {
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		msg, err := model.ParseStreamerMessage(m.Value)
		if err != nil {
			s.logger.Warn("skip malformed streamer message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		} else if err := send(ctx, out, msg); err != nil {
			return err
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit offset %d: %w", m.Offset, err)
		}
	}
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
