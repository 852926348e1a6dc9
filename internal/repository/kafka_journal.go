package repository

import (
	"context"
	"fmt"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/domain/repository"
	"PulseTrade/pkg/kafka"
)

const (
	// DefaultOpenTopic carries trade open events.
	DefaultOpenTopic = "trades.opened"
	// DefaultCloseTopic carries trade settlement events.
	DefaultCloseTopic = "trades.closed"
)

// KafkaJournal publishes trade lifecycle events to Kafka, keyed by
// symbol so one symbol's history stays ordered within a partition.
type KafkaJournal struct {
	producer   *kafka.Producer
	openTopic  string
	closeTopic string
}

var _ repository.Journal = (*KafkaJournal)(nil)

func NewKafkaJournal(producer *kafka.Producer, openTopic, closeTopic string) *KafkaJournal {
	if openTopic == "" {
		openTopic = DefaultOpenTopic
	}
	if closeTopic == "" {
		closeTopic = DefaultCloseTopic
	}
	return &KafkaJournal{producer: producer, openTopic: openTopic, closeTopic: closeTopic}
}

func (j *KafkaJournal) RecordOpen(ctx context.Context, ev models.TradeOpened) error {
	if err := j.producer.Publish(ctx, j.openTopic, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("journal open trade %d: %w", ev.ID, err)
	}
	return nil
}

func (j *KafkaJournal) RecordClose(ctx context.Context, ev models.TradeSettled) error {
	if err := j.producer.Publish(ctx, j.closeTopic, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("journal close trade %d: %w", ev.ID, err)
	}
	return nil
}

func (j *KafkaJournal) Close() error {
	return j.producer.Close()
}
