package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/domain/repository"
)

const (
	// DefaultStream is the Redis stream holding trade events.
	DefaultStream = "pulsetrade:trades"
	// streamMaxLen bounds the stream with approximate trimming.
	streamMaxLen = 10000
)

// RedisJournal appends trade lifecycle events to a capped Redis stream,
// a lightweight backend for single-host deployments.
type RedisJournal struct {
	cli    *redis.Client
	stream string
}

var _ repository.Journal = (*RedisJournal)(nil)

func NewRedisJournal(cli *redis.Client, stream string) *RedisJournal {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisJournal{cli: cli, stream: stream}
}

func (j *RedisJournal) RecordOpen(ctx context.Context, ev models.TradeOpened) error {
	return j.append(ctx, "open", ev.ID, ev)
}

func (j *RedisJournal) RecordClose(ctx context.Context, ev models.TradeSettled) error {
	return j.append(ctx, "close", ev.ID, ev)
}

func (j *RedisJournal) append(ctx context.Context, kind string, id int64, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("journal %s trade %d: %w", kind, id, err)
	}
	err = j.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: j.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"kind": kind, "event": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("journal %s trade %d: %w", kind, id, err)
	}
	return nil
}

func (j *RedisJournal) Close() error {
	return j.cli.Close()
}
