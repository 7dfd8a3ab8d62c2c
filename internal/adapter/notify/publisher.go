// Package notify delivers committed ledger events to subscribers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"kidot-ledger/internal/domain/events"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher PUBLISHes each event as JSON on one channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	pipe := p.rdb.Pipeline()
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, p.channel, payload)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// LogPublisher writes events to the structured log.
type LogPublisher struct{ log *slog.Logger }

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	for _, ev := range evs {
		p.log.InfoContext(ctx, "event",
			"kind", ev.Kind,
			"event_id", ev.ID,
			"loan_id", ev.LoanID,
			"account", ev.Account,
			"amount", ev.Amount,
		)
	}
	return nil
}

// Multi fans events out to every publisher and joins their errors.
type Multi []events.Publisher

func (m Multi) Publish(ctx context.Context, evs ...events.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
