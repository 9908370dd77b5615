package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

// Publisher writes executed trades to a Redis stream for durable consumers
// and mirrors them on a pub/sub channel for live ones.
type Publisher struct {
	rdb     *redis.Client
	stream  string
	channel string
}

func New(rdb *redis.Client, stream, channel string) *Publisher {
	if strings.TrimSpace(stream) == "" {
		stream = "stockx:trades"
	}
	if strings.TrimSpace(channel) == "" {
		channel = stream + ":pub"
	}
	return &Publisher{rdb: rdb, stream: stream, channel: channel}
}

func (p *Publisher) PublishTrade(ctx context.Context, ev *domain.TradeEvent) error {
	// 1) Stream: XADD <stream> * side symbol amount price user_id ...
	_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"side":     ev.Side,
			"symbol":   ev.Symbol,
			"amount":   ev.Amount.String(),
			"price":    ev.Price.String(),
			"user_id":  ev.UserID,
			"quantity": ev.Quantity.String(),
			"balance":  ev.Balance.String(),
			"ts_ms":    ev.Ts,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

var _ port.TradePublisher = (*Publisher)(nil)
