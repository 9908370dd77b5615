package port

import (
	"context"

	"stockx/internal/domain"
)

// TradePublisher receives executed trades for downstream consumers (redis
// stream, websocket feed). Publishing is best-effort: a publish error never
// fails the command that produced the event.
type TradePublisher interface {
	PublishTrade(ctx context.Context, ev *domain.TradeEvent) error
}
