package composite

import (
	"context"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

type Publisher struct {
	pubs []port.TradePublisher
}

func New(pubs ...port.TradePublisher) *Publisher {
	// nil publishers are allowed; filter in constructor for safety
	out := make([]port.TradePublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Publisher{pubs: out}
}

func (c *Publisher) PublishTrade(ctx context.Context, ev *domain.TradeEvent) error {
	var firstErr error
	for _, p := range c.pubs {
		if err := p.PublishTrade(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
