package service

import (
	"context"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

type noopPublisher struct{}

func NewNoopPublisher() port.TradePublisher { return &noopPublisher{} }

func (n *noopPublisher) PublishTrade(ctx context.Context, ev *domain.TradeEvent) error {
	return nil
}
