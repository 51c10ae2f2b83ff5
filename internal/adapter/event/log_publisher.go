package event

import (
	"context"
	"log/slog"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e domain.Event) error {
	p.log.InfoContext(ctx, "order event",
		"type", e.Type,
		"order_id", e.OrderID,
		"order_number", e.OrderNumber,
		"status", e.Status,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
