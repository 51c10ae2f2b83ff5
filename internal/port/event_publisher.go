package port

import (
	"context"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
