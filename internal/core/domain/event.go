package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// Event is published after an order changes. Delivery is best-effort.
type Event struct {
	ID          string      `json:"eventId"`
	Type        string      `json:"type"`
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	UserID      string      `json:"userId"`
	Status      OrderStatus `json:"status"`
	Total       int64       `json:"total"`
	CreatedAt   time.Time   `json:"createdAt"`
}
