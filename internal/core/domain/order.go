package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusNoShow         OrderStatus = "no-show"
)

// orderTransitions is the single source of truth for status changes.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled, OrderStatusNoShow},
	OrderStatusPreparing:      {OrderStatusReady},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCompleted, OrderStatusNoShow},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      nil,
	OrderStatusCompleted:      nil,
	OrderStatusCancelled:      nil,
	OrderStatusNoShow:         nil,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether an order in s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable is true only for pending and confirmed orders.
func (s OrderStatus) Cancellable() bool {
	return s.CanTransition(OrderStatusCancelled)
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeTakeout  OrderType = "takeout"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeDelivery, OrderTypeTakeout:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile:
		return true
	}
	return false
}

// EstimatedPrepDuration is fixed; item preparation times are not summed.
const EstimatedPrepDuration = 30 * time.Minute

// OrderItem is a snapshot of the product at order time.
type OrderItem struct {
	ProductID    string `json:"productId" bson:"productId"`
	Name         string `json:"name" bson:"name"`
	Price        int64  `json:"price" bson:"price"`
	Quantity     int    `json:"quantity" bson:"quantity"`
	Instructions string `json:"specialInstructions,omitempty" bson:"instructions,omitempty"`
}

type Address struct {
	Label      string `json:"label,omitempty" bson:"label,omitempty"`
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type Order struct {
	ID                 string        `json:"id" bson:"_id"`
	OrderNumber        string        `json:"orderNumber" bson:"orderNumber"`
	UserID             string        `json:"userId" bson:"userId"`
	Items              []OrderItem   `json:"items" bson:"items"`
	Subtotal           int64         `json:"subtotal" bson:"subtotal"`
	Tax                int64         `json:"tax" bson:"tax"`
	DeliveryFee        int64         `json:"deliveryFee" bson:"deliveryFee"`
	Total              int64         `json:"total" bson:"total"`
	OrderType          OrderType     `json:"orderType" bson:"orderType"`
	TableNumber        int           `json:"tableNumber,omitempty" bson:"tableNumber,omitempty"`
	DeliveryAddress    *Address      `json:"deliveryAddress,omitempty" bson:"deliveryAddress,omitempty"`
	PaymentMethod      PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	Notes              string        `json:"notes,omitempty" bson:"notes,omitempty"`
	Status             OrderStatus   `json:"status" bson:"status"`
	EstimatedReadyTime time.Time     `json:"estimatedReadyTime" bson:"estimatedReadyTime"`
	CreatedAt          time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt" bson:"updatedAt"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CancelledAt        *time.Time    `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
}

// Clone returns a deep copy.
func (o Order) Clone() Order {
	out := o
	out.Items = append([]OrderItem(nil), o.Items...)
	if o.DeliveryAddress != nil {
		addr := *o.DeliveryAddress
		out.DeliveryAddress = &addr
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		out.CompletedAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		out.CancelledAt = &t
	}
	return out
}

// Contains reports whether the order has a line for the product.
func (o Order) Contains(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// ApplyStatus sets status and the timestamps tied to it. Callers check
// CanTransition first.
func (o *Order) ApplyStatus(next OrderStatus, reason string, now time.Time) {
	o.Status = next
	o.UpdatedAt = now
	switch next {
	case OrderStatusDelivered, OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancellationReason = reason
	}
}

// StockLine is one product/quantity pair to decrement or restore.
type StockLine struct {
	ProductID string
	Quantity  int
}

func (o Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// OrderFilter narrows order listings. Empty UserID lists every user.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Page   Page
}

// TrackingInfo is the public view returned by order-number lookups.
type TrackingInfo struct {
	OrderNumber        string      `json:"orderNumber"`
	Status             OrderStatus `json:"status"`
	OrderType          OrderType   `json:"orderType"`
	Items              []OrderItem `json:"items"`
	Total              int64       `json:"total"`
	EstimatedReadyTime time.Time   `json:"estimatedReadyTime"`
	CreatedAt          time.Time   `json:"createdAt"`
}

func (o Order) Tracking() TrackingInfo {
	return TrackingInfo{
		OrderNumber:        o.OrderNumber,
		Status:             o.Status,
		OrderType:          o.OrderType,
		Items:              o.Items,
		Total:              o.Total,
		EstimatedReadyTime: o.EstimatedReadyTime,
		CreatedAt:          o.CreatedAt,
	}
}
