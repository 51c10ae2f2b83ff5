package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

const (
	UserOrdersPageLimit = 10
	AllOrdersPageLimit  = 50

	maxOrderNumberAttempts = 3
)

// OrderStore is the persistence an order workflow touches.
type OrderStore interface {
	port.ProductRepository
	port.CartRepository
	port.OrderRepository
	port.UserRepository
}

type OrderService struct {
	store  OrderStore
	locker port.Locker
	idem   port.IdempotencyStore
	options
}

func NewOrderService(store OrderStore, locker port.Locker, idem port.IdempotencyStore, opts ...Option) *OrderService {
	return &OrderService{store: store, locker: locker, idem: idem, options: buildOptions(opts)}
}

type PlaceOrderInput struct {
	UserID          string
	OrderType       domain.OrderType
	TableNumber     int
	DeliveryAddress *domain.Address
	PaymentMethod   domain.PaymentMethod
	Notes           string
	IdempotencyKey  string
}

func (in *PlaceOrderInput) normalize() error {
	const op = "order.Place"
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return domain.Invalid(op, "user ID is required")
	}
	if in.OrderType == "" {
		in.OrderType = domain.OrderTypeDineIn
	}
	if !in.OrderType.Valid() {
		return domain.Invalid(op, "unknown order type "+string(in.OrderType))
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentCash
	}
	if !in.PaymentMethod.Valid() {
		return domain.Invalid(op, "unknown payment method "+string(in.PaymentMethod))
	}
	if in.TableNumber < 0 {
		return domain.Invalid(op, "table number cannot be negative")
	}
	if in.OrderType == domain.OrderTypeDelivery {
		a := in.DeliveryAddress
		if a == nil || strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" {
			return domain.Invalid(op, "delivery address is required")
		}
	}
	if len(in.Notes) > domain.MaxInstructionsLength {
		return domain.Invalid(op, "notes are too long")
	}
	return nil
}

// PlaceOrder turns the user's cart into an order. Stock decrements and the
// order insert succeed or fail together.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (_ *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", in.UserID)))
	defer func() { endSpan(span, err) }()

	if err := in.normalize(); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		key := fmt.Sprintf("order:%s:%s", in.UserID, in.IdempotencyKey)
		ok, setErr := s.idem.SetIdempotency(ctx, key)
		if setErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", setErr)
		}
		if !ok {
			return nil, domain.NewError("order.Place", domain.ErrDuplicateRequest, in.IdempotencyKey, "")
		}
		defer func() {
			if err == nil {
				return
			}
			if clearErr := s.idem.ClearIdempotency(context.WithoutCancel(ctx), key); clearErr != nil {
				s.log.Warn("clear idempotency key failed", "key", key, "error", clearErr)
			}
		}()
	}

	var order *domain.Order
	err = withLock(ctx, s.locker, userLockKey(in.UserID), func() error {
		var placeErr error
		order, placeErr = s.placeLocked(ctx, in)
		return placeErr
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced()
	s.publish(ctx, domain.EventOrderCreated, *order)
	s.log.InfoContext(ctx, "saved order",
		"order_id", order.ID, "order_number", order.OrderNumber, "user_id", order.UserID, "total", order.Total)
	return order, nil
}

func (s *OrderService) placeLocked(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	const op = "order.Place"

	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound(op, "user", in.UserID)
	}

	cart, err := s.store.GetCart(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.NewError(op, domain.ErrEmptyCart, in.UserID, "cart is empty")
	}

	products, err := s.store.GetProducts(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	lines := make([]domain.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, domain.NewError(op, domain.ErrProductUnavailable, it.ProductID, "a product in your cart is no longer available")
		}
		if !p.IsAvailable {
			return nil, domain.NewError(op, domain.ErrProductUnavailable, p.ID, p.Name+" is no longer available")
		}
		if p.Stock < it.Quantity {
			return nil, domain.NewError(op, domain.ErrInsufficientStock, p.ID, "insufficient stock for "+p.Name)
		}
		items = append(items, domain.OrderItem{
			ProductID:    p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Quantity:     it.Quantity,
			Instructions: it.Instructions,
		})
		lines = append(lines, domain.Line{UnitPrice: p.Price, Quantity: it.Quantity, Available: true})
	}

	totals := domain.ComputeTotals(lines)
	now := s.now()
	order := domain.Order{
		ID:                 s.newID(),
		OrderNumber:        domain.NewOrderNumber(now),
		UserID:             in.UserID,
		Items:              items,
		Subtotal:           totals.Subtotal,
		Tax:                totals.Tax,
		DeliveryFee:        totals.DeliveryFee,
		Total:              totals.Total,
		OrderType:          in.OrderType,
		PaymentMethod:      in.PaymentMethod,
		Notes:              in.Notes,
		Status:             domain.OrderStatusPending,
		EstimatedReadyTime: now.Add(domain.EstimatedPrepDuration),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	switch in.OrderType {
	case domain.OrderTypeDineIn:
		order.TableNumber = in.TableNumber
	case domain.OrderTypeDelivery:
		addr := *in.DeliveryAddress
		order.DeliveryAddress = &addr
	}

	if err := s.persist(ctx, &order); err != nil {
		return nil, err
	}

	if err := s.store.RecordOrder(ctx, in.UserID, domain.StatsFor(order.Total, now)); err != nil {
		s.log.ErrorContext(ctx, "failed to record user stats, reverting order", "order_id", order.ID, "error", err)
		s.revert(ctx, order)
		return nil, fmt.Errorf("record order stats: %w", err)
	}

	cart.Clear()
	cart.LastUpdated = now
	if err := s.store.SaveCart(ctx, cart); err != nil {
		s.log.ErrorContext(ctx, "failed to clear cart after order", "order_id", order.ID, "user_id", in.UserID, "error", err)
	}
	return &order, nil
}

// persist retries with a fresh order number when the generated one collides.
func (s *OrderService) persist(ctx context.Context, order *domain.Order) error {
	for attempt := 1; ; attempt++ {
		err := s.insert(ctx, *order)
		if !errors.Is(err, domain.ErrDuplicate) || attempt == maxOrderNumberAttempts {
			return err
		}
		s.log.WarnContext(ctx, "order number collision, retrying", "order_number", order.OrderNumber)
		order.OrderNumber = domain.NewOrderNumber(order.CreatedAt)
	}
}

func (s *OrderService) insert(ctx context.Context, order domain.Order) error {
	if placer, ok := s.store.(port.OrderPlacer); ok {
		return placer.PlaceOrder(ctx, order)
	}
	return s.placeSaga(ctx, order)
}

// placeSaga decrements each line and then inserts the order, undoing the
// applied decrements on the first failure.
func (s *OrderService) placeSaga(ctx context.Context, order domain.Order) error {
	applied := make([]domain.StockLine, 0, len(order.Items))
	for _, it := range order.Items {
		ok, err := s.store.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil || !ok {
			s.compensate(ctx, order.ID, applied)
			if err != nil {
				return fmt.Errorf("stock decrement failed: %w", err)
			}
			return domain.NewError("order.Place", domain.ErrInsufficientStock, it.ProductID, "insufficient stock for "+it.Name)
		}
		applied = append(applied, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.log.ErrorContext(ctx, "failed to save order", "order_id", order.ID, "error", err)
		s.compensate(ctx, order.ID, applied)
		return err
	}
	return nil
}

// revert undoes a persisted order whose follow-up steps failed. Stock is
// returned only once the order is gone; an order left on record keeps its
// decrements so a later cancel restores them exactly once.
func (s *OrderService) revert(ctx context.Context, order domain.Order) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.DeleteOrder(ctx, order.ID); err != nil {
		s.log.ErrorContext(ctx, "CRITICAL failed to delete reverted order, stock left reserved",
			"order_id", order.ID, "error", err)
		return
	}
	s.compensate(ctx, order.ID, order.StockLines())
}

func (s *OrderService) compensate(ctx context.Context, orderID string, lines []domain.StockLine) {
	if len(lines) == 0 {
		return
	}
	restored := s.restock(ctx, orderID, lines)
	s.metrics.Compensated(restored)
	s.log.WarnContext(ctx, "rolled back stock", "order_id", orderID, "lines", restored)
}

// restock returns stock for every line and reports how many succeeded.
// It keeps going after a failure so one bad line cannot strand the rest.
func (s *OrderService) restock(ctx context.Context, orderID string, lines []domain.StockLine) int {
	ctx = context.WithoutCancel(ctx)
	restored := 0
	for _, line := range lines {
		if err := s.store.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.log.ErrorContext(ctx, "CRITICAL rollback failed",
				"order_id", orderID, "product_id", line.ProductID, "quantity", line.Quantity, "error", err)
			continue
		}
		restored++
	}
	return restored
}

// Cancel moves a pending or confirmed order to cancelled and restores its
// stock. Loyalty points and spend already granted are kept.
func (s *OrderService) Cancel(ctx context.Context, orderID, reason string) (_ *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.Cancel",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	return s.transition(ctx, "order.Cancel", orderID, domain.OrderStatusCancelled, reason)
}

// UpdateStatus applies an operator status change through the same
// transition rules as Cancel.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (_ *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", orderID), attribute.String("order.status", string(status))))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return nil, domain.Invalid("order.UpdateStatus", "invalid status "+string(status))
	}
	return s.transition(ctx, "order.UpdateStatus", orderID, status, "")
}

func (s *OrderService) transition(ctx context.Context, op, orderID string, next domain.OrderStatus, reason string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.NotFound(op, "order", orderID)
	}

	from := order.Status
	if !from.CanTransition(next) {
		msg := fmt.Sprintf("cannot change order status from %s to %s", from, next)
		if next == domain.OrderStatusCancelled {
			msg = "order cannot be cancelled at this stage"
		}
		return nil, domain.NewError(op, domain.ErrInvalidState, orderID, msg)
	}

	updated := order.Clone()
	updated.ApplyStatus(next, reason, s.now())
	if err := s.store.UpdateOrderStatus(ctx, updated, from); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.NewError(op, domain.ErrInvalidState, orderID, "order status changed concurrently")
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if next == domain.OrderStatusCancelled {
		s.restock(ctx, orderID, updated.StockLines())
		s.metrics.OrderCancelled()
		s.publish(ctx, domain.EventOrderCancelled, updated)
		s.log.InfoContext(ctx, "cancelled order", "order_id", orderID, "from", from)
	} else {
		s.publish(ctx, domain.EventOrderStatusChanged, updated)
		s.log.InfoContext(ctx, "order status changed", "order_id", orderID, "from", from, "to", next)
	}
	return &updated, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.NotFound("order.Get", "order", orderID)
	}
	return order, nil
}

func (s *OrderService) Track(ctx context.Context, orderNumber string) (*domain.TrackingInfo, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.NotFound("order.Track", "order", orderNumber)
	}
	info := order.Tracking()
	return &info, nil
}

// ListOrders lists newest first. An empty userID lists every user's orders.
func (s *OrderService) ListOrders(ctx context.Context, userID string, status domain.OrderStatus, page domain.Page) ([]domain.Order, domain.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Pagination{}, domain.Invalid("order.List", "invalid status "+string(status))
	}
	orders, total, err := s.store.ListOrders(ctx, domain.OrderFilter{UserID: userID, Status: status, Page: page})
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	return orders, domain.NewPagination(page, total), nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order domain.Order) {
	if s.events == nil {
		return
	}
	e := domain.Event{
		ID:          s.newID(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
		CreatedAt:   s.now(),
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.WarnContext(ctx, "failed to publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
}
