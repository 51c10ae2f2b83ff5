package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

// MemoryAdapter keeps every collection in maps behind one mutex. Records
// are copied on the way in and out so callers never share memory with the
// store.
type MemoryAdapter struct {
	mu           sync.Mutex
	products     map[string]domain.Product
	carts        map[string]*domain.Cart
	orders       map[string]domain.Order
	orderNumbers map[string]string // orderNumber -> id
	users        map[string]domain.User
	emails       map[string]string // email -> id
	reviews      map[string]domain.Review
	reviewPairs  map[string]string // productID|userID -> id
	reservations map[string]domain.Reservation
	codes        map[string]string // confirmationCode -> id
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		products:     make(map[string]domain.Product),
		carts:        make(map[string]*domain.Cart),
		orders:       make(map[string]domain.Order),
		orderNumbers: make(map[string]string),
		users:        make(map[string]domain.User),
		emails:       make(map[string]string),
		reviews:      make(map[string]domain.Review),
		reviewPairs:  make(map[string]string),
		reservations: make(map[string]domain.Reservation),
		codes:        make(map[string]string),
	}
}

func (m *MemoryAdapter) Ping(ctx context.Context) error  { return nil }
func (m *MemoryAdapter) Close(ctx context.Context) error { return nil }

// Products

func (m *MemoryAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	p.Tags = slices.Clone(p.Tags)
	return &p, nil
}

func (m *MemoryAdapter) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			p.Tags = slices.Clone(p.Tags)
			out[id] = p
		}
	}
	return out, nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	m.mu.Lock()
	matched := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if filter.Match(p) {
			p.Tags = slices.Clone(p.Tags)
			matched = append(matched, p)
		}
	}
	m.mu.Unlock()

	slices.SortFunc(matched, byLess(filter.Less))
	start, end := filter.Page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (m *MemoryAdapter) SaveProduct(ctx context.Context, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product.Tags = slices.Clone(product.Tags)
	m.products[product.ID] = product
	return nil
}

func (m *MemoryAdapter) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	m.products[productID] = p
	return true, nil
}

func (m *MemoryAdapter) IncrementStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.NotFound("memory.IncrementStock", "product", productID)
	}
	p.Stock += quantity
	m.products[productID] = p
	return nil
}

func (m *MemoryAdapter) SetProductRating(ctx context.Context, productID string, rating domain.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.NotFound("memory.SetProductRating", "product", productID)
	}
	p.Rating = rating
	m.products[productID] = p
	return nil
}

// Carts

func (m *MemoryAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (m *MemoryAdapter) SaveCart(ctx context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[cart.UserID] = cart.Clone()
	return nil
}

// Orders

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.orderNumbers[order.OrderNumber]; taken {
		return domain.NewError("memory.CreateOrder", domain.ErrDuplicate, order.OrderNumber, "order number already used")
	}
	if _, taken := m.orders[order.ID]; taken {
		return domain.NewError("memory.CreateOrder", domain.ErrDuplicate, order.ID, "order id already used")
	}
	m.orders[order.ID] = order.Clone()
	m.orderNumbers[order.OrderNumber] = order.ID
	return nil
}

func (m *MemoryAdapter) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.orders[id]; ok {
		delete(m.orderNumbers, o.OrderNumber)
		delete(m.orders, id)
	}
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o = o.Clone()
	return &o, nil
}

func (m *MemoryAdapter) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	m.mu.Lock()
	id, ok := m.orderNumbers[orderNumber]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.GetOrder(ctx, id)
}

func (m *MemoryAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	matched := make([]domain.Order, 0)
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o.Clone())
	}
	m.mu.Unlock()

	slices.SortFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	start, end := filter.Page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (m *MemoryAdapter) UpdateOrderStatus(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.orders[order.ID]
	if !ok {
		return domain.NotFound("memory.UpdateOrderStatus", "order", order.ID)
	}
	if current.Status != from {
		return domain.NewError("memory.UpdateOrderStatus", domain.ErrConflict, order.ID, "")
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MemoryAdapter) HasPurchased(ctx context.Context, userID, productID, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if orderID != "" && o.ID != orderID {
			continue
		}
		if o.UserID != userID || !o.Contains(productID) {
			continue
		}
		if o.Status == domain.OrderStatusDelivered || o.Status == domain.OrderStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

// Users

func (m *MemoryAdapter) CreateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[user.Email]; taken {
		return domain.NewError("memory.CreateUser", domain.ErrDuplicate, user.Email, "email already registered")
	}
	m.users[user.ID] = user
	m.emails[user.Email] = user.ID
	return nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryAdapter) RecordOrder(ctx context.Context, userID string, stats domain.OrderStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return domain.NotFound("memory.RecordOrder", "user", userID)
	}
	u.Apply(stats)
	m.users[userID] = u
	return nil
}

// Reviews

func reviewPairKey(productID, userID string) string {
	return productID + "|" + userID
}

func (m *MemoryAdapter) CreateReview(ctx context.Context, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reviewPairKey(review.ProductID, review.UserID)
	if _, taken := m.reviewPairs[key]; taken {
		return domain.NewError("memory.CreateReview", domain.ErrDuplicate, review.ProductID, "you have already reviewed this product")
	}
	m.reviews[review.ID] = review.Clone()
	m.reviewPairs[key] = review.ID
	return nil
}

func (m *MemoryAdapter) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reviews[id]
	if !ok {
		return nil, nil
	}
	r = r.Clone()
	return &r, nil
}

func (m *MemoryAdapter) UpdateReview(ctx context.Context, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reviews[review.ID]; !ok {
		return domain.NotFound("memory.UpdateReview", "review", review.ID)
	}
	m.reviews[review.ID] = review.Clone()
	return nil
}

func (m *MemoryAdapter) DeleteReview(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.reviews[id]; ok {
		delete(m.reviewPairs, reviewPairKey(r.ProductID, r.UserID))
		delete(m.reviews, id)
	}
	return nil
}

func (m *MemoryAdapter) ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error) {
	m.mu.Lock()
	matched := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if filter.ProductID != "" && r.ProductID != filter.ProductID {
			continue
		}
		if filter.VisibleOnly && !r.IsVisible {
			continue
		}
		matched = append(matched, r.Clone())
	}
	m.mu.Unlock()

	slices.SortFunc(matched, byLess(filter.Less))
	start, end := filter.Page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (m *MemoryAdapter) VisibleRatings(ctx context.Context, productID string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ratings := make([]int, 0)
	for _, r := range m.reviews {
		if r.ProductID == productID && r.IsVisible {
			ratings = append(ratings, r.Rating)
		}
	}
	return ratings, nil
}

// Reservations

func (m *MemoryAdapter) CreateReservation(ctx context.Context, reservation domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[reservation.ConfirmationCode]; taken {
		return domain.NewError("memory.CreateReservation", domain.ErrDuplicate, reservation.ConfirmationCode, "confirmation code already used")
	}
	m.reservations[reservation.ID] = reservation.Clone()
	m.codes[reservation.ConfirmationCode] = reservation.ID
	return nil
}

func (m *MemoryAdapter) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	r = r.Clone()
	return &r, nil
}

func (m *MemoryAdapter) GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	m.mu.Lock()
	id, ok := m.codes[code]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.GetReservation(ctx, id)
}

func (m *MemoryAdapter) UpdateReservation(ctx context.Context, reservation domain.Reservation, from domain.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.reservations[reservation.ID]
	if !ok {
		return domain.NotFound("memory.UpdateReservation", "reservation", reservation.ID)
	}
	if current.Status != from {
		return domain.NewError("memory.UpdateReservation", domain.ErrConflict, reservation.ID, "")
	}
	m.reservations[reservation.ID] = reservation.Clone()
	return nil
}

func (m *MemoryAdapter) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	m.mu.Lock()
	matched := make([]domain.Reservation, 0)
	for _, r := range m.reservations {
		if filter.Match(r) {
			matched = append(matched, r.Clone())
		}
	}
	m.mu.Unlock()

	slices.SortFunc(matched, func(a, b domain.Reservation) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := strings.Compare(b.Time, a.Time); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// byLess adapts a strict ordering to slices.SortFunc.
func byLess[T any](less func(a, b T) bool) func(a, b T) int {
	return func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	}
}
