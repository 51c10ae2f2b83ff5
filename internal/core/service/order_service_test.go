package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/storage"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*storage.MemoryAdapter

	createErrs    []error // returned by successive CreateOrder calls
	recordErr     error
	deleteErr     error
	saveCartErr   error
	exhaustOnCall string // DecrementStock reports false for this product
}

func (f *faultyStore) CreateOrder(ctx context.Context, order domain.Order) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	return f.MemoryAdapter.CreateOrder(ctx, order)
}

func (f *faultyStore) RecordOrder(ctx context.Context, userID string, stats domain.OrderStats) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	return f.MemoryAdapter.RecordOrder(ctx, userID, stats)
}

func (f *faultyStore) DeleteOrder(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryAdapter.DeleteOrder(ctx, id)
}

func (f *faultyStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if f.saveCartErr != nil && len(cart.Items) == 0 {
		return f.saveCartErr
	}
	return f.MemoryAdapter.SaveCart(ctx, cart)
}

func (f *faultyStore) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	if productID == f.exhaustOnCall {
		return false, nil
	}
	return f.MemoryAdapter.DecrementStock(ctx, productID, quantity)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// stepClock advances one second per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store  *faultyStore
	orders *OrderService
	carts  *CartService
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &faultyStore{MemoryAdapter: storage.NewMemoryAdapter()}
	locker := storage.NewMemoryLocker()
	events := &recordingPublisher{}
	clock := newStepClock()
	return &fixture{
		store:  store,
		orders: NewOrderService(store, locker, storage.NewMemoryIdempotency(time.Hour), WithEvents(events), WithClock(clock.Now)),
		carts:  NewCartService(store, locker, WithClock(clock.Now)),
		events: events,
	}
}

func (f *fixture) product(t *testing.T, id string, price int64, stock int) {
	t.Helper()
	err := f.store.SaveProduct(context.Background(), domain.Product{
		ID:          id,
		Name:        "Item " + id,
		Description: "test item",
		Category:    domain.CategorySushi,
		Price:       price,
		Stock:       stock,
		IsAvailable: true,
	})
	if err != nil {
		t.Fatalf("save product: %v", err)
	}
}

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	err := f.store.CreateUser(context.Background(), domain.User{
		ID: id, Name: "User " + id, Email: id + "@example.com", Role: domain.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (f *fixture) add(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	if _, err := f.carts.AddItem(context.Background(), userID, productID, qty, ""); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.store.ListOrders(context.Background(), domain.OrderFilter{Page: domain.Page{Number: 1, Limit: 10}})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return total
}

func (f *fixture) cartSize(t *testing.T, userID string) int {
	t.Helper()
	cart, err := f.store.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart == nil {
		return 0
	}
	return len(cart.Items)
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 500, 5)
	f.add(t, "u1", "p1", 2)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if order.Subtotal != 1000 || order.Tax != 50 || order.DeliveryFee != 50 || order.Total != 1100 {
		t.Errorf("unexpected totals %d/%d/%d/%d", order.Subtotal, order.Tax, order.DeliveryFee, order.Total)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending, got %s", order.Status)
	}
	if order.OrderType != domain.OrderTypeDineIn || order.PaymentMethod != domain.PaymentCash {
		t.Errorf("expected dine-in/cash defaults, got %s/%s", order.OrderType, order.PaymentMethod)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Errorf("unexpected order number %q", order.OrderNumber)
	}
	if got := order.EstimatedReadyTime.Sub(order.CreatedAt); got != domain.EstimatedPrepDuration {
		t.Errorf("expected ready time 30m after creation, got %v", got)
	}
	if s := f.stock(t, "p1"); s != 3 {
		t.Errorf("expected stock 3, got %d", s)
	}
	if n := f.cartSize(t, "u1"); n != 0 {
		t.Errorf("expected empty cart, got %d lines", n)
	}

	u, _ := f.store.GetUser(context.Background(), "u1")
	if u.TotalOrders != 1 || u.TotalSpent != 1100 || u.LoyaltyPoints != 11 || u.LastOrderDate == nil {
		t.Errorf("unexpected user stats %+v", u)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != domain.EventOrderCreated {
		t.Errorf("expected one created event, got %v", got)
	}
}

func TestPlaceOrder_FreeDeliveryAboveThreshold(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 600, 5)
	f.add(t, "u1", "p1", 2)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1", OrderType: domain.OrderTypeTakeout})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.Subtotal != 1200 || order.Tax != 60 || order.DeliveryFee != 0 || order.Total != 1260 {
		t.Errorf("unexpected totals %d/%d/%d/%d", order.Subtotal, order.Tax, order.DeliveryFee, order.Total)
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 1)

	cases := []struct {
		name string
		in   PlaceOrderInput
		want error
	}{
		{"missing user", PlaceOrderInput{}, domain.ErrInvalidInput},
		{"unknown type", PlaceOrderInput{UserID: "u1", OrderType: "drive-thru"}, domain.ErrInvalidInput},
		{"unknown payment", PlaceOrderInput{UserID: "u1", PaymentMethod: "barter"}, domain.ErrInvalidInput},
		{"delivery without address", PlaceOrderInput{UserID: "u1", OrderType: domain.OrderTypeDelivery}, domain.ErrInvalidInput},
		{"notes too long", PlaceOrderInput{UserID: "u1", Notes: strings.Repeat("x", 501)}, domain.ErrInvalidInput},
		{"unknown user", PlaceOrderInput{UserID: "ghost"}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orders.PlaceOrder(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if s := f.stock(t, "p1"); s != 5 {
		t.Errorf("expected stock untouched, got %d", s)
	}
}

func TestPlaceOrder_DeliveryKeepsAddress(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 1)

	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:          "u1",
		OrderType:       domain.OrderTypeDelivery,
		TableNumber:     7,
		DeliveryAddress: &domain.Address{Street: "1 Sakura St", City: "Dhaka"},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DeliveryAddress == nil || order.DeliveryAddress.City != "Dhaka" {
		t.Errorf("expected delivery address, got %+v", order.DeliveryAddress)
	}
	if order.TableNumber != 0 {
		t.Errorf("table number should only apply to dine-in, got %d", order.TableNumber)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 3)
	f.product(t, "p1", 100, 2)

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 2 {
		t.Errorf("expected stock 2, got %d", s)
	}
	if n := f.cartSize(t, "u1"); n != 1 {
		t.Errorf("expected cart kept, got %d lines", n)
	}
	if n := f.orderCount(t); n != 0 {
		t.Errorf("expected no orders, got %d", n)
	}
}

func TestPlaceOrder_UnavailableProduct(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 1)

	p, _ := f.store.GetProduct(context.Background(), "p1")
	p.IsAvailable = false
	_ = f.store.SaveProduct(context.Background(), *p)

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if !errors.Is(err, domain.ErrProductUnavailable) {
		t.Errorf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestPlaceOrder_CompensatesWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.product(t, "p2", 200, 4)
	f.add(t, "u1", "p1", 2)
	f.add(t, "u1", "p2", 1)
	f.store.createErrs = []error{errors.New("disk full")}

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if s := f.stock(t, "p1"); s != 5 {
		t.Errorf("expected p1 stock restored to 5, got %d", s)
	}
	if s := f.stock(t, "p2"); s != 4 {
		t.Errorf("expected p2 stock restored to 4, got %d", s)
	}
	if n := f.cartSize(t, "u1"); n != 2 {
		t.Errorf("expected cart kept, got %d lines", n)
	}
}

func TestPlaceOrder_CompensatesWhenLaterLineRunsOut(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.product(t, "p2", 200, 4)
	f.add(t, "u1", "p1", 2)
	f.add(t, "u1", "p2", 1)
	f.store.exhaustOnCall = "p2"

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 5 {
		t.Errorf("expected p1 stock restored to 5, got %d", s)
	}
	if n := f.orderCount(t); n != 0 {
		t.Errorf("expected no orders, got %d", n)
	}
}

func TestPlaceOrder_RevertsWhenStatsFail(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 2)
	f.store.recordErr = errors.New("write conflict")

	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := f.orderCount(t); n != 0 {
		t.Errorf("expected reverted order to be deleted, got %d orders", n)
	}
	if s := f.stock(t, "p1"); s != 5 {
		t.Errorf("expected stock restored to 5, got %d", s)
	}
	if n := f.cartSize(t, "u1"); n != 1 {
		t.Errorf("expected cart kept, got %d lines", n)
	}
}

func TestPlaceOrder_RevertKeepsStockWhenDeleteFails(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 2)
	f.store.recordErr = errors.New("users down")
	f.store.deleteErr = errors.New("orders down")
	ctx := context.Background()

	if _, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1"}); err == nil {
		t.Fatal("expected error")
	}

	// The order could not be removed, so its decrement must stay in place.
	orders, total, err := f.store.ListOrders(ctx, domain.OrderFilter{Page: domain.Page{Number: 1, Limit: 10}})
	if err != nil || total != 1 {
		t.Fatalf("expected the stranded order on record, got %d (%v)", total, err)
	}
	if s := f.stock(t, "p1"); s != 3 {
		t.Fatalf("expected stock 3 while the order exists, got %d", s)
	}

	if _, err := f.orders.Cancel(ctx, orders[0].ID, "cleanup"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.orders.Cancel(ctx, orders[0].ID, "cleanup"); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on second cancel, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 5 {
		t.Errorf("expected stock restored to 5 exactly once, got %d", s)
	}
}

func TestPlaceOrder_CartClearFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 2)
	f.store.saveCartErr = errors.New("timeout")

	if _, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if n := f.orderCount(t); n != 1 {
		t.Errorf("expected 1 order, got %d", n)
	}
	if s := f.stock(t, "p1"); s != 3 {
		t.Errorf("expected stock 3, got %d", s)
	}
}

func TestPlaceOrder_RetriesOrderNumberCollision(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 2)
	f.store.createErrs = []error{domain.ErrDuplicate}

	if _, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 3 {
		t.Errorf("expected stock decremented once, got %d", s)
	}
}

func TestPlaceOrder_Idempotency(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	ctx := context.Background()

	// A failed attempt releases the key.
	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", IdempotencyKey: "req-1"})
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	f.add(t, "u1", "p1", 1)
	if _, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", IdempotencyKey: "req-1"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	f.add(t, "u1", "p1", 1)
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", IdempotencyKey: "req-1"})
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got %v", err)
	}
	if n := f.orderCount(t); n != 1 {
		t.Errorf("expected 1 order, got %d", n)
	}
}

func TestPlaceOrder_IdempotencyKeyReleasedAfterStockFailure(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1")
	f.product(t, "p1", 100, 5)
	f.add(t, "u1", "p1", 3)
	f.product(t, "p1", 100, 1)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", IdempotencyKey: "k"})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	f.product(t, "p1", 100, 5)
	if _, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", IdempotencyKey: "k"}); err != nil {
		t.Fatalf("expected retry with the same key to succeed, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 2 {
		t.Errorf("expected stock 2, got %d", s)
	}
}

func TestPlaceOrder_Concurrency(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", 100, 10)

	const buyers = 30
	for i := range buyers {
		id := fmt.Sprintf("u%d", i)
		f.user(t, id)
		f.add(t, id, "p1", 1)
	}

	var wg sync.WaitGroup
	var success int32
	for i := range buyers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: id}); err == nil {
				atomic.AddInt32(&success, 1)
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	if success != 10 {
		t.Errorf("expected 10 successful orders, got %d", success)
	}
	if s := f.stock(t, "p1"); s != 0 {
		t.Errorf("expected stock 0, got %d", s)
	}
	if n := f.orderCount(t); n != 10 {
		t.Errorf("expected 10 stored orders, got %d", n)
	}
}

func placeOne(t *testing.T, f *fixture, qty int) *domain.Order {
	t.Helper()
	f.user(t, "u1")
	f.product(t, "p1", 300, 10)
	f.add(t, "u1", "p1", qty)
	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f, 3)
	ctx := context.Background()

	cancelled, err := f.orders.Cancel(ctx, order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("unexpected cancelled order %+v", cancelled)
	}
	if cancelled.CancellationReason != "changed my mind" {
		t.Errorf("unexpected reason %q", cancelled.CancellationReason)
	}
	if s := f.stock(t, "p1"); s != 10 {
		t.Errorf("expected stock 10, got %d", s)
	}

	if _, err := f.orders.Cancel(ctx, order.ID, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on second cancel, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 10 {
		t.Errorf("expected stock still 10, got %d", s)
	}

	// Loyalty stats are not clawed back.
	u, _ := f.store.GetUser(ctx, "u1")
	if u.TotalOrders != 1 || u.LoyaltyPoints == 0 {
		t.Errorf("expected stats kept, got %+v", u)
	}

	got := f.events.types()
	if len(got) != 2 || got[1] != domain.EventOrderCancelled {
		t.Errorf("expected created then cancelled events, got %v", got)
	}
}

func TestCancel_FromPreparingFails(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f, 2)
	ctx := context.Background()

	if _, err := f.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPreparing); err != nil {
		t.Fatalf("update status: %v", err)
	}
	_, err := f.orders.Cancel(ctx, order.ID, "")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if s := f.stock(t, "p1"); s != 8 {
		t.Errorf("expected stock 8, got %d", s)
	}
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orders.Cancel(context.Background(), "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f, 2)
	ctx := context.Background()

	if _, err := f.orders.UpdateStatus(ctx, order.ID, "teleported"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusCompleted,
	} {
		if _, err := f.orders.UpdateStatus(ctx, order.ID, next); err != nil {
			t.Fatalf("move to %s: %v", next, err)
		}
	}
	got, err := f.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusCompleted || got.CompletedAt == nil {
		t.Errorf("expected completed with timestamp, got %+v", got)
	}
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f, 4)
	ctx := context.Background()

	if _, err := f.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel via status: %v", err)
	}
	if s := f.stock(t, "p1"); s != 10 {
		t.Errorf("expected stock 10, got %d", s)
	}
}

func TestCancel_ConcurrentRestoresOnce(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f, 5)

	var wg sync.WaitGroup
	var success int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orders.Cancel(context.Background(), order.ID, ""); err == nil {
				atomic.AddInt32(&success, 1)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("expected exactly one cancel to succeed, got %d", success)
	}
	if s := f.stock(t, "p1"); s != 10 {
		t.Errorf("expected stock 10, got %d", s)
	}
}

func TestTrackAndList(t *testing.T) {
	f := newFixture(t)
	first := placeOne(t, f, 1)
	f.add(t, "u1", "p1", 1)
	second, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("place second: %v", err)
	}
	ctx := context.Background()

	info, err := f.orders.Track(ctx, first.OrderNumber)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if info.OrderNumber != first.OrderNumber || info.Status != domain.OrderStatusPending {
		t.Errorf("unexpected tracking info %+v", info)
	}
	if _, err := f.orders.Track(ctx, "ORD-000000-NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	orders, pg, err := f.orders.ListOrders(ctx, "u1", "", domain.NewPage(1, 0, UserOrdersPageLimit))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != second.ID {
		t.Errorf("expected newest first, got %d orders", len(orders))
	}
	if pg.Total != 2 || pg.Pages != 1 || pg.Limit != UserOrdersPageLimit {
		t.Errorf("unexpected pagination %+v", pg)
	}

	if _, _, err := f.orders.ListOrders(ctx, "", "bogus", domain.NewPage(1, 0, AllOrdersPageLimit)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
