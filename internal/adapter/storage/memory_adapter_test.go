package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

func seedMemoryProduct(t *testing.T, m *MemoryAdapter, id string, price int64, stock int) {
	t.Helper()
	require.NoError(t, m.SaveProduct(context.Background(), domain.Product{
		ID: id, Name: id, Description: id, Category: domain.CategorySushi,
		Price: price, Stock: stock, IsAvailable: true, CreatedAt: time.Now(),
	}))
}

func TestMemoryDecrementStock_NeverNegative(t *testing.T) {
	m := NewMemoryAdapter()
	seedMemoryProduct(t, m, "p1", 100, 10)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.DecrementStock(context.Background(), "p1", 1)
			if err == nil && ok {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), success.Load())
	p, err := m.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestMemoryDecrementStock_MissingProduct(t *testing.T) {
	m := NewMemoryAdapter()

	ok, err := m.DecrementStock(context.Background(), "nope", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, m.IncrementStock(context.Background(), "nope", 1), domain.ErrNotFound)
}

func TestMemoryGetProduct_ReturnsCopy(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.SaveProduct(ctx, domain.Product{ID: "p1", Tags: []string{"fish"}}))

	p, err := m.GetProduct(ctx, "p1")
	require.NoError(t, err)
	p.Tags[0] = "changed"
	p.Stock = 99

	again, err := m.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "fish", again.Tags[0])
	assert.Equal(t, 0, again.Stock)

	missing, err := m.GetProduct(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryListProducts_FilterSortPage(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	seedMemoryProduct(t, m, "a", 300, 1)
	seedMemoryProduct(t, m, "b", 100, 1)
	seedMemoryProduct(t, m, "c", 200, 1)
	require.NoError(t, m.SaveProduct(ctx, domain.Product{ID: "d", Category: domain.CategoryCoffee, Price: 50}))

	products, total, err := m.ListProducts(ctx, domain.ProductFilter{
		Category:  domain.CategorySushi,
		SortBy:    domain.SortByPrice,
		Ascending: true,
		Page:      domain.Page{Number: 1, Limit: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "b", products[0].ID)
	assert.Equal(t, "c", products[1].ID)

	products, _, err = m.ListProducts(ctx, domain.ProductFilter{
		Category: domain.CategorySushi,
		SortBy:   domain.SortByPrice,
		Page:     domain.Page{Number: 2, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "b", products[0].ID)
}

func TestMemoryCreateOrder_DuplicateNumber(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()

	order := domain.Order{ID: "o1", OrderNumber: "ORD-1", UserID: "u1", Status: domain.OrderStatusPending}
	require.NoError(t, m.CreateOrder(ctx, order))

	order.ID = "o2"
	assert.ErrorIs(t, m.CreateOrder(ctx, order), domain.ErrDuplicate)

	require.NoError(t, m.DeleteOrder(ctx, "o1"))
	assert.NoError(t, m.CreateOrder(ctx, order), "number is free again after delete")
}

func TestMemoryUpdateOrderStatus_CompareAndSet(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "o1", OrderNumber: "ORD-1", Status: domain.OrderStatusPending}))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, _ := m.GetOrder(ctx, "o1")
			next := o.Clone()
			next.ApplyStatus(domain.OrderStatusCancelled, "", time.Now())
			if err := m.UpdateOrderStatus(ctx, next, domain.OrderStatusPending); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryListOrders_NewestFirst(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"o1", "o2", "o3"} {
		require.NoError(t, m.CreateOrder(ctx, domain.Order{
			ID: id, OrderNumber: "N-" + id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "other", OrderNumber: "N-x", UserID: "u2", CreatedAt: base}))

	orders, total, err := m.ListOrders(ctx, domain.OrderFilter{UserID: "u1", Page: domain.Page{Number: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 3)
	assert.Equal(t, "o3", orders[0].ID)
	assert.Equal(t, "o1", orders[2].ID)
}

func TestMemoryHasPurchased(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	items := []domain.OrderItem{{ProductID: "p1", Quantity: 1}}
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "o1", OrderNumber: "N1", UserID: "u1", Items: items, Status: domain.OrderStatusPending}))
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "o2", OrderNumber: "N2", UserID: "u1", Items: items, Status: domain.OrderStatusCompleted}))

	ok, err := m.HasPurchased(ctx, "u1", "p1", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.HasPurchased(ctx, "u1", "p1", "o1")
	assert.False(t, ok, "pending order does not count")

	ok, _ = m.HasPurchased(ctx, "u2", "p1", "")
	assert.False(t, ok)
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.CreateUser(ctx, domain.User{ID: "u1", Email: "a@b.c"}))
	assert.ErrorIs(t, m.CreateUser(ctx, domain.User{ID: "u2", Email: "a@b.c"}), domain.ErrDuplicate)

	at := time.Now()
	require.NoError(t, m.RecordOrder(ctx, "u1", domain.StatsFor(1250, at)))
	u, err := m.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalOrders)
	assert.Equal(t, int64(1250), u.TotalSpent)
	assert.Equal(t, int64(12), u.LoyaltyPoints)
	require.NotNil(t, u.LastOrderDate)

	assert.ErrorIs(t, m.RecordOrder(ctx, "missing", domain.StatsFor(1, at)), domain.ErrNotFound)
}

func TestMemoryReviews(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.CreateReview(ctx, domain.Review{ID: "r1", ProductID: "p1", UserID: "u1", Rating: 5, IsVisible: true}))
	require.NoError(t, m.CreateReview(ctx, domain.Review{ID: "r2", ProductID: "p1", UserID: "u2", Rating: 2, IsVisible: false}))
	assert.ErrorIs(t, m.CreateReview(ctx, domain.Review{ID: "r3", ProductID: "p1", UserID: "u1", Rating: 1}), domain.ErrDuplicate)

	ratings, err := m.VisibleRatings(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ratings)

	reviews, total, err := m.ListReviews(ctx, domain.ReviewFilter{ProductID: "p1", VisibleOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, reviews, 1)

	require.NoError(t, m.DeleteReview(ctx, "r1"))
	assert.NoError(t, m.CreateReview(ctx, domain.Review{ID: "r4", ProductID: "p1", UserID: "u1", Rating: 3}))
}

func TestMemoryReservations(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	r := domain.Reservation{ID: "x1", ConfirmationCode: "HSC-AAAAAA", Date: day, Time: "19:00", Status: domain.ReservationPending}
	require.NoError(t, m.CreateReservation(ctx, r))
	assert.ErrorIs(t, m.CreateReservation(ctx, domain.Reservation{ID: "x2", ConfirmationCode: "HSC-AAAAAA"}), domain.ErrDuplicate)

	got, err := m.GetReservationByCode(ctx, "HSC-AAAAAA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x1", got.ID)

	next := got.Clone()
	next.Status = domain.ReservationConfirmed
	require.NoError(t, m.UpdateReservation(ctx, next, domain.ReservationPending))
	assert.ErrorIs(t, m.UpdateReservation(ctx, next, domain.ReservationPending), domain.ErrConflict)

	start, end := domain.DayBounds(day)
	list, err := m.ListReservations(ctx, domain.ReservationFilter{
		Statuses: []domain.ReservationStatus{domain.ReservationConfirmed},
		From:     start,
		To:       end,
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryLocker_Exclusive(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "user:u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "user:u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent.
	other, err := l.Acquire(context.Background(), "user:u2")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.Acquire(context.Background(), "user:u1")
	require.NoError(t, err)
	again()

	assert.Empty(t, l.locks)
}

func TestMemoryIdempotency(t *testing.T) {
	idem := NewMemoryIdempotency(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idem.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := idem.SetIdempotency(ctx, "k")
	assert.True(t, ok)
	ok, _ = idem.SetIdempotency(ctx, "k")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = idem.SetIdempotency(ctx, "k")
	assert.True(t, ok, "expired key is reusable")

	require.NoError(t, idem.ClearIdempotency(ctx, "k"))
	ok, _ = idem.SetIdempotency(ctx, "k")
	assert.True(t, ok)
}
