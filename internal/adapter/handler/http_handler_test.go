package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/storage"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
	"github.com/Morsalin012/sushi-cafe-web/internal/metrics"
)

type testServer struct {
	store   *storage.MemoryAdapter
	svc     Services
	handler http.Handler
}

func newServices(store *storage.MemoryAdapter) Services {
	locker := storage.NewMemoryLocker()
	return Services{
		Orders:       service.NewOrderService(store, locker, storage.NewMemoryIdempotency(time.Hour)),
		Carts:        service.NewCartService(store, locker),
		Catalog:      service.NewCatalogService(store),
		Reviews:      service.NewReviewService(store, locker),
		Reservations: service.NewReservationService(store, locker),
		Users:        service.NewUserService(store),
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMemoryAdapter()
	svc := newServices(store)
	h := NewHTTPHandler(svc, WithHTTPMetrics(metrics.New("test")))
	return &testServer{store: store, svc: svc, handler: h.Routes()}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) seedProduct(t *testing.T, price int64, stock int) string {
	t.Helper()
	p, err := s.svc.Catalog.Create(context.Background(), domain.Product{
		Name: "Dragon Roll", Description: "Eel and avocado", Category: domain.CategoryRolls,
		Price: price, Stock: stock, IsAvailable: true,
	})
	require.NoError(t, err)
	return p.ID
}

func (s *testServer) seedUser(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", map[string]string{"name": "Aiko", "email": "aiko@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.User](t, rec).ID
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	s.do(t, http.MethodGet, "/api/products", nil)
	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cafe_test_http_requests_total")
}

func TestHealth_ReportsStoreFailure(t *testing.T) {
	h := NewHTTPHandler(newServices(storage.NewMemoryAdapter()),
		WithReadiness(func(*http.Request) error { return errors.New("down") }))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t)
	userID := s.seedUser(t)
	productID := s.seedProduct(t, 500, 5)

	rec := s.do(t, http.MethodPost, "/api/cart/add", map[string]any{"userId": userID, "productId": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decodeBody[cartResponse](t, rec)
	assert.Equal(t, int64(1100), cart.Cart.Totals.Total)

	rec = s.do(t, http.MethodPost, "/api/orders", map[string]any{"userId": userID, "orderType": "takeout"}, idempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decodeBody[PlaceOrderHTTPResponse](t, rec)
	assert.Equal(t, "Order placed successfully", placed.Message)
	assert.Equal(t, domain.OrderStatusPending, placed.Order.Status)
	assert.Equal(t, int64(1100), placed.Order.Total)

	rec = s.do(t, http.MethodPost, "/api/orders", map[string]any{"userId": userID}, idempotencyHeader, "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/orders/track/"+placed.Order.OrderNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, placed.Order.OrderNumber, decodeBody[domain.TrackingInfo](t, rec).OrderNumber)

	rec = s.do(t, http.MethodGet, "/api/orders/user/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[ordersResponse](t, rec)
	assert.Len(t, list.Orders, 1)
	assert.Equal(t, 1, list.Pagination.Total)

	rec = s.do(t, http.MethodPut, "/api/orders/"+placed.Order.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Order status updated","status":"confirmed"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/orders/"+placed.Order.ID+"/cancel", map[string]string{"reason": "late"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/orders/"+placed.Order.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"order cannot be cancelled at this stage"}`, rec.Body.String())

	p, err := s.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestOrderErrors(t *testing.T) {
	s := newTestServer(t)
	userID := s.seedUser(t)

	rec := s.do(t, http.MethodPost, "/api/orders", map[string]any{"userId": userID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"cart is empty"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"order not found"}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/orders/missing/status", map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"invalid request body"}`, rr.Body.String())
}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)
	productID := s.seedProduct(t, 300, 3)

	rec := s.do(t, http.MethodPost, "/api/cart/add", map[string]any{"userId": "u1", "productId": productID, "quantity": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/add", map[string]any{"userId": "u1", "productId": productID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[cartResponse](t, rec).Cart.Items[0].Quantity)

	rec = s.do(t, http.MethodPut, "/api/cart/update", map[string]any{"userId": "u1", "productId": productID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart/remove?userId=u1&productId="+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[cartResponse](t, rec).Cart.Items)

	rec = s.do(t, http.MethodDelete, "/api/cart/clear/u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cart/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.EmptyTotals(), decodeBody[domain.CartView](t, rec).Totals)
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.seedProduct(t, 900, 10)

	rec := s.do(t, http.MethodGet, "/api/products?category=Rolls&maxPrice=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[productsResponse](t, rec).Products, 1)

	rec = s.do(t, http.MethodGet, "/api/products?minPrice=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/"+id, map[string]any{"price": 950})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(950), decodeBody[domain.Product](t, rec).Price)

	rec = s.do(t, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewRoutes(t *testing.T) {
	s := newTestServer(t)
	productID := s.seedProduct(t, 100, 10)

	body := map[string]any{"userId": "u1", "productId": productID, "rating": 4, "title": "Great"}
	rec := s.do(t, http.MethodPost, "/api/reviews", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/reviews", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reviews/product/"+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[service.ProductReviews](t, rec)
	require.Len(t, list.Reviews, 1)
	reviewID := list.Reviews[0].ID

	rec = s.do(t, http.MethodPost, "/api/reviews/"+reviewID+"/helpful", map[string]string{"userId": "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"helpfulCount":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/reviews/"+reviewID+"/visibility", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/reviews/"+reviewID+"?userId=u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/reviews/"+reviewID, map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReservationRoutes(t *testing.T) {
	s := newTestServer(t)
	day := time.Now().UTC().AddDate(0, 0, 2).Format(time.DateOnly)

	rec := s.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"userId": "u1", "guestName": "Aiko", "guestEmail": "aiko@example.com", "guestPhone": "123",
		"date": day, "time": "19:00", "partySize": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[struct {
		Message     string             `json:"message"`
		Reservation reservationSummary `json:"reservation"`
	}](t, rec)
	assert.Equal(t, "Reservation created successfully", created.Message)
	assert.Equal(t, domain.ReservationPending, created.Reservation.Status)

	rec = s.do(t, http.MethodGet, "/api/reservations/lookup/"+created.Reservation.ConfirmationCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reservations/available-slots/"+day, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decodeBody[struct {
		Slots []domain.SlotAvailability `json:"slots"`
	}](t, rec)
	for _, slot := range slots.Slots {
		if slot.Time == "19:00" {
			assert.Equal(t, domain.TablesPerSlot-1, slot.Remaining)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/reservations/available-slots/someday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/reservations", map[string]any{"guestName": "Aiko"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"all fields are required"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("x", "order", "1"), http.StatusNotFound},
		{domain.Invalid("x", "bad"), http.StatusBadRequest},
		{domain.NewError("x", domain.ErrInsufficientStock, "", ""), http.StatusBadRequest},
		{domain.NewError("x", domain.ErrInvalidState, "", ""), http.StatusBadRequest},
		{domain.NewError("x", domain.ErrDuplicate, "", ""), http.StatusConflict},
		{domain.NewError("x", domain.ErrDuplicateRequest, "", ""), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
