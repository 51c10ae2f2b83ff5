package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
	"github.com/Morsalin012/sushi-cafe-web/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Services groups the use cases the transports expose.
type Services struct {
	Orders       *service.OrderService
	Carts        *service.CartService
	Catalog      *service.CatalogService
	Reviews      *service.ReviewService
	Reservations *service.ReservationService
	Users        *service.UserService
}

type HTTPHandler struct {
	svc     Services
	log     *slog.Logger
	metrics *metrics.Metrics
	ready   func(*http.Request) error
}

type HTTPOption func(*HTTPHandler)

func WithHTTPLogger(l *slog.Logger) HTTPOption { return func(h *HTTPHandler) { h.log = l } }

func WithHTTPMetrics(m *metrics.Metrics) HTTPOption { return func(h *HTTPHandler) { h.metrics = m } }

// WithReadiness makes /health report the store's state.
func WithReadiness(check func(*http.Request) error) HTTPOption {
	return func(h *HTTPHandler) { h.ready = check }
}

func NewHTTPHandler(svc Services, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{svc: svc, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the HTTP API.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		route := pattern
		if _, path, ok := strings.Cut(pattern, " "); ok {
			route = path
		}
		mux.Handle(pattern, h.metrics.Instrument(route, fn))
	}

	mux.HandleFunc("GET /health", h.HealthCheck)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	handle("GET /api/products", h.ListProducts)
	handle("GET /api/products/{id}", h.GetProduct)
	handle("POST /api/products", h.CreateProduct)
	handle("PUT /api/products/{id}", h.UpdateProduct)

	handle("GET /api/cart/{userId}", h.GetCart)
	handle("POST /api/cart/add", h.AddToCart)
	handle("PUT /api/cart/update", h.UpdateCartItem)
	handle("DELETE /api/cart/remove", h.RemoveFromCart)
	handle("DELETE /api/cart/clear/{userId}", h.ClearCart)

	handle("POST /api/orders", h.PlaceOrder)
	handle("GET /api/orders", h.ListAllOrders)
	handle("GET /api/orders/{id}", h.GetOrder)
	handle("GET /api/orders/user/{userId}", h.ListUserOrders)
	handle("GET /api/orders/track/{orderNumber}", h.TrackOrder)
	handle("PUT /api/orders/{id}/status", h.UpdateOrderStatus)
	handle("POST /api/orders/{id}/cancel", h.CancelOrder)

	handle("GET /api/reviews/product/{productId}", h.ListProductReviews)
	handle("POST /api/reviews", h.CreateReview)
	handle("PUT /api/reviews/{id}", h.UpdateReview)
	handle("DELETE /api/reviews/{id}", h.DeleteReview)
	handle("POST /api/reviews/{id}/helpful", h.ToggleHelpful)
	handle("PUT /api/reviews/{id}/visibility", h.SetReviewVisibility)

	handle("POST /api/reservations", h.CreateReservation)
	handle("GET /api/reservations/{id}", h.GetReservation)
	handle("GET /api/reservations/user/{userId}", h.ListUserReservations)
	handle("GET /api/reservations/lookup/{code}", h.LookupReservation)
	handle("PUT /api/reservations/{id}", h.UpdateReservation)
	handle("POST /api/reservations/{id}/cancel", h.CancelReservation)
	handle("PUT /api/reservations/{id}/status", h.UpdateReservationStatus)
	handle("GET /api/reservations/available-slots/{date}", h.AvailableSlots)

	handle("POST /api/users", h.CreateUser)
	handle("GET /api/users/{id}", h.GetUser)

	return mux
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r); err != nil {
			h.log.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the client-facing message. Internal failures are
// logged and reported generically.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, domain.PublicMessage(err))
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("http.decode", "request body is required")
		}
		return domain.Invalid("http.decode", "invalid request body")
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return domain.Invalid("http.decode", "invalid request body")
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func queryPage(r *http.Request, defaultLimit int) domain.Page {
	return domain.NewPage(queryInt(r, "page"), queryInt(r, "limit"), defaultLimit)
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.Invalid("http.parseDate", "invalid date "+s)
	}
	return t, nil
}
