package handler

import (
	"net/http"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

const idempotencyHeader = "Idempotency-Key"

type PlaceOrderHTTPRequest struct {
	UserID          string               `json:"userId"`
	OrderType       domain.OrderType     `json:"orderType"`
	TableNumber     int                  `json:"tableNumber"`
	DeliveryAddress *domain.Address      `json:"deliveryAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
}

type orderSummary struct {
	ID                 string             `json:"id"`
	OrderNumber        string             `json:"orderNumber"`
	Status             domain.OrderStatus `json:"status"`
	Total              int64              `json:"total"`
	EstimatedReadyTime time.Time          `json:"estimatedReadyTime"`
}

type PlaceOrderHTTPResponse struct {
	Message string       `json:"message"`
	Order   orderSummary `json:"order"`
}

type ordersResponse struct {
	Orders     []domain.Order    `json:"orders"`
	Pagination domain.Pagination `json:"pagination"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderHTTPRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.Orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:          req.UserID,
		OrderType:       req.OrderType,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		IdempotencyKey:  r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, PlaceOrderHTTPResponse{
		Message: "Order placed successfully",
		Order: orderSummary{
			ID:                 order.ID,
			OrderNumber:        order.OrderNumber,
			Status:             order.Status,
			Total:              order.Total,
			EstimatedReadyTime: order.EstimatedReadyTime,
		},
	})
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request, userID string, defaultLimit int) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, pg, err := h.svc.Orders.ListOrders(r.Context(), userID, status, queryPage(r, defaultLimit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders, Pagination: pg})
}

func (h *HTTPHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, "", service.AllOrdersPageLimit)
}

func (h *HTTPHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, r.PathValue("userId"), service.UserOrdersPageLimit)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Orders.Track(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string             `json:"message"`
		Status  domain.OrderStatus `json:"status"`
	}{"Order status updated", order.Status})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.svc.Orders.Cancel(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order cancelled successfully")
}
