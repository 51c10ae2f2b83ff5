package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

type GRPCHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

func NewGRPCHandler(orderService *service.OrderService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GRPCHandler{orderService: orderService, log: logger}
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	order, err := h.orderService.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:          req.UserID,
		OrderType:       req.OrderType,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "PlaceOrder", err)
	}
	return &PlaceOrderResponse{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		Status:             order.Status,
		Total:              order.Total,
		EstimatedReadyTime: order.EstimatedReadyTime,
	}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*OrderStatusResponse, error) {
	order, err := h.orderService.Cancel(ctx, req.OrderID, req.Reason)
	if err != nil {
		return nil, h.toStatus(ctx, "CancelOrder", err)
	}
	return &OrderStatusResponse{OrderID: order.ID, Status: order.Status}, nil
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*OrderStatusResponse, error) {
	order, err := h.orderService.UpdateStatus(ctx, req.OrderID, req.Status)
	if err != nil {
		return nil, h.toStatus(ctx, "UpdateOrderStatus", err)
	}
	return &OrderStatusResponse{OrderID: order.ID, Status: order.Status}, nil
}

func (h *GRPCHandler) TrackOrder(ctx context.Context, req *TrackOrderRequest) (*domain.TrackingInfo, error) {
	info, err := h.orderService.Track(ctx, req.OrderNumber)
	if err != nil {
		return nil, h.toStatus(ctx, "TrackOrder", err)
	}
	return info, nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrDuplicateRequest):
		return codes.AlreadyExists
	case domain.IsValidation(err):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func (h *GRPCHandler) toStatus(ctx context.Context, method string, err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		h.log.ErrorContext(ctx, "rpc failed", "method", method, "error", err)
		return status.Error(code, "internal server error")
	}
	return status.Error(code, domain.PublicMessage(err))
}
