package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

const orderServiceName = "cafe.v1.OrderService"

type PlaceOrderRequest struct {
	UserID          string               `json:"userId"`
	OrderType       domain.OrderType     `json:"orderType,omitempty"`
	TableNumber     int                  `json:"tableNumber,omitempty"`
	DeliveryAddress *domain.Address      `json:"deliveryAddress,omitempty"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	IdempotencyKey  string               `json:"idempotencyKey,omitempty"`
}

type PlaceOrderResponse struct {
	OrderID            string             `json:"orderId"`
	OrderNumber        string             `json:"orderNumber"`
	Status             domain.OrderStatus `json:"status"`
	Total              int64              `json:"total"`
	EstimatedReadyTime time.Time          `json:"estimatedReadyTime"`
}

type CancelOrderRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

type UpdateOrderStatusRequest struct {
	OrderID string             `json:"orderId"`
	Status  domain.OrderStatus `json:"status"`
}

type OrderStatusResponse struct {
	OrderID string             `json:"orderId"`
	Status  domain.OrderStatus `json:"status"`
}

type TrackOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
}

type OrderServiceServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*OrderStatusResponse, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*OrderStatusResponse, error)
	TrackOrder(context.Context, *TrackOrderRequest) (*domain.TrackingInfo, error)
}

func unary[Req, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			})
		},
	}
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PlaceOrder", OrderServiceServer.PlaceOrder),
		unary("CancelOrder", OrderServiceServer.CancelOrder),
		unary("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unary("TrackOrder", OrderServiceServer.TrackOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cafe/v1/order_service",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&orderServiceDesc, srv)
}

// OrderServiceClient calls the order service with the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...)
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, in *PlaceOrderRequest, opts ...grpc.CallOption) (*PlaceOrderResponse, error) {
	out := new(PlaceOrderResponse)
	if err := c.invoke(ctx, "PlaceOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*OrderStatusResponse, error) {
	out := new(OrderStatusResponse)
	if err := c.invoke(ctx, "CancelOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*OrderStatusResponse, error) {
	out := new(OrderStatusResponse)
	if err := c.invoke(ctx, "UpdateOrderStatus", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) TrackOrder(ctx context.Context, in *TrackOrderRequest, opts ...grpc.CallOption) (*domain.TrackingInfo, error) {
	out := new(domain.TrackingInfo)
	if err := c.invoke(ctx, "TrackOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
