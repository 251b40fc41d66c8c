package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/fjod/go_shop/orders-service/internal/service"
	pb "github.com/fjod/go_shop/orders-service/pkg/api"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// OrderService is the use-case layer the handler delegates to.
type OrderService interface {
	CreateOrder(ctx context.Context, id domain.Identity, req service.CreateOrderRequest) (*domain.Order, error)
	CancelOrder(ctx context.Context, id domain.Identity, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, id domain.Identity, orderID uuid.UUID, status string) error
	GetOrder(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error)
}

type OrdersHandler struct {
	pb.UnimplementedOrdersServiceServer
	svc OrderService
}

func NewOrdersHandler(svc OrderService) *OrdersHandler {
	return &OrdersHandler{svc: svc}
}

func (h *OrdersHandler) CreateOrder(ctx context.Context, req *pb.CreateOrderRequest) (*pb.CreateOrderResponse, error) {
	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		if it == nil {
			continue
		}
		lines = append(lines, domain.CartLine{ProductID: it.ProductId, Quantity: it.Quantity})
	}

	order, err := h.svc.CreateOrder(ctx, identityFromContext(ctx), service.CreateOrderRequest{
		Lines:          lines,
		Address:        convertAddressFromProto(req.Address),
		Method:         req.Method,
		Coupon:         req.Coupon,
		IdempotencyKey: escapedMetadataValue(ctx, pb.MetadataIdempotencyKey),
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &pb.CreateOrderResponse{Order: convertOrderToProto(order)}, nil
}

func (h *OrdersHandler) GetOrder(ctx context.Context, req *pb.GetOrderRequest) (*pb.GetOrderResponse, error) {
	id, err := uuid.Parse(req.OrderId)
	if err != nil {
		// ids that cannot exist are reported like ids that do not
		return nil, status.Error(codes.NotFound, "Order not found")
	}

	order, err := h.svc.GetOrder(ctx, identityFromContext(ctx), id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &pb.GetOrderResponse{Order: convertOrderToProto(order)}, nil
}

func (h *OrdersHandler) ListOrders(ctx context.Context, _ *pb.ListOrdersRequest) (*pb.ListOrdersResponse, error) {
	orders, err := h.svc.ListOrders(ctx, identityFromContext(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &pb.ListOrdersResponse{Orders: convertOrdersToProto(orders)}, nil
}

func (h *OrdersHandler) ListAllOrders(ctx context.Context, _ *pb.ListAllOrdersRequest) (*pb.ListOrdersResponse, error) {
	orders, err := h.svc.ListAllOrders(ctx, identityFromContext(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &pb.ListOrdersResponse{Orders: convertOrdersToProto(orders)}, nil
}

// UpdateOrder handles a customer cancel or an admin status change. Cancel wins
// when both are present.
func (h *OrdersHandler) UpdateOrder(ctx context.Context, req *pb.UpdateOrderRequest) (*pb.UpdateOrderResponse, error) {
	id, err := uuid.Parse(req.OrderId)
	if err != nil {
		return nil, status.Error(codes.NotFound, "Order not found")
	}
	caller := identityFromContext(ctx)

	switch {
	case req.Action == pb.ActionCancel:
		err = h.svc.CancelOrder(ctx, caller, id)
	case req.Status != "":
		err = h.svc.UpdateStatus(ctx, caller, id, req.Status)
	default:
		return nil, status.Error(codes.InvalidArgument, "Bad request")
	}
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &pb.UpdateOrderResponse{Ok: true}, nil
}

// identityFromContext reads the caller asserted by the gateway. It is trusted as is.
func identityFromContext(ctx context.Context) domain.Identity {
	return domain.NewIdentity(
		metadataValue(ctx, pb.MetadataUserID),
		escapedMetadataValue(ctx, pb.MetadataUserName),
		metadataValue(ctx, pb.MetadataUserEmail),
		metadataValue(ctx, pb.MetadataUserRole),
	)
}

func metadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// escapedMetadataValue reads a value the gateway path-escaped to keep metadata ASCII.
func escapedMetadataValue(ctx context.Context, key string) string {
	v := metadataValue(ctx, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// toStatus maps service errors to gRPC codes. Messages are safe to show to customers.
func toStatus(ctx context.Context, err error) error {
	var oos *service.OutOfStockError
	var resErr *service.ReservationError

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "Unauthorized")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "Forbidden")
	case errors.As(err, &oos):
		return status.Error(codes.InvalidArgument, oos.Error())
	case errors.As(err, &resErr) && errors.Is(err, service.ErrInsufficientStock):
		return status.Error(codes.Aborted, resErr.Reason)
	case errors.Is(err, service.ErrServiceUnavailable):
		slog.WarnContext(ctx, "dependency unavailable", "error", err)
		return status.Error(codes.Unavailable, "Products service unavailable")
	case errors.Is(err, service.ErrEmptyCart):
		return status.Error(codes.InvalidArgument, "Cart is empty")
	case errors.Is(err, service.ErrProductNotFound):
		return status.Error(codes.InvalidArgument, "Product not found")
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, validationMessage(err))
	case errors.Is(err, service.ErrTooLateToCancel):
		return status.Error(codes.FailedPrecondition, "Too late to cancel")
	case errors.Is(err, service.ErrIllegalTransition):
		return status.Error(codes.FailedPrecondition, "Order can no longer be changed")
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "Order not found")
	case errors.Is(err, service.ErrRequestInProgress):
		return status.Error(codes.AlreadyExists, "Order request already in progress")
	case errors.Is(err, service.ErrPersistence):
		return status.Error(codes.Internal, "Could not create order")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "Request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "Request canceled")
	default:
		slog.ErrorContext(ctx, "unexpected order service error", "error", err)
		return status.Error(codes.Internal, "Internal error")
	}
}

// validationMessage strips the sentinel prefix from a wrapped ErrInvalidRequest.
func validationMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), service.ErrInvalidRequest.Error()+": "); ok && msg != "" {
		return msg
	}
	return "Bad request"
}

func convertAddressFromProto(a *pb.Address) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return domain.Address{
		Name:    strings.TrimSpace(a.Name),
		Phone:   strings.TrimSpace(a.Phone),
		Line1:   strings.TrimSpace(a.Line1),
		Line2:   strings.TrimSpace(a.Line2),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Pincode: strings.TrimSpace(a.Pincode),
	}
}

func convertOrdersToProto(orders []*domain.Order) []*pb.Order {
	out := make([]*pb.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrderToProto(o))
	}
	return out
}

func convertOrderToProto(order *domain.Order) *pb.Order {
	items := make([]*pb.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, &pb.OrderItem{
			ProductId: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageUrl:  item.ImageURL,
		})
	}
	return &pb.Order{
		Id:       order.ID.String(),
		UserId:   order.UserID,
		UserName: order.UserName,
		Email:    order.Email,
		Items:    items,
		Totals: &pb.Totals{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Shipping: order.Totals.Shipping,
			Tax:      order.Totals.Tax,
			Total:    order.Totals.Total,
			Coupon:   order.Totals.Coupon,
		},
		Status: string(order.Status),
		Method: order.Method,
		Address: &pb.Address{
			Name:    order.Address.Name,
			Phone:   order.Address.Phone,
			Line1:   order.Address.Line1,
			Line2:   order.Address.Line2,
			City:    order.Address.City,
			State:   order.Address.State,
			Pincode: order.Address.Pincode,
		},
		PlacedAt:  order.PlacedAt.Format(time.RFC3339),
		UpdatedAt: order.UpdatedAt.Format(time.RFC3339),
	}
}
