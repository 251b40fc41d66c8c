package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	pb "github.com/fjod/go_shop/orders-service/pkg/api"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	ordersClient pb.OrdersServiceClient
	timeout      time.Duration
}

func NewOrdersHandler(client pb.OrdersServiceClient, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		ordersClient: client,
		timeout:      timeout,
	}
}

type CartLineDTO struct {
	ID  int64 `json:"id"`
	Qty int32 `json:"qty"`
}

type AddressDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type CreateOrderRequestDTO struct {
	Items   []CartLineDTO `json:"items"`
	Address AddressDTO    `json:"address"`
	Method  string        `json:"method"`
	Coupon  string        `json:"coupon"`
}

// UpdateOrderRequestDTO is either {"action":"cancel"} or {"status":"Dispatched"}.
type UpdateOrderRequestDTO struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

type OrderItemDTO struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Qty      int32  `json:"qty"`
	ImageURL string `json:"imageUrl"`
}

type TotalsDTO struct {
	Subtotal int64   `json:"subtotal"`
	Discount int64   `json:"discount"`
	Shipping int64   `json:"shipping"`
	Tax      int64   `json:"tax"`
	Total    int64   `json:"total"`
	Coupon   *string `json:"coupon"`
}

// OrderResponseDTO is the shape the storefront reads.
type OrderResponseDTO struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	UserName string         `json:"userName"`
	Email    string         `json:"email"`
	Items    []OrderItemDTO `json:"items"`
	Totals   TotalsDTO      `json:"totals"`
	Status   string         `json:"status"`
	PlacedAt string         `json:"placedAt"`
	Method   string         `json:"method"`
	Address  AddressDTO     `json:"address"`
}

type AdminAddressDTO struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
	Phone string `json:"phone"`
}

type PaymentDTO struct {
	Method string `json:"method"`
}

// AdminOrderDTO is the shape the admin dashboard reads.
type AdminOrderDTO struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	Email     string          `json:"email"`
	Items     []OrderItemDTO  `json:"items"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"createdAt"`
	Address   AdminAddressDTO `json:"address"`
	Payment   PaymentDTO      `json:"payment"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.callContext(r)
	defer cancel()

	if !callerFromContext(r.Context()).authenticated() {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	resp, err := h.ordersClient.ListOrders(ctx, &pb.ListOrdersRequest{})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		dtos = append(dtos, convertProtoOrder(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.callContext(r)
	defer cancel()

	if !callerFromContext(r.Context()).authenticated() {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	items := make([]*pb.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &pb.CartItem{ProductId: it.ID, Quantity: it.Qty})
	}

	resp, err := h.ordersClient.CreateOrder(ctx, &pb.CreateOrderRequest{
		Items: items,
		Address: &pb.Address{
			Name:    req.Address.Name,
			Phone:   req.Address.Phone,
			Line1:   req.Address.Line1,
			Line2:   req.Address.Line2,
			City:    req.Address.City,
			State:   req.Address.State,
			Pincode: req.Address.Pincode,
		},
		Method: req.Method,
		Coupon: req.Coupon,
	})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertProtoOrder(resp.Order))
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.callContext(r)
	defer cancel()

	if !callerFromContext(r.Context()).authenticated() {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	resp, err := h.ordersClient.GetOrder(ctx, &pb.GetOrderRequest{OrderId: orderID})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertProtoOrder(resp.Order))
}

// PATCH /api/orders/{order_id}
func (h *OrdersHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.callContext(r)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Action != pb.ActionCancel && strings.TrimSpace(req.Status) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "Bad request")
		return
	}

	_, err := h.ordersClient.UpdateOrder(ctx, &pb.UpdateOrderRequest{
		OrderId: orderID,
		Action:  req.Action,
		Status:  strings.TrimSpace(req.Status),
	})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, OkResponse{Ok: true})
}

// GET /api/admin/orders
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.callContext(r)
	defer cancel()

	resp, err := h.ordersClient.ListAllOrders(ctx, &pb.ListAllOrdersRequest{})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	dtos := make([]AdminOrderDTO, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		dtos = append(dtos, convertProtoOrderAdmin(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *OrdersHandler) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return outgoingContext(ctx, r), cancel
}

func convertProtoItems(items []*pb.OrderItem) []OrderItemDTO {
	dtoItems := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		dtoItems = append(dtoItems, OrderItemDTO{
			ID:       item.ProductId,
			Title:    item.Title,
			Price:    item.Price,
			Qty:      item.Quantity,
			ImageURL: item.ImageUrl,
		})
	}
	return dtoItems
}

func convertProtoOrder(o *pb.Order) OrderResponseDTO {
	dto := OrderResponseDTO{
		ID:       o.Id,
		UserID:   o.UserId,
		UserName: o.UserName,
		Email:    o.Email,
		Items:    convertProtoItems(o.Items),
		Status:   o.Status,
		PlacedAt: o.PlacedAt,
		Method:   o.Method,
	}
	if t := o.Totals; t != nil {
		dto.Totals = TotalsDTO{
			Subtotal: t.Subtotal,
			Discount: t.Discount,
			Shipping: t.Shipping,
			Tax:      t.Tax,
			Total:    t.Total,
		}
		if t.Coupon != "" {
			coupon := t.Coupon
			dto.Totals.Coupon = &coupon
		}
	}
	if a := o.Address; a != nil {
		dto.Address = AddressDTO{
			Name:    a.Name,
			Phone:   a.Phone,
			Line1:   a.Line1,
			Line2:   a.Line2,
			City:    a.City,
			State:   a.State,
			Pincode: a.Pincode,
		}
	}
	return dto
}

func convertProtoOrderAdmin(o *pb.Order) AdminOrderDTO {
	dto := AdminOrderDTO{
		ID:        o.Id,
		UserID:    o.UserId,
		UserName:  o.UserName,
		Email:     o.Email,
		Items:     convertProtoItems(o.Items),
		Status:    o.Status,
		CreatedAt: o.PlacedAt,
		Payment:   PaymentDTO{Method: strings.ToUpper(o.Method)},
	}
	if o.Totals != nil {
		dto.Amount = o.Totals.Total
	}
	if a := o.Address; a != nil {
		dto.Address = AdminAddressDTO{
			Name:  a.Name,
			Line1: a.Line1,
			Line2: a.Line2,
			City:  a.City,
			State: a.State,
			Zip:   a.Pincode,
			Phone: a.Phone,
		}
	}
	return dto
}
