package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pb "github.com/fjod/go_shop/orders-service/pkg/api"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ordersClientMock struct {
	order  *pb.Order
	orders []*pb.Order
	err    error

	createReq *pb.CreateOrderRequest
	updateReq *pb.UpdateOrderRequest
	md        metadata.MD
	calls     int
}

func (m *ordersClientMock) record(ctx context.Context) {
	m.calls++
	m.md, _ = metadata.FromOutgoingContext(ctx)
}

func (m *ordersClientMock) CreateOrder(ctx context.Context, in *pb.CreateOrderRequest, _ ...grpc.CallOption) (*pb.CreateOrderResponse, error) {
	m.record(ctx)
	m.createReq = in
	if m.err != nil {
		return nil, m.err
	}
	return &pb.CreateOrderResponse{Order: m.order}, nil
}

func (m *ordersClientMock) GetOrder(ctx context.Context, _ *pb.GetOrderRequest, _ ...grpc.CallOption) (*pb.GetOrderResponse, error) {
	m.record(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return &pb.GetOrderResponse{Order: m.order}, nil
}

func (m *ordersClientMock) ListOrders(ctx context.Context, _ *pb.ListOrdersRequest, _ ...grpc.CallOption) (*pb.ListOrdersResponse, error) {
	m.record(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return &pb.ListOrdersResponse{Orders: m.orders}, nil
}

func (m *ordersClientMock) ListAllOrders(ctx context.Context, _ *pb.ListAllOrdersRequest, _ ...grpc.CallOption) (*pb.ListOrdersResponse, error) {
	m.record(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return &pb.ListOrdersResponse{Orders: m.orders}, nil
}

func (m *ordersClientMock) UpdateOrder(ctx context.Context, in *pb.UpdateOrderRequest, _ ...grpc.CallOption) (*pb.UpdateOrderResponse, error) {
	m.record(ctx)
	m.updateReq = in
	if m.err != nil {
		return nil, m.err
	}
	return &pb.UpdateOrderResponse{Ok: true}, nil
}

// --- helpers ---

func withShopper(r *http.Request) *http.Request {
	return r.WithContext(WithCaller(r.Context(), Caller{ID: "u-1", Name: "Asha", Email: "asha@example.com"}))
}

func withOrderID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("order_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleOrder() *pb.Order {
	return &pb.Order{
		Id:       "0b6c1f9e-5d0a-4c5e-9f7e-6f1c2a3b4c5d",
		UserId:   "u-1",
		UserName: "Asha",
		Email:    "asha@example.com",
		Items: []*pb.OrderItem{
			{ProductId: 1, Title: "Wireless Headphones", Price: 2999, Quantity: 2, ImageUrl: "/img/1.png"},
		},
		Totals: &pb.Totals{
			Subtotal: 5998,
			Discount: 600,
			Shipping: 49,
			Tax:      540,
			Total:    5987,
			Coupon:   "DEAL10",
		},
		Status: "Placed",
		Method: "upi",
		Address: &pb.Address{
			Name: "Asha", Phone: "9999999999", Line1: "12 MG Road",
			City: "Pune", State: "MH", Pincode: "411001",
		},
		PlacedAt: "2026-10-01T10:00:00Z",
	}
}

// --- ListOrders ---

func TestListOrders_Success(t *testing.T) {
	mock := &ordersClientMock{orders: []*pb.Order{sampleOrder()}}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListOrders(recorder, withShopper(httptest.NewRequest("GET", "/api/orders", nil)))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response []OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response, 1)

	o := response[0]
	assert.Equal(t, "u-1", o.UserID)
	assert.Equal(t, int64(5987), o.Totals.Total)
	require.NotNil(t, o.Totals.Coupon)
	assert.Equal(t, "DEAL10", *o.Totals.Coupon)
	assert.Equal(t, "411001", o.Address.Pincode)
	assert.Equal(t, "2026-10-01T10:00:00Z", o.PlacedAt)
	require.Len(t, o.Items, 1)
	assert.Equal(t, OrderItemDTO{ID: 1, Title: "Wireless Headphones", Price: 2999, Qty: 2, ImageURL: "/img/1.png"}, o.Items[0])

	assert.Equal(t, []string{"asha@example.com"}, mock.md.Get(pb.MetadataUserEmail))
	assert.Equal(t, []string{"u-1"}, mock.md.Get(pb.MetadataUserID))
}

func TestListOrders_EmptyListIsArray(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListOrders(recorder, withShopper(httptest.NewRequest("GET", "/api/orders", nil)))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]", strings.TrimSpace(recorder.Body.String()))
}

func TestListOrders_Anonymous(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListOrders(recorder, httptest.NewRequest("GET", "/api/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Zero(t, mock.calls)
}

// --- CreateOrder ---

func TestCreateOrder_Created(t *testing.T) {
	mock := &ordersClientMock{order: sampleOrder()}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	body := `{"items":[{"id":1,"qty":2}],"address":{"name":"Asha","phone":"9999999999","line1":"12 MG Road","city":"Pune","state":"MH","pincode":"411001"},"method":"upi","coupon":"DEAL10"}`
	request := withShopper(httptest.NewRequest("POST", "/api/orders", strings.NewReader(body)))
	request.Header.Set(HeaderIdempotencyKey, "key-1")

	handler.CreateOrder(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.NotNil(t, mock.createReq)
	require.Len(t, mock.createReq.Items, 1)
	assert.Equal(t, int64(1), mock.createReq.Items[0].ProductId)
	assert.Equal(t, int32(2), mock.createReq.Items[0].Quantity)
	assert.Equal(t, "DEAL10", mock.createReq.Coupon)
	assert.Equal(t, "411001", mock.createReq.Address.Pincode)
	assert.Equal(t, []string{"key-1"}, mock.md.Get(pb.MetadataIdempotencyKey))

	var response OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Placed", response.Status)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.CreateOrder(recorder, withShopper(httptest.NewRequest("POST", "/api/orders", strings.NewReader("{"))))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, mock.calls)
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"out of stock", status.Error(codes.InvalidArgument, "Smart Watch out of stock"), http.StatusBadRequest, "Smart Watch out of stock"},
		{"reservation conflict", status.Error(codes.Aborted, "Insufficient stock"), http.StatusConflict, "Insufficient stock"},
		{"in progress", status.Error(codes.AlreadyExists, "Order request already in progress"), http.StatusConflict, "Order request already in progress"},
		{"catalog down", status.Error(codes.Unavailable, "Products service unavailable"), http.StatusBadGateway, "Products service unavailable"},
		{"persistence", status.Error(codes.Internal, "Could not create order"), http.StatusInternalServerError, "Could not create order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &ordersClientMock{err: tt.err}
			handler := NewOrdersHandler(mock, 5*time.Second)
			recorder := httptest.NewRecorder()

			body := `{"items":[{"id":1,"qty":1}],"method":"cod"}`
			handler.CreateOrder(recorder, withShopper(httptest.NewRequest("POST", "/api/orders", strings.NewReader(body))))

			require.Equal(t, tt.status, recorder.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

// --- GetOrder ---

func TestGetOrder_Success(t *testing.T) {
	mock := &ordersClientMock{order: sampleOrder()}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := withOrderID(withShopper(httptest.NewRequest("GET", "/api/orders/x", nil)), sampleOrder().Id)
	handler.GetOrder(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, sampleOrder().Id, response.ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	mock := &ordersClientMock{err: status.Error(codes.NotFound, "Order not found")}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := withOrderID(withShopper(httptest.NewRequest("GET", "/api/orders/x", nil)), "nope")
	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

// --- UpdateOrder ---

func TestUpdateOrder_Cancel(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := withOrderID(withShopper(httptest.NewRequest("PATCH", "/api/orders/x", strings.NewReader(`{"action":"cancel"}`))), "order-1")
	handler.UpdateOrder(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"ok":true}`, recorder.Body.String())
	require.NotNil(t, mock.updateReq)
	assert.Equal(t, "order-1", mock.updateReq.OrderId)
	assert.Equal(t, pb.ActionCancel, mock.updateReq.Action)
}

func TestUpdateOrder_AdminStatus(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := httptest.NewRequest("PATCH", "/api/orders/x", strings.NewReader(`{"status":" Dispatched "}`))
	request = request.WithContext(WithCaller(request.Context(), Caller{ID: "a-1", Email: "ops@example.com", Role: "admin"}))
	handler.UpdateOrder(recorder, withOrderID(request, "order-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Dispatched", mock.updateReq.Status)
	assert.Equal(t, []string{"admin"}, mock.md.Get(pb.MetadataUserRole))
}

func TestUpdateOrder_EmptyBody(t *testing.T) {
	mock := &ordersClientMock{}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := withOrderID(withShopper(httptest.NewRequest("PATCH", "/api/orders/x", strings.NewReader(`{}`))), "order-1")
	handler.UpdateOrder(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, mock.calls)
}

func TestUpdateOrder_TooLate(t *testing.T) {
	mock := &ordersClientMock{err: status.Error(codes.FailedPrecondition, "Too late to cancel")}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	request := withOrderID(withShopper(httptest.NewRequest("PATCH", "/api/orders/x", strings.NewReader(`{"action":"cancel"}`))), "order-1")
	handler.UpdateOrder(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "Too late to cancel", resp.Message)
}

// --- ListAllOrders ---

func TestListAllOrders_AdminShape(t *testing.T) {
	mock := &ordersClientMock{orders: []*pb.Order{sampleOrder()}}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListAllOrders(recorder, withShopper(httptest.NewRequest("GET", "/api/admin/orders", nil)))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response []AdminOrderDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response, 1)
	assert.Equal(t, int64(5987), response[0].Amount)
	assert.Equal(t, "UPI", response[0].Payment.Method)
	assert.Equal(t, "411001", response[0].Address.Zip)
	assert.Equal(t, "2026-10-01T10:00:00Z", response[0].CreatedAt)
}

func TestListAllOrders_Forbidden(t *testing.T) {
	mock := &ordersClientMock{err: status.Error(codes.PermissionDenied, "Forbidden")}
	handler := NewOrdersHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListAllOrders(recorder, withShopper(httptest.NewRequest("GET", "/api/admin/orders", nil)))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}
