// Package api holds the wire contract of the orders service.
// Messages travel as JSON over gRPC (see pkg/rpc); caller identity travels in metadata.
package api

// Metadata keys read by the orders service.
const (
	MetadataUserID         = "user-id"
	MetadataUserName       = "user-name"
	MetadataUserEmail      = "user-email"
	MetadataUserRole       = "user-role"
	MetadataRequestID      = "request-id"
	MetadataIdempotencyKey = "idempotency-key"
)

const ActionCancel = "cancel"

type CartItem struct {
	ProductId int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type OrderItem struct {
	ProductId int64  `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int32  `json:"quantity"`
	ImageUrl  string `json:"image_url"`
}

type Totals struct {
	Subtotal int64  `json:"subtotal"`
	Discount int64  `json:"discount"`
	Shipping int64  `json:"shipping"`
	Tax      int64  `json:"tax"`
	Total    int64  `json:"total"`
	Coupon   string `json:"coupon,omitempty"`
}

type Order struct {
	Id        string       `json:"id"`
	UserId    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	Email     string       `json:"email"`
	Items     []*OrderItem `json:"items"`
	Totals    *Totals      `json:"totals"`
	Status    string       `json:"status"`
	Method    string       `json:"method"`
	Address   *Address     `json:"address"`
	PlacedAt  string       `json:"placed_at"`
	UpdatedAt string       `json:"updated_at"`
}

type CreateOrderRequest struct {
	Items   []*CartItem `json:"items"`
	Address *Address    `json:"address"`
	Method  string      `json:"method"`
	Coupon  string      `json:"coupon"`
}

type CreateOrderResponse struct {
	Order *Order `json:"order"`
}

type GetOrderRequest struct {
	OrderId string `json:"order_id"`
}

type GetOrderResponse struct {
	Order *Order `json:"order"`
}

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}

type ListAllOrdersRequest struct{}

// UpdateOrderRequest carries either Action "cancel" or a new Status.
type UpdateOrderRequest struct {
	OrderId string `json:"order_id"`
	Action  string `json:"action,omitempty"`
	Status  string `json:"status,omitempty"`
}

type UpdateOrderResponse struct {
	Ok bool `json:"ok"`
}
