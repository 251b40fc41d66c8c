// Package api holds the wire contract of the product service.
// Messages travel as JSON over gRPC (see pkg/rpc).
package api

type Product struct {
	Id          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageUrl    string `json:"image_url,omitempty"`
	Price       int64  `json:"price"`
	Stock       int32  `json:"stock"`
	InStock     bool   `json:"in_stock"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type GetProductRequest struct {
	Id int64 `json:"id"`
}

type GetProductResponse struct {
	Product *Product `json:"product"`
}

type GetProductsRequest struct{}

type GetProductsResponse struct {
	Products []*Product `json:"products"`
}

type StockChangeRequest struct {
	ProductId int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type StockChangeResponse struct {
	Ok    bool  `json:"ok"`
	Stock int32 `json:"stock"`
}

type StockInfo struct {
	ProductId int64 `json:"product_id"`
	Stock     int32 `json:"stock"`
	InStock   bool  `json:"in_stock"`
}

type GetStockRequest struct {
	ProductIds []int64 `json:"product_ids"`
}

type GetStockResponse struct {
	Stocks []*StockInfo `json:"stocks"`
}
