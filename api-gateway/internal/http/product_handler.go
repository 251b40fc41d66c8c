package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	pb "github.com/fjod/go_shop/product-service/pkg/api"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	productClient pb.ProductServiceClient
	timeout       time.Duration
}

func NewProductHandler(productClient pb.ProductServiceClient, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		productClient: productClient,
		timeout:       timeout,
	}
}

type ProductResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Stock       int32  `json:"stock"`
	InStock     bool   `json:"inStock"`
	ImageURL    string `json:"imageUrl"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.productClient.GetProducts(ctx, &pb.GetProductsRequest{})
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	products := make([]ProductResponse, len(res.Products))
	for i, p := range res.Products {
		products[i] = convertProtoProduct(p)
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	res, err := h.productClient.GetProduct(ctx, &pb.GetProductRequest{Id: id})
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProtoProduct(res.Product))
}

func convertProtoProduct(p *pb.Product) ProductResponse {
	return ProductResponse{
		ID:          p.Id,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.InStock,
		ImageURL:    p.ImageUrl,
		CreatedAt:   p.CreatedAt,
	}
}
