package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_shop/product-service/internal/store"
	pb "github.com/fjod/go_shop/product-service/pkg/api"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InventoryServiceServer implements the gRPC inventory service
type InventoryServiceServer struct {
	pb.UnimplementedInventoryServiceServer
	store store.ProductStore
}

func NewInventoryServiceServer(store store.ProductStore) *InventoryServiceServer {
	return &InventoryServiceServer{
		store: store,
	}
}

// Decrement takes stock for a single product
func (s *InventoryServiceServer) Decrement(ctx context.Context, req *pb.StockChangeRequest) (*pb.StockChangeResponse, error) {
	if req.ProductId <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id must be greater than 0")
	}

	stock, err := s.store.Decrement(ctx, req.ProductId, req.Quantity)
	if err != nil {
		slog.DebugContext(ctx, "decrement rejected",
			"product_id", req.ProductId,
			"quantity", req.Quantity,
			"error", err,
		)
		return nil, mapStoreError(err)
	}

	return &pb.StockChangeResponse{Ok: true, Stock: stock}, nil
}

// Increment puts stock back, used by compensation and order cancellation
func (s *InventoryServiceServer) Increment(ctx context.Context, req *pb.StockChangeRequest) (*pb.StockChangeResponse, error) {
	if req.ProductId <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id must be greater than 0")
	}

	stock, err := s.store.Increment(ctx, req.ProductId, req.Quantity)
	if err != nil {
		return nil, mapStoreError(err)
	}

	return &pb.StockChangeResponse{Ok: true, Stock: stock}, nil
}

// GetStock returns stock levels for specified products
func (s *InventoryServiceServer) GetStock(ctx context.Context, req *pb.GetStockRequest) (*pb.GetStockResponse, error) {
	if len(req.ProductIds) == 0 {
		return &pb.GetStockResponse{Stocks: []*pb.StockInfo{}}, nil
	}

	stocks, err := s.store.GetStock(ctx, req.ProductIds)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get stock: %v", err)
	}

	protoStocks := make([]*pb.StockInfo, len(stocks))
	for i, stock := range stocks {
		protoStocks[i] = &pb.StockInfo{
			ProductId: stock.ProductID,
			Stock:     stock.Stock,
			InStock:   stock.InStock,
		}
	}

	return &pb.GetStockResponse{Stocks: protoStocks}, nil
}

// mapStoreError converts store errors to appropriate gRPC status codes
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		return status.Error(codes.NotFound, "product not found")
	case errors.Is(err, store.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, "insufficient stock")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}
