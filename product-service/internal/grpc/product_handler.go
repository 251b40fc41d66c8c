package grpc

import (
	"context"
	"strconv"
	"time"

	"github.com/fjod/go_shop/product-service/internal/domain"
	"github.com/fjod/go_shop/product-service/internal/store"
	pb "github.com/fjod/go_shop/product-service/pkg/api"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ProductServiceServer implements the gRPC ProductService
type ProductServiceServer struct {
	pb.UnimplementedProductServiceServer
	store store.ProductStore
	group singleflight.Group
}

func NewProductServiceServer(store store.ProductStore) *ProductServiceServer {
	return &ProductServiceServer{
		store: store,
	}
}

func (s *ProductServiceServer) GetProducts(
	ctx context.Context,
	_ *pb.GetProductsRequest,
) (*pb.GetProductsResponse, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, status.Errorf(
			codes.Internal,
			"failed to fetch products: %v",
			err,
		)
	}

	pbProducts := make([]*pb.Product, len(products))
	for i, p := range products {
		pbProducts[i] = toProto(p)
	}

	return &pb.GetProductsResponse{
		Products: pbProducts,
	}, nil
}

// GetProduct collapses concurrent lookups of the same id into one store read.
func (s *ProductServiceServer) GetProduct(
	ctx context.Context,
	req *pb.GetProductRequest,
) (*pb.GetProductResponse, error) {
	if req.Id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be greater than 0")
	}

	// the shared read must not fail for every waiter when the first caller goes away
	v, err, _ := s.group.Do(strconv.FormatInt(req.Id, 10), func() (any, error) {
		return s.store.GetProduct(context.WithoutCancel(ctx), req.Id)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	return &pb.GetProductResponse{
		Product: toProto(v.(*domain.Product)),
	}, nil
}

func toProto(p *domain.Product) *pb.Product {
	return &pb.Product{
		Id:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		ImageUrl:    p.ImageURL,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
