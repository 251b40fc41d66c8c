package api

import (
	"context"

	"github.com/fjod/go_shop/pkg/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	InventoryService_Decrement_FullMethodName = "/inventory.InventoryService/Decrement"
	InventoryService_Increment_FullMethodName = "/inventory.InventoryService/Increment"
	InventoryService_GetStock_FullMethodName  = "/inventory.InventoryService/GetStock"
)

// InventoryServiceClient is the client API for InventoryService.
type InventoryServiceClient interface {
	Decrement(ctx context.Context, in *StockChangeRequest, opts ...grpc.CallOption) (*StockChangeResponse, error)
	Increment(ctx context.Context, in *StockChangeRequest, opts ...grpc.CallOption) (*StockChangeResponse, error)
	GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error)
}

type inventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryServiceClient(cc grpc.ClientConnInterface) InventoryServiceClient {
	return &inventoryServiceClient{cc}
}

func (c *inventoryServiceClient) Decrement(ctx context.Context, in *StockChangeRequest, opts ...grpc.CallOption) (*StockChangeResponse, error) {
	out := new(StockChangeResponse)
	if err := c.cc.Invoke(ctx, InventoryService_Decrement_FullMethodName, in, out, rpc.WithCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) Increment(ctx context.Context, in *StockChangeRequest, opts ...grpc.CallOption) (*StockChangeResponse, error) {
	out := new(StockChangeResponse)
	if err := c.cc.Invoke(ctx, InventoryService_Increment_FullMethodName, in, out, rpc.WithCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error) {
	out := new(GetStockResponse)
	if err := c.cc.Invoke(ctx, InventoryService_GetStock_FullMethodName, in, out, rpc.WithCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// InventoryServiceServer is the server API for InventoryService.
type InventoryServiceServer interface {
	Decrement(context.Context, *StockChangeRequest) (*StockChangeResponse, error)
	Increment(context.Context, *StockChangeRequest) (*StockChangeResponse, error)
	GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error)
}

// UnimplementedInventoryServiceServer must be embedded to have forward compatible implementations.
type UnimplementedInventoryServiceServer struct{}

func (UnimplementedInventoryServiceServer) Decrement(context.Context, *StockChangeRequest) (*StockChangeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Decrement not implemented")
}

func (UnimplementedInventoryServiceServer) Increment(context.Context, *StockChangeRequest) (*StockChangeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Increment not implemented")
}

func (UnimplementedInventoryServiceServer) GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStock not implemented")
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryService_ServiceDesc, srv)
}

func _InventoryService_Decrement_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockChangeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).Decrement(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryService_Decrement_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).Decrement(ctx, req.(*StockChangeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_Increment_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockChangeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).Increment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryService_Increment_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).Increment(ctx, req.(*StockChangeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_GetStock_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).GetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryService_GetStock_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).GetStock(ctx, req.(*GetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var InventoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "inventory.InventoryService",
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decrement", Handler: _InventoryService_Decrement_Handler},
		{MethodName: "Increment", Handler: _InventoryService_Increment_Handler},
		{MethodName: "GetStock", Handler: _InventoryService_GetStock_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory.proto",
}
