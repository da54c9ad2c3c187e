package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/example/cartshop/pkg/shop"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const stockServiceName = "cartshop.stock.v1.StockService"

type StockRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type StockReply struct {
	ProductID uint `json:"product_id"`
	Available int  `json:"available"`
}

// StockServiceServer is the server API for the stock service.
type StockServiceServer interface {
	Reserve(context.Context, *StockRequest) (*StockReply, error)
	Release(context.Context, *StockRequest) (*StockReply, error)
	Available(context.Context, *StockRequest) (*StockReply, error)
}

func unaryHandler(method string, call func(StockServiceServer, context.Context, *StockRequest) (*StockReply, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(StockRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StockServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + stockServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(StockServiceServer), ctx, req.(*StockRequest))
			})
		},
	}
}

var StockServiceDesc = grpc.ServiceDesc{
	ServiceName: stockServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Reserve", StockServiceServer.Reserve),
		unaryHandler("Release", StockServiceServer.Release),
		unaryHandler("Available", StockServiceServer.Available),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stock",
}

// StockServer exposes the stock ledger to back-office callers such as
// order cancellation.
type StockServer struct {
	ledger *shop.Ledger
	logger *zap.Logger
	srv    *grpc.Server
}

func NewStockServer(ledger *shop.Ledger, logger *zap.Logger) *StockServer {
	s := &StockServer{ledger: ledger, logger: logger}
	s.srv = grpc.NewServer()
	s.srv.RegisterService(&StockServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(stockServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.srv, hs)
	return s
}

func (s *StockServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("Stock service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *StockServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *StockServer) Stop() {
	s.srv.GracefulStop()
}

func (s *StockServer) Reserve(ctx context.Context, req *StockRequest) (*StockReply, error) {
	if err := s.ledger.Reserve(ctx, req.ProductID, req.Quantity); err != nil {
		return nil, s.toStatus(err)
	}
	return s.Available(ctx, req)
}

func (s *StockServer) Release(ctx context.Context, req *StockRequest) (*StockReply, error) {
	if req.Quantity <= 0 {
		return nil, status.Error(codes.InvalidArgument, "quantity must be a positive integer")
	}
	if _, err := s.ledger.Available(ctx, req.ProductID); err != nil {
		return nil, s.toStatus(err)
	}
	if err := s.ledger.Release(ctx, req.ProductID, req.Quantity); err != nil {
		return nil, s.toStatus(err)
	}
	s.logger.Info("Stock released via rpc", zap.Uint("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
	return s.Available(ctx, req)
}

func (s *StockServer) Available(ctx context.Context, req *StockRequest) (*StockReply, error) {
	n, err := s.ledger.Available(ctx, req.ProductID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &StockReply{ProductID: req.ProductID, Available: n}, nil
}

func (s *StockServer) toStatus(err error) error {
	var se *shop.Error
	if !errors.As(err, &se) {
		s.logger.Error("Stock rpc failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	switch se.Kind {
	case shop.KindValidation:
		return status.Error(codes.InvalidArgument, se.Message)
	case shop.KindNotFound:
		return status.Error(codes.NotFound, se.Message)
	case shop.KindInsufficientStock:
		return status.Error(codes.FailedPrecondition, se.Message)
	default:
		return status.Error(codes.Internal, se.Message)
	}
}
