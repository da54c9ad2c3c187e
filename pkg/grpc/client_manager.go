package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cartshop/pkg/discovery"
	"github.com/example/cartshop/pkg/shop"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// StockClient calls a remote stock service.
type StockClient struct {
	conn *grpc.ClientConn
}

func NewStockClient(conn *grpc.ClientConn) *StockClient {
	return &StockClient{conn: conn}
}

func (c *StockClient) call(ctx context.Context, method string, productID uint, qty int) (*StockReply, error) {
	out := new(StockReply)
	err := c.conn.Invoke(ctx, "/"+stockServiceName+"/"+method,
		&StockRequest{ProductID: productID, Quantity: qty}, out,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, fromStatus(err, productID, qty)
	}
	return out, nil
}

// fromStatus maps stock service statuses back onto domain errors.
func fromStatus(err error, productID uint, qty int) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return shop.ProductNotFound(productID)
	case codes.InvalidArgument:
		return shop.ErrInvalidQuantity
	case codes.FailedPrecondition:
		return &shop.Error{Kind: shop.KindInsufficientStock, Code: shop.CodeInsufficientStock, Message: st.Message(), ProductID: productID}
	default:
		return fmt.Errorf("stock service: %w", err)
	}
}

func (c *StockClient) Reserve(ctx context.Context, productID uint, qty int) (int, error) {
	reply, err := c.call(ctx, "Reserve", productID, qty)
	if err != nil {
		return 0, err
	}
	return reply.Available, nil
}

func (c *StockClient) Release(ctx context.Context, productID uint, qty int) (int, error) {
	reply, err := c.call(ctx, "Release", productID, qty)
	if err != nil {
		return 0, err
	}
	return reply.Available, nil
}

// Available reports remaining stock for display.
func (c *StockClient) Available(ctx context.Context, productID uint) (int, error) {
	reply, err := c.call(ctx, "Available", productID, 0)
	if err != nil {
		return 0, err
	}
	return reply.Available, nil
}

// ClientManager owns the connection to the stock service, located through
// etcd when discovery is available.
type ClientManager struct {
	serviceName string
	fallback    string
	discovery   *discovery.ServiceDiscovery
	logger      *zap.Logger

	stockConn   *grpc.ClientConn
	stockClient *StockClient
}

func NewClientManager(serviceName, fallback string, disc *discovery.ServiceDiscovery, logger *zap.Logger) *ClientManager {
	return &ClientManager{
		serviceName: serviceName,
		fallback:    fallback,
		discovery:   disc,
		logger:      logger,
	}
}

func (m *ClientManager) Connect() error {
	target := m.fallback

	if m.discovery != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		instances, err := m.discovery.Discover(ctx, m.serviceName)
		if err == nil && len(instances) > 0 {
			target = instances[0].Address()
			m.logger.Info("Discovered stock service", zap.String("address", target))
		} else {
			m.logger.Info("Using default address for stock service", zap.String("address", target))
		}
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to stock service: %w", err)
	}

	m.stockConn = conn
	m.stockClient = NewStockClient(conn)
	m.logger.Info("Stock service client ready", zap.String("target", target))
	return nil
}

func (m *ClientManager) StockClient() *StockClient {
	return m.stockClient
}

func (m *ClientManager) Close() error {
	if m.stockConn == nil {
		return nil
	}
	if err := m.stockConn.Close(); err != nil {
		return fmt.Errorf("stock connection close error: %w", err)
	}
	return nil
}
