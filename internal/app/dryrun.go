package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/types"
)

// dryRunGateway decorates reconciler.Gateway for the "detection only,
// never touch the exchange" debug mode (app.Options.DryRun): it logs what
// would have been placed or cancelled instead of issuing the call, while
// still delegating read-only resting-order listing to the real gateway so
// the emergency-cancel pass has something to report on.
type dryRunGateway struct {
	real   exchangeGateway
	logger *zap.Logger
}

// exchangeGateway is the subset dryRunGateway needs from *exchange.Gateway
// without importing the concrete type, keeping this file decoupled from
// the exchange package's constructor details.
type exchangeGateway interface {
	ListRestingOrders(ctx context.Context) ([]types.ExchangeOrder, error)
}

func newDryRunGateway(real exchangeGateway, logger *zap.Logger) *dryRunGateway {
	return &dryRunGateway{real: real, logger: logger}
}

func (g *dryRunGateway) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.PlaceOrderResponse, error) {
	g.logger.Info("dry-run-place-order",
		zap.String("ticker", req.Ticker),
		zap.String("side", req.Side),
		zap.Int("count", req.Count),
		zap.Int("yes-price", req.YesPrice),
		zap.Int("no-price", req.NoPrice))
	resp := types.PlaceOrderResponse{}
	resp.Order.OrderID = "dry-run-" + req.ClientOrderID
	resp.Order.Status = "resting"
	return resp, nil
}

func (g *dryRunGateway) CancelOrder(ctx context.Context, orderID string) error {
	g.logger.Info("dry-run-cancel-order", zap.String("order-id", orderID))
	return nil
}

func (g *dryRunGateway) ListRestingOrders(ctx context.Context) ([]types.ExchangeOrder, error) {
	return g.real.ListRestingOrders(ctx)
}
