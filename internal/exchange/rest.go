// Package exchange implements the ExchangeGateway external collaborator
// (spec §2 item 1, §6): signed REST calls and an authenticated streaming
// subscription, adapted from the teacher's internal/execution/order_client.go
// (signed-request shape) and internal/discovery/client.go (REST JSON
// client conventions), with signing swapped from go-ethereum/EIP712 to
// pkg/signer's RSA-PSS per spec §6 (DESIGN.md: go-ethereum dropped, no
// role in a Kalshi-like REST exchange).
package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/signer"
	"github.com/mselser95/quoter/pkg/types"
)

// Gateway is the REST half of ExchangeGateway.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	signer     *signer.Signer
	logger     *zap.Logger
}

// Config configures a Gateway.
type Config struct {
	BaseURL string
	Signer  *signer.Signer
	Logger  *zap.Logger
	Timeout time.Duration
}

// New creates a REST Gateway client.
func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		signer:     cfg.Signer,
		logger:     cfg.Logger,
	}
}

func (g *Gateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	pathWithoutQuery := path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		pathWithoutQuery = path[:i]
	}
	headers, err := g.signer.Sign(method, pathWithoutQuery, time.Now())
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("KALSHI-ACCESS-KEY", headers.KeyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", headers.Timestamp)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", headers.Signature)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", types.ErrTransient, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s %s: status %d: %s", types.ErrTransient, method, path, resp.StatusCode, respBody)
	}
	if resp.StatusCode >= 400 {
		code := errorCodeFromBody(respBody)
		return fmt.Errorf("%w: %s %s: status %d code %s: %s", types.ErrLogicalReject, method, path, resp.StatusCode, code, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// ListMarkets discovers markets in a series: GET /markets?series_ticker=...
func (g *Gateway) ListMarkets(ctx context.Context, seriesTicker string) ([]types.MarketMeta, error) {
	path := "/trade-api/v2/markets?series_ticker=" + seriesTicker + "&status=open"
	var out wireMarketList
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	metas := make([]types.MarketMeta, 0, len(out.Markets))
	for _, m := range out.Markets {
		closeTime, _ := time.Parse(time.RFC3339, m.CloseTime)
		metas = append(metas, types.MarketMeta{
			Ticker:    m.Ticker,
			Title:     m.Title,
			Category:  m.Category,
			EventTime: closeTime,
			Status:    m.Status,
		})
	}
	return metas, nil
}

// GetMarketMeta fetches one market's metadata: GET /markets/{ticker}.
func (g *Gateway) GetMarketMeta(ctx context.Context, ticker string) (types.MarketMeta, error) {
	path := "/trade-api/v2/markets/" + ticker
	var out struct {
		Market wireMarket `json:"market"`
	}
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return types.MarketMeta{}, err
	}
	closeTime, _ := time.Parse(time.RFC3339, out.Market.CloseTime)
	return types.MarketMeta{
		Ticker:    out.Market.Ticker,
		Title:     out.Market.Title,
		Category:  out.Market.Category,
		EventTime: closeTime,
		Status:    out.Market.Status,
	}, nil
}

// FetchOrderbook implements bookcache.RESTFetcher:
// GET /markets/{ticker}/orderbook.
func (g *Gateway) FetchOrderbook(ctx context.Context, ticker string) (types.OrderbookSnapshot, error) {
	path := "/trade-api/v2/markets/" + ticker + "/orderbook"
	var out wireOrderbook
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return types.OrderbookSnapshot{}, err
	}

	return types.OrderbookSnapshot{
		Ticker: ticker,
		Yes:    toPriceLevels(out.Orderbook.Yes),
		No:     toPriceLevels(out.Orderbook.No),
	}, nil
}

func toPriceLevels(rows [][2]int) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(rows))
	for _, r := range rows {
		levels = append(levels, types.PriceLevel{Price: r[0], Qty: r[1]})
	}
	return levels
}

// PlaceOrder implements reconciler.Gateway: POST /portfolio/orders.
func (g *Gateway) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.PlaceOrderResponse, error) {
	path := "/trade-api/v2/portfolio/orders"
	body := wirePlaceOrderRequest{
		Ticker:        req.Ticker,
		Action:        req.Action,
		Side:          req.Side,
		Type:          req.Type,
		Count:         req.Count,
		YesPrice:      req.YesPrice,
		NoPrice:       req.NoPrice,
		ExpirationTS:  req.ExpirationTS,
		ClientOrderID: req.ClientOrderID,
	}

	var out wirePlaceOrderResponse
	if err := g.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return types.PlaceOrderResponse{}, err
	}

	var resp types.PlaceOrderResponse
	resp.Order.OrderID = out.Order.OrderID
	resp.Order.Status = out.Order.Status
	return resp, nil
}

// CancelOrder implements reconciler.Gateway: DELETE /portfolio/orders/{id}.
// Cancelling an order the exchange has already filled or removed is
// treated as success (spec §7 "Cancel race").
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	path := "/trade-api/v2/portfolio/orders/" + orderID
	err := g.do(ctx, http.MethodDelete, path, nil, nil)
	if Classify(err) == ClassCancelRace {
		return nil
	}
	return err
}

type wireErrorBody struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func errorCodeFromBody(body []byte) string {
	var e wireErrorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Code
}

// ListRestingOrders implements reconciler.Gateway: GET /portfolio/orders?status=resting.
func (g *Gateway) ListRestingOrders(ctx context.Context) ([]types.ExchangeOrder, error) {
	path := "/trade-api/v2/portfolio/orders?status=resting"
	var out wireOrdersList
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	orders := make([]types.ExchangeOrder, 0, len(out.Orders))
	for _, o := range out.Orders {
		orders = append(orders, types.ExchangeOrder{
			OrderID:      o.OrderID,
			Ticker:       o.Ticker,
			Side:         o.Side,
			Status:       o.Status,
			Price:        o.Price,
			Count:        o.Count,
			RemainingCnt: o.RemainingCnt,
		})
	}
	return orders, nil
}

// GetPositions fetches current net positions: GET /portfolio/positions.
func (g *Gateway) GetPositions(ctx context.Context, ticker string) ([]types.PositionUpdate, error) {
	path := "/trade-api/v2/portfolio/positions"
	if ticker != "" {
		path += "?ticker=" + ticker
	}

	var out wirePositionsList
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	positions := make([]types.PositionUpdate, 0, len(out.MarketPositions))
	for _, p := range out.MarketPositions {
		positions = append(positions, types.PositionUpdate{
			Ticker: p.Ticker,
			YesNet: p.YesNet,
			NoNet:  p.NoNet,
		})
	}
	return positions, nil
}

// GetBalance fetches account balance in USD: GET /portfolio/balance. Used
// by the startup fatal-auth check in app.New (spec §7:
// "authentication failure at startup ... cannot obtain balance ... is
// fatal").
func (g *Gateway) GetBalance(ctx context.Context) (float64, error) {
	path := "/trade-api/v2/portfolio/balance"
	var out wireBalance
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return float64(out.BalanceCents) / 100.0, nil
}

