package types

import "time"

// RestingOrder is a live order the reconciler believes is resting on the
// exchange. Keyed by (MatchID, Ticker, Side); at most one per key.
type RestingOrder struct {
	OrderID     string
	MatchID     string
	Ticker      string
	Side        Side
	Price       int
	Size        int
	PlacedAt    time.Time
	FilledCount int
}

// Key returns the reconciliation key this order is tracked under.
func (o RestingOrder) Key() OrderKey {
	return OrderKey{MatchID: o.MatchID, Ticker: o.Ticker, Side: o.Side}
}

// OrderKey is the reconciler's per-leg identity: (match, ticker, side).
type OrderKey struct {
	MatchID string
	Ticker  string
	Side    Side
}

// PlaceOrderRequest is the signed-REST place-order payload (spec §6):
// POST /portfolio/orders.
type PlaceOrderRequest struct {
	Ticker       string `json:"ticker"`
	Action       string `json:"action"` // always "buy": the core never sells
	Side         string `json:"side"`   // "yes" or "no"
	Type         string `json:"type"`   // "limit"
	Count        int    `json:"count"`
	YesPrice     int    `json:"yes_price,omitempty"`
	NoPrice      int    `json:"no_price,omitempty"`
	ExpirationTS int64  `json:"expiration_ts"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// PlaceOrderResponse wraps the exchange's order-id response.
type PlaceOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"order"`
}

// ExchangeOrder is one row of GET /portfolio/orders.
type ExchangeOrder struct {
	OrderID      string `json:"order_id"`
	Ticker       string `json:"ticker"`
	Side         string `json:"side"`
	Status       string `json:"status"`
	Price        int    `json:"price"`
	Count        int    `json:"count"`
	RemainingCnt int    `json:"remaining_count"`
}

// Fill is an append-only, idempotent-by-ID execution record.
type Fill struct {
	FillID      string
	Ticker      string
	Side        Side
	Action      string // "buy" (the core is maker-only; retained for schema fidelity)
	Price       int
	Count       int
	Fee         int
	IsTaker     bool
	CreatedTime time.Time
	MatchID     string
}

// PositionUpdate is the exchange's authoritative per-ticker net position.
type PositionUpdate struct {
	Ticker  string
	YesNet  int
	NoNet   int
}

// MarketMeta is GET /markets/{ticker} metadata.
type MarketMeta struct {
	Ticker    string    `json:"ticker"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	EventTime time.Time `json:"close_time"`
	Status    string    `json:"status"`
}
