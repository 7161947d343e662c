package exchange

import "encoding/json"

// wireOrderbook is the REST orderbook response shape (spec §6):
// GET /markets/{ticker}/orderbook -> {orderbook:{yes:[[price,qty],...],no:[...]}}.
type wireOrderbook struct {
	Orderbook struct {
		Yes [][2]int `json:"yes"`
		No  [][2]int `json:"no"`
	} `json:"orderbook"`
}

// wireMarketList is GET /markets?series_ticker=... response shape.
type wireMarketList struct {
	Markets []wireMarket `json:"markets"`
}

type wireMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	CloseTime string `json:"close_time"`
	Status    string `json:"status"`
}

// wirePlaceOrderRequest is the REST place-order payload.
type wirePlaceOrderRequest struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Count         int    `json:"count"`
	YesPrice      int    `json:"yes_price,omitempty"`
	NoPrice       int    `json:"no_price,omitempty"`
	ExpirationTS  int64  `json:"expiration_ts"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

type wirePlaceOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"order"`
}

type wireOrdersList struct {
	Orders []wireOrder `json:"orders"`
}

type wireOrder struct {
	OrderID      string `json:"order_id"`
	Ticker       string `json:"ticker"`
	Side         string `json:"side"`
	Status       string `json:"status"`
	Price        int    `json:"price"`
	Count        int    `json:"count"`
	RemainingCnt int    `json:"remaining_count"`
}

type wirePositionsList struct {
	MarketPositions []wirePosition `json:"market_positions"`
}

type wirePosition struct {
	Ticker string `json:"ticker"`
	YesNet int    `json:"yes_net"`
	NoNet  int    `json:"no_net"`
}

type wireBalance struct {
	BalanceCents int64 `json:"balance"`
}

// wireStreamMessage is the envelope every streamed message arrives in
// (spec §6: "messages carry type in {orderbook_snapshot, orderbook_delta,
// fill, position} with per-type payloads").
type wireStreamMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type wireSnapshotMsg struct {
	MarketTicker string   `json:"market_ticker"`
	Yes          [][2]int `json:"yes"`
	No           [][2]int `json:"no"`
}

type wireDeltaMsg struct {
	MarketTicker string `json:"market_ticker"`
	Side         string `json:"side"`
	Price        int    `json:"price"`
	Delta        int    `json:"delta"`
}

type wireFillMsg struct {
	TradeID     string `json:"trade_id"`
	Ticker      string `json:"market_ticker"`
	Side        string `json:"side"`
	Action      string `json:"action"`
	YesPrice    int    `json:"yes_price"`
	NoPrice     int    `json:"no_price"`
	Count       int    `json:"count"`
	FeeCents    int    `json:"fee"`
	IsTaker     bool   `json:"is_taker"`
	CreatedTime string `json:"created_time"`
}

type wirePositionMsg struct {
	Ticker string `json:"market_ticker"`
	YesNet int    `json:"yes_net"`
	NoNet  int    `json:"no_net"`
}

type wireSubscribeMessage struct {
	ID     int           `json:"id"`
	Cmd    string        `json:"cmd"`
	Params wireSubParams `json:"params"`
}

type wireSubParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}
