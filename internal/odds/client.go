// Package odds implements the odds-provider client: a polling HTTP JSON
// client that blends per-bookmaker decimal odds into the pair TheoEngine
// consumes (spec §4.1/§6). Grounded on the teacher's
// internal/discovery/client.go request/decode shape, with the weighting
// logic ported from the bookmaker-weight-table pattern surveyed in
// original_source/valorant_mm.py and original_source/theocalculator.py
// before their removal from the workspace.
package odds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/theo"
)

// Weights mirrors the surveyed bookmaker-weight tables: Pinnacle is the
// sharpest book and is weighted as a fixed 60% of the blend, with every
// other reporting bookmaker splitting the remaining 40% evenly (spec §6
// "60% Pinnacle + 40% avg-of-rest").
const (
	pinnacleWeight = 0.6
	restWeight     = 0.4
	pinnacleName   = "pinnacle"
)

// BookmakerPrice is one bookmaker's decimal odds for one side of a match.
type BookmakerPrice struct {
	Bookmaker string
	OddsA     float64
	OddsB     float64
	OddsDraw  float64 // 0 if the match has no draw outcome
}

// Client polls an external odds provider and blends bookmaker quotes into
// the theo-engine inputs for one match.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Logger  *zap.Logger
	Timeout time.Duration
}

// New creates an odds-provider Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

type oddsResponse struct {
	Bookmakers []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key     string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// FetchQuotes fetches every reporting bookmaker's decimal odds for the
// named outcome pair. teamA/teamB/draw are the exact outcome labels the
// provider reports; draw may be empty for a two-way match.
func (c *Client) FetchQuotes(ctx context.Context, eventID, teamA, teamB, draw string) ([]BookmakerPrice, error) {
	endpoint := fmt.Sprintf("%s/events/%s/odds", c.baseURL, url.PathEscape(eventID))

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("markets", "h2h")
	params.Set("oddsFormat", "decimal")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build odds request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("do odds request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("read odds response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("odds provider status %d: %s", resp.StatusCode, body)
	}

	var decoded oddsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("decode odds response: %w", err)
	}

	quotes := make([]BookmakerPrice, 0, len(decoded.Bookmakers))
	for _, bm := range decoded.Bookmakers {
		price, ok := extractPrice(bm.Markets, teamA, teamB, draw)
		if !ok {
			continue
		}
		price.Bookmaker = strings.ToLower(bm.Key)
		quotes = append(quotes, price)
	}

	c.logger.Debug("odds-quotes-fetched",
		zap.String("event_id", eventID),
		zap.Int("bookmaker_count", len(quotes)))

	return quotes, nil
}

func extractPrice(markets []struct {
	Key      string `json:"key"`
	Outcomes []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"outcomes"`
}, teamA, teamB, draw string) (BookmakerPrice, bool) {
	for _, mkt := range markets {
		if mkt.Key != "h2h" {
			continue
		}

		var price BookmakerPrice
		found := 0
		for _, o := range mkt.Outcomes {
			switch {
			case strings.EqualFold(o.Name, teamA):
				price.OddsA = o.Price
				found++
			case strings.EqualFold(o.Name, teamB):
				price.OddsB = o.Price
				found++
			case draw != "" && strings.EqualFold(o.Name, draw):
				price.OddsDraw = o.Price
			}
		}
		if found == 2 {
			return price, true
		}
	}
	return BookmakerPrice{}, false
}

// Blend folds a set of bookmaker quotes into the single (oddsA, oddsB,
// oddsDraw) triple TheoEngine expects, weighting Pinnacle at a fixed 60%
// and splitting the remaining 40% evenly across every other reporting
// bookmaker. If no bookmaker named "pinnacle" reports, the full weight
// redistributes to the rest. An empty quote set returns ok=false so the
// caller can fall back to a previously stored theo rather than quote on
// no information (spec §7: "odds provider unavailable ... surface error
// without mutating stored odds").
func Blend(quotes []BookmakerPrice) (oddsA, oddsB, oddsDraw float64, ok bool) {
	if len(quotes) == 0 {
		return 0, 0, 0, false
	}

	var pinnacle *BookmakerPrice
	rest := make([]BookmakerPrice, 0, len(quotes))
	for i := range quotes {
		if quotes[i].Bookmaker == pinnacleName {
			pinnacle = &quotes[i]
			continue
		}
		rest = append(rest, quotes[i])
	}

	pA, pB, pD, totalWeight := 0.0, 0.0, 0.0, 0.0

	if pinnacle != nil {
		w := pinnacleWeight
		if len(rest) == 0 {
			w = 1.0
		}
		pA += w / pinnacle.OddsA
		pB += w / pinnacle.OddsB
		if pinnacle.OddsDraw > 0 {
			pD += w / pinnacle.OddsDraw
		}
		totalWeight += w
	}

	if len(rest) > 0 {
		restTotal := restWeight
		if pinnacle == nil {
			restTotal = 1.0
		}
		perBook := restTotal / float64(len(rest))
		for _, q := range rest {
			pA += perBook / q.OddsA
			pB += perBook / q.OddsB
			if q.OddsDraw > 0 {
				pD += perBook / q.OddsDraw
			}
			totalWeight += perBook
		}
	}

	if totalWeight == 0 {
		return 0, 0, 0, false
	}

	// pA/pB/pD are weighted sums of implied probabilities; convert back to
	// decimal odds so theo.TwoWay/ThreeWay can re-derive vig-free prices.
	oddsA = totalWeight / pA
	oddsB = totalWeight / pB
	if pD > 0 {
		oddsDraw = totalWeight / pD
	}
	BlendedQuotesTotal.Inc()
	return oddsA, oddsB, oddsDraw, true
}

// Theo fetches and blends quotes for a match, returning vig-free cent
// prices via theo.TwoWay/ThreeWay. draw may be empty for a two-way match.
func (c *Client) Theo(ctx context.Context, eventID, teamA, teamB, draw string) (theoA, theoB int, err error) {
	quotes, err := c.FetchQuotes(ctx, eventID, teamA, teamB, draw)
	if err != nil {
		return 0, 0, err
	}

	oddsA, oddsB, oddsDraw, ok := Blend(quotes)
	if !ok {
		return 0, 0, fmt.Errorf("no odds quotes available for %s", eventID)
	}

	if draw == "" {
		theoA, theoB = theo.TwoWay(oddsA, oddsB)
	} else {
		theoA, theoB = theo.ThreeWay(oddsA, oddsB, oddsDraw)
	}
	return theoA, theoB, nil
}
