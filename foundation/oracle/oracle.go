// Package oracle provides a client for querying an external price feed and
// converting native currency amounts into their USD equivalent value.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/params"
)

// USDDecimals is the number of fractional decimal digits carried by the USD
// values produced by this package. It matches the scale used by the feed.
const USDDecimals = 8

// unitScale is the smallest-unit denomination of the native currency. Native
// amounts are wei-denominated, so one whole unit is 10^18.
var unitScale = big.NewInt(params.Ether)

// =============================================================================

// EventHandler defines a function that is called when the client fetches a
// rate from the price feed.
type EventHandler func(v string, args ...any)

// rate is the document returned by the price feed for the latest
// native/USD exchange rate.
type rate struct {
	Rate      int64     `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client knows how to query an external price feed service for the latest
// exchange rate and perform fixed point conversion with it.
type Client struct {
	feedURL   string
	http      http.Client
	evHandler EventHandler
}

// New constructs a client for the price feed at the specified host.
func New(feedURL string, timeout time.Duration, evHandler EventHandler) *Client {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Client{
		feedURL: feedURL,
		http: http.Client{
			Timeout: timeout,
		},
		evHandler: ev,
	}
}

// QuoteUSDValue converts the specified native amount into its USD equivalent
// value using the latest rate from the price feed. The result carries
// USDDecimals fractional digits and any remainder from the division is
// truncated, never rounded.
func (c *Client) QuoteUSDValue(ctx context.Context, nativeAmount uint64) (uint64, error) {
	r, err := c.latestRate(ctx)
	if err != nil {
		return 0, err
	}

	c.evHandler("oracle: quote: rate[%d] published[%s]", r.Rate, r.UpdatedAt.Format(time.RFC3339))

	// usd = (rate * amount) / unitScale performed over big integers so the
	// intermediate product cannot overflow.
	usd := new(big.Int).SetInt64(r.Rate)
	usd.Mul(usd, new(big.Int).SetUint64(nativeAmount))
	usd.Quo(usd, unitScale)

	if !usd.IsUint64() {
		return 0, fmt.Errorf("usd value out of range: %s", usd)
	}

	return usd.Uint64(), nil
}

// latestRate queries the price feed for the current exchange rate. A rate
// that is not strictly positive is rejected so a broken feed can never be
// mistaken for a zero quote.
func (c *Client) latestRate(ctx context.Context) (rate, error) {
	url := fmt.Sprintf("%s/v1/rate", c.feedURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return rate{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rate{}, fmt.Errorf("price feed unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rate{}, fmt.Errorf("price feed response: %s", resp.Status)
	}

	var r rate
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return rate{}, fmt.Errorf("decoding price feed response: %w", err)
	}

	if r.Rate <= 0 {
		return rate{}, fmt.Errorf("price feed returned invalid rate: %d", r.Rate)
	}

	return r, nil
}
