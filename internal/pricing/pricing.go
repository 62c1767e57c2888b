// Package pricing fetches token exchange rates so earnings and store
// costs can be shown in a fiat currency. Rates are advisory: fetch
// failures leave the previous rate in place and never block the
// dashboard.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antdash/antdash/internal/model"
)

// DefaultPollInterval matches the free-tier API budgets of both
// providers.
const DefaultPollInterval = 2 * time.Minute

// Fetcher retrieves the current token exchange rate from a provider.
type Fetcher interface {
	Fetch(ctx context.Context) (model.ExchangeRate, error)
}

// CoinGecko queries the CoinGecko simple-price endpoint.
type CoinGecko struct {
	BaseURL  string // override for tests; default https://api.coingecko.com
	APIKey   string // demo API key, optional
	CoinID   string // e.g. "autonomi"
	Currency string // e.g. "usd"
	Symbol   string // display symbol, e.g. "$"
	Client   *http.Client
}

func (c *CoinGecko) Fetch(ctx context.Context) (model.ExchangeRate, error) {
	base := c.BaseURL
	if base == "" {
		base = "https://api.coingecko.com"
	}
	q := url.Values{}
	q.Set("ids", c.CoinID)
	q.Set("vs_currencies", c.Currency)
	if c.APIKey != "" {
		q.Set("x_cg_demo_api_key", c.APIKey)
	}
	u := base + "/api/v3/simple/price?" + q.Encode()

	body := map[string]map[string]float64{}
	if err := c.get(ctx, u, nil, &body); err != nil {
		return model.ExchangeRate{}, err
	}
	rate, ok := body[c.CoinID][strings.ToLower(c.Currency)]
	if !ok || rate <= 0 {
		return model.ExchangeRate{}, fmt.Errorf("pricing: coingecko response missing %s/%s", c.CoinID, c.Currency)
	}
	return model.ExchangeRate{Symbol: c.Symbol, Rate: rate, FetchedAt: time.Now().UTC()}, nil
}

func (c *CoinGecko) get(ctx context.Context, u string, header http.Header, out any) error {
	return get(ctx, c.Client, u, header, out)
}

// CoinMarketCap queries the CoinMarketCap quotes endpoint. Requires an
// API key.
type CoinMarketCap struct {
	BaseURL  string // override for tests; default https://pro-api.coinmarketcap.com
	APIKey   string
	Ticker   string // e.g. "ANT"
	Currency string // e.g. "USD"
	Symbol   string
	Client   *http.Client
}

func (c *CoinMarketCap) Fetch(ctx context.Context) (model.ExchangeRate, error) {
	base := c.BaseURL
	if base == "" {
		base = "https://pro-api.coinmarketcap.com"
	}
	currency := strings.ToUpper(c.Currency)
	u := fmt.Sprintf("%s/v2/cryptocurrency/quotes/latest?symbol=%s&convert=%s", base, url.QueryEscape(c.Ticker), currency)

	var body struct {
		Data map[string][]struct {
			Quote map[string]struct {
				Price float64 `json:"price"`
			} `json:"quote"`
		} `json:"data"`
	}
	header := http.Header{"X-CMC_PRO_API_KEY": []string{c.APIKey}}
	if err := get(ctx, c.Client, u, header, &body); err != nil {
		return model.ExchangeRate{}, err
	}
	entries := body.Data[c.Ticker]
	if len(entries) == 0 {
		return model.ExchangeRate{}, fmt.Errorf("pricing: coinmarketcap response missing %s", c.Ticker)
	}
	rate := entries[0].Quote[currency].Price
	if rate <= 0 {
		return model.ExchangeRate{}, fmt.Errorf("pricing: coinmarketcap response missing %s quote", currency)
	}
	return model.ExchangeRate{Symbol: c.Symbol, Rate: rate, FetchedAt: time.Now().UTC()}, nil
}

func get(ctx context.Context, client *http.Client, u string, header http.Header, out any) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("pricing: build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pricing: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pricing: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pricing: decode response: %w", err)
	}
	return nil
}

// Poll fetches immediately and then on every interval, passing each
// fresh rate to notify. Fetch errors are logged and skipped.
func Poll(ctx context.Context, f Fetcher, interval time.Duration, notify func(model.ExchangeRate)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	fetch := func() {
		rate, err := f.Fetch(ctx)
		if err != nil {
			log.Printf("pricing: %v", err)
			return
		}
		notify(rate)
	}

	fetch()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fetch()
		}
	}
}
