// Package connectors fetches order counts and revenue from the two external
// commerce platforms. Connectors are best-effort: credentials missing,
// network failures and malformed responses all yield (0, 0.0) so local KPI
// computation is never blocked by an unreachable platform.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const fetchTimeout = 10 * time.Second

// Shopify reads order totals from the Shopify Admin API.
type Shopify struct {
	ShopURL string // e.g. "myshop.myshopify.com"
	Token   string
	BaseURL string // override for tests; defaults to https://{ShopURL}/admin/api/2023-07
	Client  *http.Client
}

// NewShopifyFromEnv builds a connector from SHOPIFY_SHOP_URL and
// SHOPIFY_ACCESS_TOKEN. Missing credentials are allowed; Fetch then reports
// zero contribution.
func NewShopifyFromEnv() *Shopify {
	return &Shopify{
		ShopURL: os.Getenv("SHOPIFY_SHOP_URL"),
		Token:   os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		Client:  &http.Client{Timeout: fetchTimeout},
	}
}

func (s *Shopify) Name() string { return "shopify" }

// Fetch returns the order count and summed revenue between the dates.
func (s *Shopify) Fetch(ctx context.Context, start, end time.Time) (int, float64) {
	if s.ShopURL == "" || s.Token == "" {
		return 0, 0.0
	}
	base := s.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s/admin/api/2023-07", s.ShopURL)
	}
	q := url.Values{
		"status":         {"any"},
		"created_at_min": {start.Format("2006-01-02")},
		"created_at_max": {end.Format("2006-01-02")},
		"fields":         {"total_price"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/orders.json?"+q.Encode(), nil)
	if err != nil {
		return 0, 0.0
	}
	req.Header.Set("X-Shopify-Access-Token", s.Token)

	resp, err := s.client().Do(req)
	if err != nil {
		return 0, 0.0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0.0
	}

	// Shopify serializes prices as strings ("12.34"); tolerate numbers too
	var payload struct {
		Orders []struct {
			TotalPrice any `json:"total_price"`
		} `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0.0
	}
	revenue := 0.0
	for _, o := range payload.Orders {
		revenue += toFloat(o.TotalPrice)
	}
	return len(payload.Orders), revenue
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}

func (s *Shopify) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: fetchTimeout}
}
