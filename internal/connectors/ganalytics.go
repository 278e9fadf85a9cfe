package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

const gaAPIURL = "https://analyticsdata.googleapis.com/v1beta"

// GoogleAnalytics reads transactions and purchase revenue from the GA Data
// API (runReport).
type GoogleAnalytics struct {
	PropertyID string
	Token      string
	BaseURL    string // override for tests; defaults to the GA Data API
	Client     *http.Client
}

// NewGoogleAnalyticsFromEnv builds a connector from GA_PROPERTY_ID and
// GA_ACCESS_TOKEN.
func NewGoogleAnalyticsFromEnv() *GoogleAnalytics {
	return &GoogleAnalytics{
		PropertyID: os.Getenv("GA_PROPERTY_ID"),
		Token:      os.Getenv("GA_ACCESS_TOKEN"),
		Client:     &http.Client{Timeout: fetchTimeout},
	}
}

func (g *GoogleAnalytics) Name() string { return "google_analytics" }

// Fetch returns the transaction count and purchase revenue between the dates.
func (g *GoogleAnalytics) Fetch(ctx context.Context, start, end time.Time) (int, float64) {
	if g.PropertyID == "" || g.Token == "" {
		return 0, 0.0
	}
	base := g.BaseURL
	if base == "" {
		base = gaAPIURL
	}
	body := map[string]any{
		"dateRanges": []map[string]string{{
			"startDate": start.Format("2006-01-02"),
			"endDate":   end.Format("2006-01-02"),
		}},
		"metrics": []map[string]string{
			{"name": "transactions"},
			{"name": "purchaseRevenue"},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, 0.0
	}
	endpoint := fmt.Sprintf("%s/properties/%s:runReport", base, g.PropertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, 0.0
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client().Do(req)
	if err != nil {
		return 0, 0.0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0.0
	}

	var payload struct {
		Rows []struct {
			MetricValues []struct {
				Value string `json:"value"`
			} `json:"metricValues"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0.0
	}
	if len(payload.Rows) == 0 || len(payload.Rows[0].MetricValues) < 2 {
		return 0, 0.0
	}
	orders, err := strconv.Atoi(payload.Rows[0].MetricValues[0].Value)
	if err != nil {
		return 0, 0.0
	}
	revenue, err := strconv.ParseFloat(payload.Rows[0].MetricValues[1].Value, 64)
	if err != nil {
		return 0, 0.0
	}
	return orders, revenue
}

func (g *GoogleAnalytics) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: fetchTimeout}
}
