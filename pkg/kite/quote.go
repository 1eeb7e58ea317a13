package kite

import (
	"context"
	"net/http"
	"net/url"
)

// Profile is the authenticated user profile, used as a session sanity
// check after login.
type Profile struct {
	UserID    string   `json:"user_id"`
	UserName  string   `json:"user_name"`
	Email     string   `json:"email"`
	Broker    string   `json:"broker"`
	Exchanges []string `json:"exchanges"`
}

// Profile fetches the user profile for the current session.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ltpEntry is one symbol's last traded price in the quote payload
type ltpEntry struct {
	InstrumentToken int64   `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
}

// LTP returns last traded prices keyed by "EXCHANGE:SYMBOL" identifiers.
func (c *Client) LTP(ctx context.Context, instruments ...string) (map[string]float64, error) {
	query := url.Values{}
	for _, instrument := range instruments {
		query.Add("i", instrument)
	}

	var data map[string]ltpEntry
	if err := c.do(ctx, http.MethodGet, "/quote/ltp?"+query.Encode(), nil, &data); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(data))
	for key, entry := range data {
		prices[key] = entry.LastPrice
	}
	return prices, nil
}
