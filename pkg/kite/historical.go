package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
)

// kiteTimeLayout is the timestamp format of the historical endpoint
const kiteTimeLayout = "2006-01-02 15:04:05"

// istLocation is the exchange timezone used for request boundaries
var istLocation = mustLoadIST()

func mustLoadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// IST has no DST transitions, a fixed offset is equivalent
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// historicalResponse is the data payload of the candles endpoint:
// an array of [timestamp, open, high, low, close, volume] rows.
type historicalResponse struct {
	Candles [][]any `json:"candles"`
}

// CandlesByPeriod fetches candles for one instrument token between
// start and end at the given Kite interval (minute, 5minute, day, ...).
func (c *Client) CandlesByPeriod(ctx context.Context, token int64, interval string, start, end time.Time) ([]core.Candle, error) {
	query := url.Values{}
	query.Set("from", start.In(istLocation).Format(kiteTimeLayout))
	query.Set("to", end.In(istLocation).Format(kiteTimeLayout))
	query.Set("oi", "0")

	path := fmt.Sprintf("/instruments/historical/%d/%s?%s", token, interval, query.Encode())

	var data historicalResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	candles := make([]core.Candle, 0, len(data.Candles))
	for i, row := range data.Candles {
		candle, err := parseCandleRow(row)
		if err != nil {
			return nil, fmt.Errorf("malformed candle row %d: %w", i, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// parseCandleRow converts one [ts, o, h, l, c, v] row into a candle
func parseCandleRow(row []any) (core.Candle, error) {
	if len(row) < 6 {
		return core.Candle{}, fmt.Errorf("expected 6 fields, got %d", len(row))
	}

	ts, ok := row[0].(string)
	if !ok {
		return core.Candle{}, fmt.Errorf("timestamp is not a string: %v", row[0])
	}

	when, err := parseCandleTime(ts)
	if err != nil {
		return core.Candle{}, err
	}

	values := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		value, ok := toFloat(row[i])
		if !ok {
			return core.Candle{}, fmt.Errorf("field %d is not numeric: %v", i, row[i])
		}
		values[i-1] = value
	}

	return core.Candle{
		Time:     when,
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
		Complete: true,
	}, nil
}

// candleTimeLayouts are the timestamp formats the endpoint emits: an
// RFC3339 variant with a colon-less offset for intraday bars and a
// bare date for day bars.
var candleTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseCandleTime(ts string) (time.Time, error) {
	for _, layout := range candleTimeLayouts {
		if when, err := time.Parse(layout, ts); err == nil {
			return when, nil
		}
	}
	if when, err := time.ParseInLocation("2006-01-02", ts, istLocation); err == nil {
		return when, nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", ts)
}

func toFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
