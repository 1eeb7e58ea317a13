package kite

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_CandlesByPeriod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/instruments/historical/3834113/5minute", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("from"))
		require.NotEmpty(t, r.URL.Query().Get("to"))

		fmt.Fprint(w, `{"status":"success","data":{"candles":[
			["2025-01-01T09:15:00+0530",40.1,40.5,40.0,40.3,125000],
			["2025-01-01T09:20:00+0530",40.3,40.6,40.2,40.55,98000]
		]}}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Credentials{APIKey: "k"}, testLogger(), WithBaseURL(server.URL, server.URL))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles, err := client.CandlesByPeriod(context.Background(), 3834113, "5minute", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, candles, 2)

	first := candles[0]
	require.Equal(t, 40.1, first.Open)
	require.Equal(t, 40.5, first.High)
	require.Equal(t, 40.0, first.Low)
	require.Equal(t, 40.3, first.Close)
	require.Equal(t, 125000.0, first.Volume)
	require.True(t, first.Complete)
	require.Equal(t, 9, first.Time.In(istLocation).Hour())
	require.Equal(t, 15, first.Time.In(istLocation).Minute())
}

func TestParseCandleRow(t *testing.T) {
	candle, err := parseCandleRow([]any{"2025-01-02T15:25:00+05:30", 10.0, 11.0, 9.5, 10.5, 5000.0})
	require.NoError(t, err)
	require.Equal(t, 10.5, candle.Close)

	// day candles may come back date-only
	candle, err = parseCandleRow([]any{"2025-01-02", 10.0, 11.0, 9.5, 10.5, 5000.0})
	require.NoError(t, err)
	require.Equal(t, 2, candle.Time.Day())

	_, err = parseCandleRow([]any{"2025-01-02", 10.0, 11.0})
	require.ErrorContains(t, err, "expected 6 fields")

	_, err = parseCandleRow([]any{"not a time", 10.0, 11.0, 9.5, 10.5, 5000.0})
	require.ErrorContains(t, err, "unparseable timestamp")
}
