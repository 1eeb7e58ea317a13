package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T) *SQLStorage {
	t.Helper()
	archive, err := FromSQLite(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	return archive
}

func testCandles(start time.Time, count int) []core.Candle {
	candles := make([]core.Candle, 0, count)
	for i := 0; i < count; i++ {
		price := 100 + float64(i)
		candles = append(candles, core.Candle{
			Symbol: "INFY",
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   price,
			High:   price + 2,
			Low:    price - 2,
			Close:  price + 1,
			Volume: 1000,
		})
	}
	return candles
}

func TestSQLStorage_SaveAndQuery(t *testing.T) {
	archive := testStorage(t)
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	require.NoError(t, archive.SaveCandles("INFY", "5minute", testCandles(start, 5)))

	candles, err := archive.Candles("INFY", "5minute", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 5)
	require.Equal(t, 100.0, candles[0].Open)
	require.True(t, candles[0].Complete)

	// Range bounds are inclusive.
	candles, err = archive.Candles("INFY", "5minute", start, start.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, candles, 3)
}

func TestSQLStorage_SaveUpserts(t *testing.T) {
	archive := testStorage(t)
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	require.NoError(t, archive.SaveCandles("INFY", "5minute", testCandles(start, 3)))

	// Saving the same window again must not duplicate rows.
	updated := testCandles(start, 3)
	updated[0].Close = 555
	require.NoError(t, archive.SaveCandles("INFY", "5minute", updated))

	candles, err := archive.Candles("INFY", "5minute", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 3)
	require.Equal(t, 555.0, candles[0].Close)
}

func TestSQLStorage_SaveEmptyBatch(t *testing.T) {
	archive := testStorage(t)
	require.NoError(t, archive.SaveCandles("INFY", "5minute", nil))
}

func TestSQLStorage_QueryScopesSymbolAndInterval(t *testing.T) {
	archive := testStorage(t)
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	require.NoError(t, archive.SaveCandles("INFY", "5minute", testCandles(start, 2)))
	require.NoError(t, archive.SaveCandles("TCS", "5minute", testCandles(start, 2)))
	require.NoError(t, archive.SaveCandles("INFY", "day", testCandles(start, 2)))

	candles, err := archive.Candles("INFY", "5minute", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.Equal(t, "INFY", candles[0].Symbol)
}
