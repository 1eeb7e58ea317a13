package kite

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/stretchr/testify/require"
)

const instrumentDump = `instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,tick_size,lot_size,instrument_type,segment,exchange
3834113,14977,RPOWER,RELIANCE POWER,41.25,,0,0.05,1,EQ,NSE,NSE
341249,1333,HDFCBANK,HDFC BANK,1642.8,,0,0.05,1,EQ,NSE,NSE
`

func TestParseInstruments(t *testing.T) {
	instruments, err := parseInstruments(strings.NewReader(instrumentDump), "NSE")
	require.NoError(t, err)
	require.Len(t, instruments, 2)

	rpower := instruments[0]
	require.Equal(t, int64(3834113), rpower.Token)
	require.Equal(t, "RPOWER", rpower.TradingSymbol)
	require.Equal(t, "RELIANCE POWER", rpower.Name)
	require.Equal(t, 0.05, rpower.TickSize)
	require.Equal(t, "EQ", rpower.InstrumentType)
	require.Equal(t, 2, rpower.PricePrecision())
}

func TestParseInstruments_Empty(t *testing.T) {
	header := strings.Split(instrumentDump, "\n")[0] + "\n"
	_, err := parseInstruments(strings.NewReader(header), "NSE")
	require.ErrorContains(t, err, "empty instrument dump")
}

func TestInstrumentCache_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/instruments/NSE", r.URL.Path)
		fmt.Fprint(w, instrumentDump)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Credentials{APIKey: "k"}, testLogger(), WithBaseURL(server.URL, server.URL))

	cache, err := NewInstrumentCache(context.Background(), client, "NSE")
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	instrument, err := cache.Lookup("HDFCBANK")
	require.NoError(t, err)
	require.Equal(t, int64(341249), instrument.Token)

	_, err = cache.Lookup("NOSUCH")
	var notFound *core.ErrInstrumentNotFound
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "NOSUCH", notFound.Symbol)
}

func TestClient_InstrumentLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, instrumentDump)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Credentials{APIKey: "k"}, testLogger(), WithBaseURL(server.URL, server.URL))

	instrument, err := client.InstrumentLookup(context.Background(), "NSE", "RPOWER")
	require.NoError(t, err)
	require.Equal(t, int64(3834113), instrument.Token)
}
