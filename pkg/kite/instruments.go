package kite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dhanvan/kitefeed/pkg/core"
)

// instrument dump CSV columns, in broker order
const (
	colInstrumentToken = iota
	colExchangeToken
	colTradingSymbol
	colName
	colLastPrice
	colExpiry
	colStrike
	colTickSize
	colLotSize
	colInstrumentType
	colSegment
	colExchange
	instrumentColumns
)

// Instruments downloads and parses the instrument dump for an
// exchange (NSE, BSE, NFO, ...). The dump is a large CSV, streamed
// rather than buffered.
func (c *Client) Instruments(ctx context.Context, exchange string) ([]core.Instrument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/instruments/"+exchange, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Kite-Version", kiteVersion)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+c.accessToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instrument dump request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &APIError{Code: res.StatusCode, ErrorType: "InstrumentDump", Message: string(body)}
	}

	return parseInstruments(res.Body, exchange)
}

// parseInstruments reads the dump CSV into instrument records
func parseInstruments(r io.Reader, exchange string) ([]core.Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	instruments := make([]core.Instrument, 0, 2048)
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read instrument dump: %w", err)
		}

		line++
		if line == 1 && record[colInstrumentToken] == "instrument_token" {
			continue // header row
		}
		if len(record) < instrumentColumns {
			return nil, fmt.Errorf("malformed instrument row %d: %d columns", line, len(record))
		}

		instrument, err := parseInstrumentRecord(record)
		if err != nil {
			return nil, fmt.Errorf("malformed instrument row %d: %w", line, err)
		}
		instruments = append(instruments, instrument)
	}

	if len(instruments) == 0 {
		return nil, fmt.Errorf("empty instrument dump for exchange %s", exchange)
	}

	return instruments, nil
}

func parseInstrumentRecord(record []string) (core.Instrument, error) {
	var instrument core.Instrument
	var err error

	if instrument.Token, err = strconv.ParseInt(record[colInstrumentToken], 10, 64); err != nil {
		return instrument, err
	}
	if instrument.ExchangeToken, err = strconv.ParseInt(record[colExchangeToken], 10, 64); err != nil {
		return instrument, err
	}
	if instrument.LastPrice, err = strconv.ParseFloat(record[colLastPrice], 64); err != nil {
		return instrument, err
	}
	if record[colStrike] != "" {
		if instrument.Strike, err = strconv.ParseFloat(record[colStrike], 64); err != nil {
			return instrument, err
		}
	}
	if instrument.TickSize, err = strconv.ParseFloat(record[colTickSize], 64); err != nil {
		return instrument, err
	}
	if instrument.LotSize, err = strconv.ParseInt(record[colLotSize], 10, 64); err != nil {
		return instrument, err
	}

	instrument.TradingSymbol = record[colTradingSymbol]
	instrument.Name = record[colName]
	instrument.Expiry = record[colExpiry]
	instrument.InstrumentType = record[colInstrumentType]
	instrument.Segment = record[colSegment]
	instrument.Exchange = record[colExchange]

	return instrument, nil
}

// InstrumentLookup resolves a trading symbol to its instrument record.
// The dump for the exchange is fetched on every call; callers doing
// repeated lookups should use NewInstrumentCache.
func (c *Client) InstrumentLookup(ctx context.Context, exchange, symbol string) (core.Instrument, error) {
	instruments, err := c.Instruments(ctx, exchange)
	if err != nil {
		return core.Instrument{}, err
	}

	for _, instrument := range instruments {
		if instrument.TradingSymbol == symbol {
			return instrument, nil
		}
	}

	return core.Instrument{}, &core.ErrInstrumentNotFound{Symbol: symbol, Exchange: exchange}
}

// InstrumentCache keeps one exchange's instrument dump in memory so a
// batch of lookups costs one download.
type InstrumentCache struct {
	client   *Client
	exchange string
	bySymbol map[string]core.Instrument
}

// NewInstrumentCache fetches the dump once and indexes it by symbol.
func NewInstrumentCache(ctx context.Context, client *Client, exchange string) (*InstrumentCache, error) {
	instruments, err := client.Instruments(ctx, exchange)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]core.Instrument, len(instruments))
	for _, instrument := range instruments {
		bySymbol[instrument.TradingSymbol] = instrument
	}

	client.log.WithFields(map[string]any{
		"exchange":    exchange,
		"instruments": len(instruments),
	}).Info("instrument dump loaded")

	return &InstrumentCache{client: client, exchange: exchange, bySymbol: bySymbol}, nil
}

// Lookup resolves a trading symbol from the cached dump.
func (ic *InstrumentCache) Lookup(symbol string) (core.Instrument, error) {
	instrument, ok := ic.bySymbol[symbol]
	if !ok {
		return core.Instrument{}, &core.ErrInstrumentNotFound{Symbol: symbol, Exchange: ic.exchange}
	}
	return instrument, nil
}

// Len returns the number of cached instruments.
func (ic *InstrumentCache) Len() int {
	return len(ic.bySymbol)
}
