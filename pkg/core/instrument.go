package core

import "fmt"

// Instrument is one row of the broker's instrument dump.
type Instrument struct {
	Token          int64
	ExchangeToken  int64
	TradingSymbol  string
	Name           string
	LastPrice      float64
	Expiry         string
	Strike         float64
	TickSize       float64
	LotSize        int64
	InstrumentType string
	Segment        string
	Exchange       string
}

// ErrInstrumentNotFound reports a symbol missing from the instrument dump.
type ErrInstrumentNotFound struct {
	Symbol   string
	Exchange string
}

func (e *ErrInstrumentNotFound) Error() string {
	return fmt.Sprintf("instrument not found: %s on %s", e.Symbol, e.Exchange)
}

// PricePrecision derives the decimal precision implied by the tick size.
func (i Instrument) PricePrecision() int {
	if i.TickSize <= 0 {
		return 2
	}
	return int(NumDecPlaces(i.TickSize))
}
