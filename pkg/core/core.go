package core

import (
	"context"
	"time"
)

// Feeder provides access to historical market data.
type Feeder interface {
	InstrumentLookup(ctx context.Context, exchange, symbol string) (Instrument, error)
	CandlesByPeriod(ctx context.Context, token int64, interval string, start, end time.Time) ([]Candle, error)
}

// TokenStorage persists sessions between process runs.
type TokenStorage interface {
	Save(session *Session) error
	Load() (*Session, error)
	Clear() error
}

// CandleStorage archives downloaded candles for later querying.
type CandleStorage interface {
	SaveCandles(symbol, interval string, candles []Candle) error
	Candles(symbol, interval string, start, end time.Time) ([]Candle, error)
}

// Notifier receives human-facing notifications about run events.
type Notifier interface {
	Notify(text string)
	OnError(err error)
}
