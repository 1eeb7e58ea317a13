package core

import (
	"fmt"
	"strconv"
	"time"
)

// Candle represents a single OHLCV bar for a trading symbol.
type Candle struct {
	Symbol    string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Complete  bool

	// Additional columns carried from CSV inputs
	Metadata map[string]float64
}

// IsEmpty checks if the candle contains no significant data
func (c Candle) IsEmpty() bool {
	return c.Symbol == "" && c.Open == 0 && c.Close == 0 && c.Volume == 0
}

// ToSlice converts a candle to a string slice for CSV serialization
// with the specified decimal precision
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

// Less orders candles by time, then by symbol for stable sorting.
func (c Candle) Less(other Candle) bool {
	if !c.Time.Equal(other.Time) {
		return c.Time.Before(other.Time)
	}
	return c.Symbol < other.Symbol
}
