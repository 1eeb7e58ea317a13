package process

import (
	"fmt"
	"math"

	"github.com/dhanvan/kitefeed/pkg/indicator"
	"github.com/dhanvan/kitefeed/pkg/logger"
)

// Enricher appends technical indicator columns to a dataframe. Add
// methods chain; the first error stops further work and is returned by
// Err and Save.
type Enricher struct {
	df  *Dataframe
	log logger.Logger
	err error
}

// NewEnricher wraps a dataframe for indicator enrichment.
func NewEnricher(df *Dataframe, log logger.Logger) *Enricher {
	return &Enricher{df: df, log: log}
}

// Dataframe returns the underlying dataframe.
func (e *Enricher) Dataframe() *Dataframe {
	return e.df
}

// Err returns the first error encountered while adding indicators.
func (e *Enricher) Err() error {
	return e.err
}

// fits reports whether the frame has the minimum rows an indicator
// needs. Short frames record an error instead of reaching talib, which
// indexes past the slice end on short input.
func (e *Enricher) fits(name string, minRows int) bool {
	if e.err != nil {
		return false
	}
	if e.df.Len() < minRows {
		e.err = fmt.Errorf("%s: %w: need %d rows, have %d", name, ErrInsufficientData, minRows, e.df.Len())
		return false
	}
	return true
}

// setColumn records a computed column, masking warm-up rows as NaN so
// they serialize as empty cells.
func (e *Enricher) setColumn(name string, values []float64, warmup int) {
	if e.err != nil {
		return
	}

	for i := 0; i < warmup && i < len(values); i++ {
		values[i] = math.NaN()
	}

	if err := e.df.SetColumn(name, values); err != nil {
		e.err = err
		return
	}

	e.log.WithField("column", name).Debug("indicator added")
}

// AddSMA appends a simple moving average of the close.
func (e *Enricher) AddSMA(period int) *Enricher {
	name := fmt.Sprintf("SMA_%d", period)
	if e.fits(name, period) {
		e.setColumn(name, indicator.SMA(e.df.Close, period), period-1)
	}
	return e
}

// AddEMA appends an exponential moving average of the close.
func (e *Enricher) AddEMA(period int) *Enricher {
	name := fmt.Sprintf("EMA_%d", period)
	if e.fits(name, period) {
		e.setColumn(name, indicator.EMA(e.df.Close, period), period-1)
	}
	return e
}

// AddWMA appends a weighted moving average of the close.
func (e *Enricher) AddWMA(period int) *Enricher {
	name := fmt.Sprintf("WMA_%d", period)
	if e.fits(name, period) {
		e.setColumn(name, indicator.WMA(e.df.Close, period), period-1)
	}
	return e
}

// AddRSI appends the relative strength index of the close.
func (e *Enricher) AddRSI(period int) *Enricher {
	name := fmt.Sprintf("RSI_%d", period)
	if e.fits(name, period+1) {
		e.setColumn(name, indicator.RSI(e.df.Close, period), period)
	}
	return e
}

// AddMACD appends the MACD line, signal line and histogram.
func (e *Enricher) AddMACD(fast, slow, signal int) *Enricher {
	if !e.fits("MACD", slow+signal-1) {
		return e
	}

	macd, signalLine, histogram := indicator.MACD(e.df.Close, fast, slow, signal)
	warmup := slow + signal - 2

	e.setColumn("MACD", macd, warmup)
	e.setColumn("MACD_Signal", signalLine, warmup)
	e.setColumn("MACD_Histogram", histogram, warmup)
	return e
}

// AddBollingerBands appends middle, upper, lower bands and band width.
func (e *Enricher) AddBollingerBands(period int, deviation float64) *Enricher {
	if !e.fits("BB", period) {
		return e
	}

	upper, middle, lower := indicator.BB(e.df.Close, period, deviation, indicator.TypeSMA)
	warmup := period - 1

	width := make([]float64, len(upper))
	for i := range width {
		width[i] = upper[i] - lower[i]
	}

	e.setColumn("BB_Middle", middle, warmup)
	e.setColumn("BB_Upper", upper, warmup)
	e.setColumn("BB_Lower", lower, warmup)
	e.setColumn("BB_Width", width, warmup)
	return e
}

// AddATR appends the average true range.
func (e *Enricher) AddATR(period int) *Enricher {
	name := fmt.Sprintf("ATR_%d", period)
	if e.fits(name, period+1) {
		e.setColumn(name, indicator.ATR(e.df.High, e.df.Low, e.df.Close, period), period)
	}
	return e
}

// AddStochastic appends the stochastic oscillator %K and %D.
func (e *Enricher) AddStochastic(kPeriod, dPeriod int) *Enricher {
	if !e.fits("Stoch", kPeriod+dPeriod-1) {
		return e
	}

	k, d := indicator.Stoch(
		e.df.High, e.df.Low, e.df.Close,
		kPeriod, 1, indicator.TypeSMA, dPeriod, indicator.TypeSMA,
	)
	warmup := kPeriod + dPeriod - 2

	e.setColumn("Stoch_K", k, warmup)
	e.setColumn("Stoch_D", d, warmup)
	return e
}

// AddADX appends the average directional index with both DI lines.
func (e *Enricher) AddADX(period int) *Enricher {
	if !e.fits("ADX", 2*period+1) {
		return e
	}

	warmup := 2 * period

	e.setColumn("ADX", indicator.ADX(e.df.High, e.df.Low, e.df.Close, period), warmup)
	e.setColumn("Plus_DI", indicator.PlusDI(e.df.High, e.df.Low, e.df.Close, period), period)
	e.setColumn("Minus_DI", indicator.MinusDI(e.df.High, e.df.Low, e.df.Close, period), period)
	return e
}

// AddOBV appends on-balance volume.
func (e *Enricher) AddOBV() *Enricher {
	if e.err == nil {
		e.setColumn("OBV", indicator.OBV(e.df.Close, e.df.Volume), 0)
	}
	return e
}

// AddVolumeSMA appends a simple moving average of volume.
func (e *Enricher) AddVolumeSMA(period int) *Enricher {
	name := fmt.Sprintf("Volume_SMA_%d", period)
	if e.fits(name, period) {
		e.setColumn(name, indicator.SMA(e.df.Volume, period), period-1)
	}
	return e
}

// AddPivotPoints appends classic pivot levels.
func (e *Enricher) AddPivotPoints() *Enricher {
	if e.err != nil {
		return e
	}

	points := indicator.Pivots(e.df.High, e.df.Low, e.df.Close)

	e.setColumn("Pivot", points.Pivot, 0)
	e.setColumn("R1", points.R1, 0)
	e.setColumn("S1", points.S1, 0)
	e.setColumn("R2", points.R2, 0)
	e.setColumn("S2", points.S2, 0)
	return e
}

// AddCandlestickPatterns appends doji, hammer and bullish engulfing flags.
func (e *Enricher) AddCandlestickPatterns() *Enricher {
	if e.err != nil {
		return e
	}

	e.setColumn("Doji", indicator.Doji(e.df.Open, e.df.High, e.df.Low, e.df.Close), 0)
	e.setColumn("Hammer", indicator.Hammer(e.df.Open, e.df.High, e.df.Low, e.df.Close), 0)
	e.setColumn("Bullish_Engulfing", indicator.BullishEngulfing(e.df.Open, e.df.Close), 1)
	return e
}

// AddAllBasic appends the commonly used indicator set.
func (e *Enricher) AddAllBasic() *Enricher {
	return e.
		AddSMA(20).
		AddEMA(20).
		AddSMA(50).
		AddSMA(200).
		AddRSI(14).
		AddMACD(12, 26, 9).
		AddBollingerBands(20, 2).
		AddATR(14).
		AddVolumeSMA(20)
}

// Save writes the enriched dataframe to path, unless an earlier add
// already failed.
func (e *Enricher) Save(path string, precision int) error {
	if e.err != nil {
		return e.err
	}
	return e.df.SaveCSV(path, precision)
}
