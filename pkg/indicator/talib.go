// Package indicator wraps the technical analysis functions used by the
// enrichment pipeline.
package indicator

import "github.com/markcheno/go-talib"

// MaType represents moving average type
type MaType = talib.MaType

// Moving average type constants
const (
	TypeSMA = talib.SMA // Simple Moving Average
	TypeEMA = talib.EMA // Exponential Moving Average
	TypeWMA = talib.WMA // Weighted Moving Average
)

// ------------------------------------------
// Overlap Studies (Moving Averages, Bands)
// ------------------------------------------

// SMA calculates Simple Moving Average
func SMA(input []float64, period int) []float64 {
	return talib.Sma(input, period)
}

// EMA calculates Exponential Moving Average
func EMA(input []float64, period int) []float64 {
	return talib.Ema(input, period)
}

// WMA calculates Weighted Moving Average
func WMA(input []float64, period int) []float64 {
	return talib.Wma(input, period)
}

// BB calculates Bollinger Bands
// Returns upper, middle, and lower bands
func BB(input []float64, period int, deviation float64, maType MaType) ([]float64, []float64, []float64) {
	return talib.BBands(input, period, deviation, deviation, maType)
}

// ------------------------------------------
// Momentum Indicators
// ------------------------------------------

// RSI calculates Relative Strength Index
func RSI(input []float64, period int) []float64 {
	return talib.Rsi(input, period)
}

// MACD calculates Moving Average Convergence/Divergence
// Returns MACD line, signal line, and histogram
func MACD(input []float64, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64) {
	return talib.Macd(input, fastPeriod, slowPeriod, signalPeriod)
}

// Stoch calculates the Stochastic Oscillator
// Returns %K and %D
func Stoch(high, low, close []float64, fastK, slowK int, slowKMaType MaType, slowD int, slowDMaType MaType) ([]float64, []float64) {
	return talib.Stoch(high, low, close, fastK, slowK, slowKMaType, slowD, slowDMaType)
}

// ADX calculates Average Directional Movement Index
func ADX(high, low, close []float64, period int) []float64 {
	return talib.Adx(high, low, close, period)
}

// PlusDI calculates Plus Directional Indicator
func PlusDI(high, low, close []float64, period int) []float64 {
	return talib.PlusDI(high, low, close, period)
}

// MinusDI calculates Minus Directional Indicator
func MinusDI(high, low, close []float64, period int) []float64 {
	return talib.MinusDI(high, low, close, period)
}

// ------------------------------------------
// Volatility and Volume
// ------------------------------------------

// ATR calculates Average True Range
func ATR(high, low, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}

// OBV calculates On Balance Volume
func OBV(input, volume []float64) []float64 {
	return talib.Obv(input, volume)
}
