package indicator

import "math"

// dojiBodyRatio is the body-to-range threshold under which a bar
// counts as a doji.
const dojiBodyRatio = 0.1

// Doji flags bars whose body is negligible relative to their range.
// Returns 1 for a doji bar, 0 otherwise.
func Doji(open, high, low, close []float64) []float64 {
	length := len(close)
	flags := make([]float64, length)

	for i := 0; i < length; i++ {
		barRange := high[i] - low[i]
		if barRange == 0 {
			continue
		}
		body := math.Abs(close[i] - open[i])
		if body/barRange < dojiBodyRatio {
			flags[i] = 1
		}
	}

	return flags
}

// Hammer flags bars with a long lower shadow and a short upper shadow.
// Returns 1 for a hammer bar, 0 otherwise.
func Hammer(open, high, low, close []float64) []float64 {
	length := len(close)
	flags := make([]float64, length)

	for i := 0; i < length; i++ {
		body := math.Abs(close[i] - open[i])
		lowerShadow := math.Min(open[i], close[i]) - low[i]
		upperShadow := high[i] - math.Max(open[i], close[i])

		if lowerShadow > 2*body && upperShadow < body {
			flags[i] = 1
		}
	}

	return flags
}

// BullishEngulfing flags bars whose bullish body engulfs the previous
// bearish body. Returns 1 for an engulfing bar, 0 otherwise. The first
// bar is never flagged.
func BullishEngulfing(open, close []float64) []float64 {
	length := len(close)
	flags := make([]float64, length)

	for i := 1; i < length; i++ {
		currentBullish := close[i] > open[i]
		previousBearish := close[i-1] < open[i-1]

		if currentBullish && previousBearish &&
			open[i] < close[i-1] && close[i] > open[i-1] {
			flags[i] = 1
		}
	}

	return flags
}
