package indicator

// PivotPoints holds the classic pivot levels for a series of bars.
type PivotPoints struct {
	Pivot []float64
	R1    []float64
	S1    []float64
	R2    []float64
	S2    []float64
}

// Pivots calculates classic pivot points per bar
// Parameters:
//   - high: slice of high prices
//   - low: slice of low prices
//   - close: slice of closing prices
//
// Returns: pivot, first and second resistance/support levels
func Pivots(high, low, close []float64) PivotPoints {
	length := len(close)

	points := PivotPoints{
		Pivot: make([]float64, length),
		R1:    make([]float64, length),
		S1:    make([]float64, length),
		R2:    make([]float64, length),
		S2:    make([]float64, length),
	}

	for i := 0; i < length; i++ {
		pivot := (high[i] + low[i] + close[i]) / 3.0
		spread := high[i] - low[i]

		points.Pivot[i] = pivot
		points.R1[i] = 2*pivot - low[i]
		points.S1[i] = 2*pivot - high[i]
		points.R2[i] = pivot + spread
		points.S2[i] = pivot - spread
	}

	return points
}
