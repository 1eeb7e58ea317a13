// Package plot renders terminal visualizations of indicator columns.
package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/dhanvan/kitefeed/pkg/process"
	"github.com/samber/lo"
)

const histogramBins = 10

// Options controls the indicator plot.
type Options struct {
	Column     string  // column to plot, e.g. "RSI_14"
	LastN      int     // restrict to the last N rows, 0 for all
	Overbought float64 // upper occupancy threshold, 0 to skip
	Oversold   float64 // lower occupancy threshold, 0 to skip
}

// Indicator writes a histogram of an indicator column to w, with an
// occupancy line for the overbought/oversold bands when configured.
func Indicator(w io.Writer, df *process.Dataframe, opts Options) error {
	column, ok := df.Column(opts.Column)
	if !ok {
		return fmt.Errorf("column %s not present in dataframe", opts.Column)
	}

	if opts.LastN > 0 {
		column = column.LastValues(opts.LastN)
	}

	values := lo.Filter(column, func(v float64, _ int) bool {
		return !math.IsNaN(v)
	})
	if len(values) == 0 {
		return fmt.Errorf("column %s has no valid values", opts.Column)
	}

	fmt.Fprintf(w, "%s distribution over %d bars\n", opts.Column, len(values))

	hist := histogram.Hist(histogramBins, values)
	if err := histogram.Fprint(w, hist, histogram.Linear(40)); err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}

	if opts.Overbought > 0 || opts.Oversold > 0 {
		writeOccupancy(w, values, opts)
	}

	return nil
}

// writeOccupancy reports how much time the indicator spent beyond the
// configured bands.
func writeOccupancy(w io.Writer, values []float64, opts Options) {
	over := 0
	under := 0
	for _, value := range values {
		if opts.Overbought > 0 && value >= opts.Overbought {
			over++
		}
		if opts.Oversold > 0 && value <= opts.Oversold {
			under++
		}
	}

	total := float64(len(values))
	if opts.Overbought > 0 {
		fmt.Fprintf(w, "above %.0f: %.1f%%\n", opts.Overbought, 100*float64(over)/total)
	}
	if opts.Oversold > 0 {
		fmt.Fprintf(w, "below %.0f: %.1f%%\n", opts.Oversold, 100*float64(under)/total)
	}
}
