package process

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats summarizes one indicator column.
type ColumnStats struct {
	Name   string
	Valid  int
	Mean   float64
	StdDev float64
	P25    float64
	Median float64
	P75    float64
}

// Stats computes distribution statistics for every indicator column,
// ignoring warm-up NaN rows.
func (df *Dataframe) Stats() []ColumnStats {
	stats := make([]ColumnStats, 0, len(df.Order))

	for _, name := range df.Order {
		values := lo.Filter(df.Columns[name], func(v float64, _ int) bool {
			return !math.IsNaN(v)
		})

		columnStats := ColumnStats{Name: name, Valid: len(values)}
		if len(values) > 0 {
			sort.Float64s(values)
			columnStats.Mean, columnStats.StdDev = stat.MeanStdDev(values, nil)
			columnStats.P25 = stat.Quantile(0.25, stat.LinInterp, values, nil)
			columnStats.Median = stat.Quantile(0.5, stat.LinInterp, values, nil)
			columnStats.P75 = stat.Quantile(0.75, stat.LinInterp, values, nil)
		}
		if len(values) == 1 {
			columnStats.StdDev = 0
		}

		stats = append(stats, columnStats)
	}

	return stats
}

// WriteSummary renders the indicator summary table to w.
func (df *Dataframe) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Indicator summary for %s (%d rows, %d indicators)\n",
		df.Symbol, df.Len(), len(df.Order))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Indicator", "Valid", "Mean", "StdDev", "P25", "Median", "P75"})
	table.SetBorder(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, columnStats := range df.Stats() {
		table.Append([]string{
			columnStats.Name,
			fmt.Sprintf("%d", columnStats.Valid),
			fmt.Sprintf("%.2f", columnStats.Mean),
			fmt.Sprintf("%.2f", columnStats.StdDev),
			fmt.Sprintf("%.2f", columnStats.P25),
			fmt.Sprintf("%.2f", columnStats.Median),
			fmt.Sprintf("%.2f", columnStats.P75),
		})
	}

	table.Render()
}
