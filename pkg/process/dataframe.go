// Package process loads downloaded candle CSVs, enriches them with
// technical indicator columns and writes the result back out.
package process

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
)

var (
	// ErrInsufficientData reports a CSV without any candle rows
	ErrInsufficientData = errors.New("insufficient data")

	// required candle columns and their default positions
	defaultHeaderMap = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
)

// Dataframe is a column-oriented view of a candle CSV. Extra input
// columns and computed indicators live in Columns, keyed by name, with
// Order preserving output column order.
type Dataframe struct {
	Symbol string

	Time   []time.Time
	Open   core.Series[float64]
	High   core.Series[float64]
	Low    core.Series[float64]
	Close  core.Series[float64]
	Volume core.Series[float64]

	Columns map[string]core.Series[float64]
	Order   []string
}

// Len returns the number of rows.
func (df *Dataframe) Len() int {
	return len(df.Time)
}

// SetColumn appends or replaces a named column. New columns keep
// insertion order for serialization.
func (df *Dataframe) SetColumn(name string, values []float64) error {
	if len(values) != df.Len() {
		return fmt.Errorf("column %s has %d values, expected %d", name, len(values), df.Len())
	}

	if _, exists := df.Columns[name]; !exists {
		df.Order = append(df.Order, name)
	}
	df.Columns[name] = values

	return nil
}

// Column returns a named extra column.
func (df *Dataframe) Column(name string) (core.Series[float64], bool) {
	column, ok := df.Columns[name]
	return column, ok
}

// FromCSV loads a dataframe from a candle CSV file. Files may carry
// the default headerless layout, the standard header, or a custom
// header with extra columns; extras are preserved.
func FromCSV(symbol, path string) (*Dataframe, error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	lines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, ErrInsufficientData
	}

	headerMap, extras, hasHeader, err := parseHeaders(lines[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if hasHeader {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, ErrInsufficientData
	}

	df := &Dataframe{
		Symbol:  symbol,
		Time:    make([]time.Time, 0, len(lines)),
		Open:    make(core.Series[float64], 0, len(lines)),
		High:    make(core.Series[float64], 0, len(lines)),
		Low:     make(core.Series[float64], 0, len(lines)),
		Close:   make(core.Series[float64], 0, len(lines)),
		Volume:  make(core.Series[float64], 0, len(lines)),
		Columns: make(map[string]core.Series[float64], len(extras)),
	}
	for _, extra := range extras {
		df.Order = append(df.Order, extra)
		df.Columns[extra] = make(core.Series[float64], 0, len(lines))
	}

	for lineNo, line := range lines {
		if err := df.appendLine(line, headerMap, extras); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, lineNo+1, err)
		}
	}

	return df, nil
}

// parseHeaders resolves column positions. A numeric first field means
// the file carries no header and uses the default layout.
func parseHeaders(headers []string) (headerMap map[string]int, extras []string, hasHeader bool, err error) {
	if _, atoiErr := strconv.Atoi(headers[0]); atoiErr == nil {
		return defaultHeaderMap, nil, false, nil
	}

	headerMap = make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[header] = index
		if _, required := defaultHeaderMap[header]; !required {
			extras = append(extras, header)
		}
	}

	missing := make([]string, 0)
	for required := range defaultHeaderMap {
		if _, ok := headerMap[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, nil, false, fmt.Errorf("missing required columns: %v", missing)
	}

	return headerMap, extras, true, nil
}

// appendLine parses one CSV row into the dataframe columns
func (df *Dataframe) appendLine(line []string, headerMap map[string]int, extras []string) error {
	timestamp, err := strconv.ParseInt(line[headerMap["time"]], 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp: %w", err)
	}
	df.Time = append(df.Time, time.Unix(timestamp, 0).UTC())

	fields := []struct {
		name   string
		target *core.Series[float64]
	}{
		{"open", &df.Open},
		{"high", &df.High},
		{"low", &df.Low},
		{"close", &df.Close},
		{"volume", &df.Volume},
	}

	for _, field := range fields {
		value, err := strconv.ParseFloat(line[headerMap[field.name]], 64)
		if err != nil {
			return fmt.Errorf("bad %s value: %w", field.name, err)
		}
		*field.target = append(*field.target, value)
	}

	for _, extra := range extras {
		cell := line[headerMap[extra]]
		if cell == "" {
			df.Columns[extra] = append(df.Columns[extra], math.NaN())
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return fmt.Errorf("bad %s value: %w", extra, err)
		}
		df.Columns[extra] = append(df.Columns[extra], value)
	}

	return nil
}

// SaveCSV writes the dataframe, extra columns included, to path.
// NaN cells (indicator warm-up rows) serialize as empty strings.
func (df *Dataframe) SaveCSV(path string, precision int) error {
	recordFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	writer := csv.NewWriter(recordFile)

	headers := append([]string{"time", "open", "close", "low", "high", "volume"}, df.Order...)
	if err := writer.Write(headers); err != nil {
		return err
	}

	for i := 0; i < df.Len(); i++ {
		row := []string{
			strconv.FormatInt(df.Time[i].Unix(), 10),
			strconv.FormatFloat(df.Open[i], 'f', precision, 64),
			strconv.FormatFloat(df.Close[i], 'f', precision, 64),
			strconv.FormatFloat(df.Low[i], 'f', precision, 64),
			strconv.FormatFloat(df.High[i], 'f', precision, 64),
			strconv.FormatFloat(df.Volume[i], 'f', precision, 64),
		}

		for _, name := range df.Order {
			value := df.Columns[name][i]
			if math.IsNaN(value) {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatFloat(value, 'f', -1, 64))
			}
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
