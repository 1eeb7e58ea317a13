// Package download fetches historical candle data and writes CSV files.
package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/StudioSol/set"
	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/dhanvan/kitefeed/pkg/kite"
	"github.com/dhanvan/kitefeed/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

// chunkDays bounds each historical request; the broker caps intraday
// ranges at around this many days per call.
const chunkDays = 100

// csvHeaders are the output column names
var csvHeaders = []string{"time", "open", "close", "low", "high", "volume"}

// Downloader fetches historical candles through a feeder and writes
// them to CSV, optionally archiving each batch to candle storage.
type Downloader struct {
	feeder   core.Feeder
	archive  core.CandleStorage
	exchange string
	log      logger.Logger
}

// Option configures a Downloader
type Option func(*Downloader)

// WithArchive also writes every downloaded batch to candle storage
func WithArchive(archive core.CandleStorage) Option {
	return func(d *Downloader) {
		d.archive = archive
	}
}

// WithExchange sets the exchange used for instrument lookups (default NSE)
func WithExchange(exchange string) Option {
	return func(d *Downloader) {
		d.exchange = exchange
	}
}

// NewDownloader creates a downloader reading from the given feeder.
func NewDownloader(feeder core.Feeder, log logger.Logger, options ...Option) *Downloader {
	downloader := &Downloader{
		feeder:   feeder,
		exchange: "NSE",
		log:      log,
	}

	for _, option := range options {
		option(downloader)
	}

	return downloader
}

// Parameters defines the time range for a download
type Parameters struct {
	Start time.Time
	End   time.Time
}

// RangeOption configures download parameters
type RangeOption func(*Parameters)

// WithInterval sets explicit start and end times
func WithInterval(start, end time.Time) RangeOption {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays sets the range to the last N days
func WithDays(days int) RangeOption {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

// Result summarizes one ticker's download.
type Result struct {
	Symbol  string
	File    string
	Records int
	Err     error
}

// Download fetches candles for a trading symbol and writes them to the
// output CSV.
func (d *Downloader) Download(ctx context.Context, symbol, timeframe, outputPath string, options ...RangeOption) (Result, error) {
	interval, barDuration, err := kite.Interval(timeframe)
	if err != nil {
		return Result{Symbol: symbol}, err
	}

	instrument, err := d.feeder.InstrumentLookup(ctx, d.exchange, symbol)
	if err != nil {
		return Result{Symbol: symbol}, err
	}

	parameters := defaultParameters()
	for _, option := range options {
		option(parameters)
	}
	normalizeParameters(parameters)

	expected := int(parameters.End.Sub(parameters.Start)/barDuration) + 1

	d.log.WithFields(map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"from":     parameters.Start.Format(time.DateOnly),
		"to":       parameters.End.Format(time.DateOnly),
	}).Infof("downloading up to %d candles", expected)

	recordFile, err := os.Create(outputPath)
	if err != nil {
		return Result{Symbol: symbol}, err
	}
	defer recordFile.Close()

	writer := csv.NewWriter(recordFile)
	if err := writer.Write(csvHeaders); err != nil {
		return Result{Symbol: symbol}, err
	}

	progressBar := progressbar.Default(int64(expected))
	defer func() {
		if err := progressBar.Close(); err != nil {
			d.log.Warnf("failed to close progress bar: %s", err.Error())
		}
	}()

	total, err := d.downloadChunks(ctx, instrument, interval, parameters, writer, progressBar)
	if err != nil {
		return Result{Symbol: symbol, File: outputPath, Records: total}, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return Result{Symbol: symbol, File: outputPath, Records: total}, err
	}

	if total < expected {
		d.log.Warnf("%d missing candles", expected-total)
	}

	d.log.WithField("records", total).Info("download complete")
	return Result{Symbol: symbol, File: outputPath, Records: total}, nil
}

// downloadChunks walks the range in chunkDays-sized pieces, appending
// each batch to the CSV and the optional archive.
func (d *Downloader) downloadChunks(
	ctx context.Context,
	instrument core.Instrument,
	interval string,
	parameters *Parameters,
	writer *csv.Writer,
	progressBar *progressbar.ProgressBar,
) (int, error) {
	precision := instrument.PricePrecision()
	total := 0
	var lastWritten time.Time

	for chunkStart := parameters.Start; chunkStart.Before(parameters.End); chunkStart = chunkStart.AddDate(0, 0, chunkDays) {
		chunkEnd := chunkStart.AddDate(0, 0, chunkDays)
		if chunkEnd.After(parameters.End) {
			chunkEnd = parameters.End
		}

		candles, err := d.feeder.CandlesByPeriod(ctx, instrument.Token, interval, chunkStart, chunkEnd)
		if err != nil {
			return total, fmt.Errorf("chunk %s..%s failed: %w",
				chunkStart.Format(time.DateOnly), chunkEnd.Format(time.DateOnly), err)
		}

		// Chunks share their boundary instant, so the candle sitting
		// exactly on it comes back twice; keep only candles newer than
		// the last one written.
		fresh := make([]core.Candle, 0, len(candles))
		for _, candle := range candles {
			if !lastWritten.IsZero() && !candle.Time.After(lastWritten) {
				continue
			}
			candle.Symbol = instrument.TradingSymbol
			fresh = append(fresh, candle)
		}

		for _, candle := range fresh {
			if err := writer.Write(candle.ToSlice(precision)); err != nil {
				return total, err
			}
		}
		if len(fresh) > 0 {
			lastWritten = fresh[len(fresh)-1].Time
		}
		total += len(fresh)

		if d.archive != nil {
			if err := d.archive.SaveCandles(instrument.TradingSymbol, interval, fresh); err != nil {
				d.log.WithError(err).Warn("failed to archive chunk")
			}
		}

		if err := progressBar.Add(len(fresh)); err != nil {
			d.log.Warnf("failed to update progress bar: %s", err.Error())
		}
	}

	return total, nil
}

// Job describes one ticker in a multi-download run.
type Job struct {
	Symbol    string
	Timeframe string
}

// DownloadMany fetches a set of ticker jobs into outputDir, one CSV
// per symbol. Duplicate symbols are fetched once. Failures don't stop
// the run; each job's outcome lands in its Result.
func (d *Downloader) DownloadMany(ctx context.Context, jobs []Job, outputDir string, options ...RangeOption) ([]Result, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	seen := set.NewLinkedHashSetString()
	results := make([]Result, 0, len(jobs))

	for _, job := range jobs {
		key := job.Symbol + "|" + job.Timeframe
		if seen.InArray(key) {
			continue
		}
		seen.Add(key)

		outputPath := filepath.Join(outputDir, jobFileName(job))
		result, err := d.Download(ctx, job.Symbol, job.Timeframe, outputPath, options...)
		if err != nil {
			d.log.WithError(err).WithField("symbol", job.Symbol).Error("download failed")
			result.Err = err
		}
		results = append(results, result)
	}

	return results, nil
}

// jobFileName builds the per-symbol file name: lowercase, spaces dashed.
func jobFileName(job Job) string {
	symbol := strings.ToLower(strings.ReplaceAll(job.Symbol, " ", "-"))
	return fmt.Sprintf("%s-%s-data.csv", symbol, job.Timeframe)
}

// defaultParameters covers the last month
func defaultParameters() *Parameters {
	now := time.Now()
	return &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
}

// normalizeParameters snaps the range to day boundaries and keeps the
// end out of the future
func normalizeParameters(parameters *Parameters) {
	parameters.Start = time.Date(
		parameters.Start.Year(), parameters.Start.Month(), parameters.Start.Day(),
		0, 0, 0, 0, time.UTC,
	)

	now := time.Now()
	if parameters.End.After(now) {
		parameters.End = now
	}
}
