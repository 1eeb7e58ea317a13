package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhanvan/kitefeed"
	"github.com/dhanvan/kitefeed/pkg/config"
	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/dhanvan/kitefeed/pkg/download"
	"github.com/dhanvan/kitefeed/pkg/notification"
	"github.com/dhanvan/kitefeed/pkg/plot"
	"github.com/dhanvan/kitefeed/pkg/process"
	"github.com/dhanvan/kitefeed/pkg/storage"
	"github.com/spf13/cobra"
)

const (
	dateLayout        = "2006-01-02"
	defaultConfigPath = "./kitefeed.yaml"
)

// Command line flags
var (
	configPath string

	// login flags
	forceLogin bool

	// download/process flags
	ticker     string
	exchange   string
	timeframe  string
	outputFile string
	days       int
	startDate  string
	endDate    string

	// download flags
	archiveFile string

	// process flags
	rsiPeriod     int
	allIndicators bool
	showPlot      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "kitefeed",
		Short:   "Broker session automation and historical data utilities",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Configuration file path")

	rootCmd.AddCommand(buildLoginCmd())
	rootCmd.AddCommand(buildDownloadCmd())
	rootCmd.AddCommand(buildProcessCmd())
	rootCmd.AddCommand(buildInstrumentsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Run the automated login and store the session token",
		RunE:  runLogin,
	}

	loginCmd.Flags().BoolVarP(&forceLogin, "force", "f", false, "Log in even when a stored session exists")

	return loginCmd
}

func buildDownloadCmd() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical data to a CSV file",
		RunE:  runDownload,
	}

	addRangeFlags(downloadCmd)
	downloadCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (e.g. ./rpower.csv)")
	downloadCmd.Flags().StringVarP(&archiveFile, "archive", "a", "", "Also archive candles to this SQLite database")
	downloadCmd.MarkFlagRequired("ticker")
	downloadCmd.MarkFlagRequired("output")

	return downloadCmd
}

func buildProcessCmd() *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Download historical data and enrich it with indicators",
		RunE:  runProcess,
	}

	addRangeFlags(processCmd)
	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path, derived from the ticker when empty")
	processCmd.Flags().IntVar(&rsiPeriod, "rsi-period", 14, "RSI period")
	processCmd.Flags().BoolVar(&allIndicators, "all", false, "Add the full basic indicator set")
	processCmd.Flags().BoolVar(&showPlot, "plot", false, "Render an RSI distribution histogram")
	processCmd.MarkFlagRequired("ticker")

	return processCmd
}

func buildInstrumentsCmd() *cobra.Command {
	instrumentsCmd := &cobra.Command{
		Use:   "instruments",
		Short: "Dump the instrument list to a CSV file",
		RunE:  runInstruments,
	}

	instrumentsCmd.Flags().StringVarP(&exchange, "exchange", "x", "NSE", "Exchange name (NSE, BSE, NFO, ...)")
	instrumentsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path, derived from the exchange when empty")

	return instrumentsCmd
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ticker, "ticker", "p", "", "Trading symbol (e.g. RPOWER)")
	cmd.Flags().StringVarP(&exchange, "exchange", "x", "NSE", "Exchange name")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "5m", "Timeframe (e.g. 5m, 15m, 1d)")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to download")
	cmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2025-01-01)")
	cmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2025-06-30)")
}

// initializeApp loads configuration and builds the session runner.
func initializeApp() (*kitefeed.Kitefeed, *config.Config, error) {
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "" // fall back to environment variables
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	options := []kitefeed.Option{}
	if cfg.Telegram.Enabled {
		notifier, err := notification.NewTelegram(cfg.Telegram)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, kitefeed.WithNotifier(notifier))
	}

	app, err := kitefeed.New(cfg, options...)
	if err != nil {
		return nil, nil, err
	}

	return app, cfg, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	app, cfg, err := initializeApp()
	if err != nil {
		return err
	}

	session, err := app.EnsureSession(cmd.Context(), forceLogin)
	if err != nil {
		return err
	}

	fmt.Printf("Session for %s stored in %s\n", session.UserID, cfg.TokenFile)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	app, _, err := initializeApp()
	if err != nil {
		return err
	}

	if _, err := app.EnsureSession(cmd.Context(), false); err != nil {
		return err
	}

	options, err := buildRangeOptions()
	if err != nil {
		return err
	}

	downloaderOptions := []download.Option{download.WithExchange(exchange)}
	if archiveFile != "" {
		archive, err := storage.FromSQLite(archiveFile)
		if err != nil {
			return err
		}
		downloaderOptions = append(downloaderOptions, download.WithArchive(archive))
	}

	downloader := download.NewDownloader(app.Client(), kitefeed.DefaultLog, downloaderOptions...)
	result, err := downloader.Download(cmd.Context(), ticker, timeframe, outputFile, options...)
	if err != nil {
		return err
	}

	app.Notify(fmt.Sprintf("📦 Downloaded %d candles of %s to %s", result.Records, result.Symbol, result.File))
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	app, cfg, err := initializeApp()
	if err != nil {
		return err
	}

	if _, err := app.EnsureSession(cmd.Context(), false); err != nil {
		return err
	}

	options, err := buildRangeOptions()
	if err != nil {
		return err
	}

	if outputFile == "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
		outputFile = filepath.Join(cfg.DataDir, ticker+".csv")
	}

	downloader := download.NewDownloader(app.Client(), kitefeed.DefaultLog, download.WithExchange(exchange))
	if _, err := downloader.Download(cmd.Context(), ticker, timeframe, outputFile, options...); err != nil {
		return err
	}

	df, err := process.FromCSV(ticker, outputFile)
	if err != nil {
		return err
	}

	enricher := process.NewEnricher(df, kitefeed.DefaultLog).AddRSI(rsiPeriod)
	if allIndicators {
		enricher.
			AddAllBasic().
			AddStochastic(14, 3).
			AddADX(14).
			AddOBV().
			AddPivotPoints().
			AddCandlestickPatterns()
	}

	enrichedFile := strings.TrimSuffix(outputFile, ".csv") + "_with_indicators.csv"
	if err := enricher.Save(enrichedFile, 2); err != nil {
		return err
	}

	df.WriteSummary(os.Stdout)

	if showPlot {
		return plot.Indicator(os.Stdout, df, plot.Options{
			Column:     fmt.Sprintf("RSI_%d", rsiPeriod),
			Overbought: 70,
			Oversold:   30,
		})
	}

	return nil
}

func runInstruments(cmd *cobra.Command, args []string) error {
	app, _, err := initializeApp()
	if err != nil {
		return err
	}

	if _, err := app.EnsureSession(cmd.Context(), false); err != nil {
		return err
	}

	instruments, err := app.Client().Instruments(cmd.Context(), exchange)
	if err != nil {
		return err
	}

	if outputFile == "" {
		outputFile = fmt.Sprintf("%s_instruments_%s.csv", strings.ToLower(exchange),
			time.Now().Format("02012006"))
	}

	return writeInstrumentsCSV(outputFile, instruments)
}

func writeInstrumentsCSV(path string, instruments []core.Instrument) error {
	recordFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	writer := csv.NewWriter(recordFile)
	if err := writer.Write([]string{"instrument_token", "tradingsymbol", "name", "tick_size", "lot_size", "instrument_type", "segment", "exchange"}); err != nil {
		return err
	}

	for _, instrument := range instruments {
		record := []string{
			strconv.FormatInt(instrument.Token, 10),
			instrument.TradingSymbol,
			instrument.Name,
			strconv.FormatFloat(instrument.TickSize, 'f', -1, 64),
			strconv.FormatInt(instrument.LotSize, 10),
			instrument.InstrumentType,
			instrument.Segment,
			instrument.Exchange,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	fmt.Printf("Saved %d instruments to %s\n", len(instruments), path)
	return writer.Error()
}

func buildRangeOptions() ([]download.RangeOption, error) {
	var options []download.RangeOption

	if days > 0 {
		options = append(options, download.WithDays(days))
	}

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("start and end dates must be provided together")
		}

		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date format: %w", err)
		}

		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date format: %w", err)
		}

		options = append(options, download.WithInterval(start, end))
	}

	return options, nil
}
