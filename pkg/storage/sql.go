// Package storage provides the SQL candle archive.
package storage

import (
	"fmt"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CandleRow is the persisted form of a candle.
type CandleRow struct {
	ID       int64     `gorm:"primaryKey,autoIncrement"`
	Symbol   string    `gorm:"index:idx_candle,unique"`
	Interval string    `gorm:"index:idx_candle,unique"`
	Time     time.Time `gorm:"index:idx_candle,unique"`
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// SQLStorage implements core.CandleStorage on a GORM-managed database.
// The dialector is supplied by the caller, so any GORM driver works.
type SQLStorage struct {
	db *gorm.DB
}

// FromSQL opens the database and runs migrations.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CandleRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// FromSQLite opens a SQLite archive at dbPath.
func FromSQLite(dbPath string, opts ...gorm.Option) (*SQLStorage, error) {
	return FromSQL(sqlite.Open(dbPath), opts...)
}

// SaveCandles upserts a batch of candles for one symbol and interval.
func (s *SQLStorage) SaveCandles(symbol, interval string, candles []core.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	rows := lo.Map(candles, func(candle core.Candle, _ int) CandleRow {
		return CandleRow{
			Symbol:   symbol,
			Interval: interval,
			Time:     candle.Time,
			Open:     candle.Open,
			High:     candle.High,
			Low:      candle.Low,
			Close:    candle.Close,
			Volume:   candle.Volume,
		}
	})

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "time"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 500)
	if result.Error != nil {
		return fmt.Errorf("failed to save candles: %w", result.Error)
	}

	return nil
}

// Candles queries archived candles for a symbol within [start, end].
func (s *SQLStorage) Candles(symbol, interval string, start, end time.Time) ([]core.Candle, error) {
	var rows []CandleRow

	result := s.db.
		Where("symbol = ? AND interval = ? AND time BETWEEN ? AND ?", symbol, interval, start, end).
		Order("time").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query candles: %w", result.Error)
	}

	candles := lo.Map(rows, func(row CandleRow, _ int) core.Candle {
		return core.Candle{
			Symbol:   row.Symbol,
			Time:     row.Time,
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			Volume:   row.Volume,
			Complete: true,
		}
	})

	return candles, nil
}
