package kite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		timeframe string
		interval  string
		duration  time.Duration
	}{
		{"1m", "minute", time.Minute},
		{"5m", "5minute", 5 * time.Minute},
		{"15m", "15minute", 15 * time.Minute},
		{"1h", "60minute", time.Hour},
		{"1d", "day", 24 * time.Hour},
		// Kite interval names pass through unchanged
		{"5minute", "5minute", 5 * time.Minute},
		{"day", "day", 24 * time.Hour},
	}

	for _, tt := range tests {
		interval, duration, err := Interval(tt.timeframe)
		require.NoError(t, err, tt.timeframe)
		require.Equal(t, tt.interval, interval, tt.timeframe)
		require.Equal(t, tt.duration, duration, tt.timeframe)
	}
}

func TestInterval_Unsupported(t *testing.T) {
	for _, timeframe := range []string{"2m", "1w", "", "fast"} {
		_, _, err := Interval(timeframe)
		require.Error(t, err, timeframe)
	}
}
