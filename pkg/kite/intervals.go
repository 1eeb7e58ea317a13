package kite

import (
	"fmt"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// intervalNames maps timeframe strings to Kite interval identifiers.
var intervalNames = map[string]string{
	"1m":  "minute",
	"3m":  "3minute",
	"5m":  "5minute",
	"10m": "10minute",
	"15m": "15minute",
	"30m": "30minute",
	"1h":  "60minute",
	"60m": "60minute",
	"1d":  "day",
}

// Interval resolves a timeframe string (e.g. "5m", "1d") to the Kite
// interval name and its duration. Kite interval names themselves are
// accepted unchanged.
func Interval(timeframe string) (string, time.Duration, error) {
	if name, ok := intervalNames[timeframe]; ok {
		duration, err := intervalDuration(name)
		return name, duration, err
	}

	// Already a Kite interval name?
	if duration, err := intervalDuration(timeframe); err == nil {
		return timeframe, duration, nil
	}

	return "", 0, fmt.Errorf("unsupported timeframe: %s", timeframe)
}

// intervalDuration returns the bar duration of a Kite interval name
func intervalDuration(name string) (time.Duration, error) {
	switch name {
	case "minute":
		return time.Minute, nil
	case "day":
		return str2duration.ParseDuration("1d")
	case "3minute", "5minute", "10minute", "15minute", "30minute", "60minute":
		return str2duration.ParseDuration(name[:len(name)-6] + "m")
	default:
		return 0, fmt.Errorf("unknown interval: %s", name)
	}
}
