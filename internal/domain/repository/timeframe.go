package repository

// Timeframe is a candle aggregation period.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// Minutes returns the bucket width of tf in minutes.
func (tf Timeframe) Minutes() int64 {
	switch tf {
	case TF5m:
		return 5
	case TF15m:
		return 15
	default:
		return 1
	}
}

// Timeframes lists all supported timeframes, shortest first.
func Timeframes() []Timeframe { return []Timeframe{TF1m, TF5m, TF15m} }

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m:
		return true
	default:
		return false
	}
}

// NormalizeTimeframe converts raw string to a valid timeframe (or 1m).
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return TF1m
}
