package metrics

// Nop discards all measurements. Used by tests and the backtester,
// where registering Prometheus collectors would be noise.
type Nop struct{}

func (Nop) RecordCandle(string)              {}
func (Nop) RecordStaleDrop(string)           {}
func (Nop) RecordEvaluation(string)          {}
func (Nop) RecordSkip(string, string)        {}
func (Nop) RecordScore(string, float64)      {}
func (Nop) RecordTradeOpened(string, string) {}
func (Nop) RecordTradeClosed(string)         {}
func (Nop) RecordBalance(float64)            {}
func (Nop) RecordError(string)               {}
func (Nop) RecordLatency(string, float64)    {}
