package backtest

import "time"

// Candle is one price bar for one instrument. Day candles carry the
// session date in Time; minute candles carry the full timestamp.
type Candle struct {
	Code   string    `json:"code"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Candles is an ascending-ordered slice of Candle
type Candles []Candle

// Opens is open prices of candles
func (cs Candles) Opens() []float64 {
	open := make([]float64, len(cs))
	for i, candle := range cs {
		open[i] = candle.Open
	}
	return open
}

// Highs is high prices of candles
func (cs Candles) Highs() []float64 {
	high := make([]float64, len(cs))
	for i, candle := range cs {
		high[i] = candle.High
	}
	return high
}

// Lows is low prices of candles
func (cs Candles) Lows() []float64 {
	low := make([]float64, len(cs))
	for i, candle := range cs {
		low[i] = candle.Low
	}
	return low
}

// Closes is close prices of candles
func (cs Candles) Closes() []float64 {
	closes := make([]float64, len(cs))
	for i, candle := range cs {
		closes[i] = candle.Close
	}
	return closes
}

// Last returns the most recent candle, or nil for an empty slice
func (cs Candles) Last() *Candle {
	if len(cs) == 0 {
		return nil
	}
	return &cs[len(cs)-1]
}

// SameDay reports whether two timestamps fall on the same calendar day
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CandleStore supplies ordered candle data to the engine. Implementations
// must return day candles ascending by date and minute candles ascending
// by time, ties in submission order.
type CandleStore interface {
	// Universe returns every tradeable code, static for one run.
	Universe() ([]string, error)
	// DayCandles returns day candles per code within [begin, end].
	DayCandles(codes []string, begin, end time.Time) (map[string]Candles, error)
	// MinuteCandles returns all minute candles of the given codes for one day.
	MinuteCandles(codes []string, day time.Time) (Candles, error)
}
