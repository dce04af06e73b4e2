package backtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oarkflow/stocksim/backtest"
)

// risingDays builds n ascending up-bar day candles, enough history for
// the 120-bar average
func risingDays(n int) backtest.Candles {
	days := make(backtest.Candles, n)
	base := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range days {
		close := 100.0 + float64(i)
		days[i] = backtest.Candle{
			Code: "A", Time: base.AddDate(0, 0, i),
			Open: close - 1, High: close + 1, Low: close - 2, Close: close, Volume: 1000,
		}
	}
	return days
}

func breakoutParams() backtest.Params {
	return backtest.Params{
		ProfitTakePct:  7,
		StopLossPct:    5,
		MaxHoldingDays: 20,
	}
}

func TestBreakoutEligible(t *testing.T) {
	assert := assert.New(t)

	breakout := backtest.NewBreakout(breakoutParams())

	assert.True(breakout.Eligible(risingDays(121)))

	// 120-bar average cannot anchor on yesterday yet
	assert.False(breakout.Eligible(risingDays(120)))

	// flat averages are not an ascending stack
	flat := risingDays(121)
	for i := range flat {
		flat[i].Close = 100
	}
	assert.False(breakout.Eligible(flat))

	// falling series inverts the stack
	falling := risingDays(121)
	for i := range falling {
		falling[i].Close = 400 - float64(i)
	}
	assert.False(breakout.Eligible(falling))

	// no up-bar in the last five sessions
	tired := risingDays(121)
	for i := len(tired) - 5; i < len(tired); i++ {
		tired[i].Open = tired[i].Close + 1
	}
	assert.False(breakout.Eligible(tired))
}

func TestBreakoutShouldEnter(t *testing.T) {
	assert := assert.New(t)

	breakout := backtest.NewBreakout(breakoutParams())

	days := make(backtest.Candles, 6)
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range days {
		days[i] = backtest.Candle{
			Code: "A", Time: base.AddDate(0, 0, i),
			Open: 10, High: 11, Low: 9, Close: 10, Volume: 1000,
		}
	}
	days[5].Open = 9 // today opened below the 5MA of 10

	// inside the band just above the average
	assert.True(breakout.ShouldEnter(days, 10.0))
	assert.True(breakout.ShouldEnter(days, 10.2))

	// below the average, or past the band top
	assert.False(breakout.ShouldEnter(days, 9.9))
	assert.False(breakout.ShouldEnter(days, 10.25))
	assert.False(breakout.ShouldEnter(days, 11.0))

	// the day opened at or above the average, so no upward cross
	days[5].Open = 10
	assert.False(breakout.ShouldEnter(days, 10.1))

	// too little history for the 5MA
	assert.False(breakout.ShouldEnter(days[:5], 10.1))
}

func breakoutBar(close float64, hour, min int) backtest.Candle {
	return backtest.Candle{
		Code: "A",
		Time: time.Date(2021, 3, 2, hour, min, 0, 0, time.UTC),
		Open: close, High: close, Low: close, Close: close,
	}
}

func TestBreakoutShouldExit(t *testing.T) {
	assert := assert.New(t)

	breakout := backtest.NewBreakout(breakoutParams())
	opened := time.Date(2021, 2, 1, 10, 0, 0, 0, time.UTC)
	holding := func(hwm float64) *backtest.Holding {
		return &backtest.Holding{
			Code: "A", Quantity: 10, AveragePrice: 100, HighWaterMark: hwm, OpenedAt: opened,
		}
	}

	// stop loss and take profit fire at any time of day
	decision := breakout.ShouldExit(holding(100), breakoutBar(94, 10, 0), 1)
	assert.Equal(backtest.SellAll, decision.Action)
	assert.Equal("stop loss", decision.Reason)

	decision = breakout.ShouldExit(holding(108), breakoutBar(108, 10, 0), 1)
	assert.Equal(backtest.SellAll, decision.Action)
	assert.Equal("take profit", decision.Reason)

	// slow exits stay gated before 14:50
	decision = breakout.ShouldExit(holding(100), breakoutBar(100, 10, 0), 30)
	assert.Equal(backtest.Hold, decision.Action)

	decision = breakout.ShouldExit(holding(100), breakoutBar(100, 14, 50), 20)
	assert.Equal(backtest.SellAll, decision.Action)
	assert.Equal("max holding days", decision.Reason)

	// the high-water mark never left the entry band
	decision = breakout.ShouldExit(holding(100.5), breakoutBar(100, 14, 55), 6)
	assert.Equal(backtest.SellAll, decision.Action)
	assert.Equal("dead money", decision.Reason)

	// a mark well above entry is not dead money
	decision = breakout.ShouldExit(holding(102), breakoutBar(100, 14, 55), 6)
	assert.Equal(backtest.Hold, decision.Action)

	// too young for the dead-money rule
	decision = breakout.ShouldExit(holding(100), breakoutBar(100, 14, 55), 4)
	assert.Equal(backtest.Hold, decision.Action)
}
