package backtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oarkflow/stocksim/backtest"
)

func buyEvent(id, code string, price float64, quantity int) backtest.TradeEvent {
	return backtest.TradeEvent{
		ID: id, Code: code, Side: backtest.BUY,
		Price: price, Quantity: quantity, Reason: "entry",
	}
}

func sellEvent(buyID, code string, price float64, quantity int, reason string) backtest.TradeEvent {
	return backtest.TradeEvent{
		ID: "s-" + buyID, Code: code, Side: backtest.SELL,
		Price: price, Quantity: quantity, Reason: reason, BuyID: buyID,
	}
}

func TestRoundTrips(t *testing.T) {
	assert := assert.New(t)

	events := []backtest.TradeEvent{
		buyEvent("b1", "A", 100, 10),
		sellEvent("b1", "A", 110, 5, "partial profit"),
		buyEvent("b2", "B", 200, 5),
		sellEvent("b1", "A", 95, 5, "trailing stop"),
	}

	trips := backtest.RoundTrips(events)
	assert.Len(trips, 2)

	first := trips[0]
	assert.Equal("b1", first.Buy.ID)
	assert.Len(first.Sells, 2)
	assert.True(first.Closed())
	// 5*(110-100) + 5*(95-100)
	assert.Equal(25.0, first.RealizedProfit())

	second := trips[1]
	assert.Equal("b2", second.Buy.ID)
	assert.Empty(second.Sells)
	assert.False(second.Closed())
	assert.Equal(0.0, second.RealizedProfit())
}

func TestSummarize(t *testing.T) {
	assert := assert.New(t)

	startedAt := time.Date(2021, 7, 1, 9, 0, 0, 0, time.UTC)
	result := &backtest.Result{
		Strategy: "band",
		Params: backtest.Params{
			Begin: time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		Events: []backtest.TradeEvent{
			buyEvent("b1", "A", 100, 10),
			sellEvent("b1", "A", 110, 10, "take profit ceiling"),
			buyEvent("b2", "B", 200, 5),
			sellEvent("b2", "B", 190, 5, "stop loss"),
		},
		Snapshots: []backtest.DailySnapshot{
			{Date: time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		},
		InitialCash: 1_000_000,
		FinalCash:   1_050_000,
		FinalValue:  1_050_000,
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(90 * time.Second),
	}

	summary := backtest.Summarize(result)
	assert.Equal("band", summary.Strategy)
	assert.Equal(2, summary.TradingDays)
	assert.Equal(2, summary.BuyCount)
	assert.Equal(2, summary.SellCount)
	assert.Equal(1, summary.WinCount)
	// 10*(110-100) - 5*(200-190)
	assert.Equal(50.0, summary.RealizedProfit)
	assert.InDelta(5.0, summary.ReturnRate, 1e-9)
	assert.Equal(90.0, summary.RunningSeconds)
}

func TestSummarizeEmptyRun(t *testing.T) {
	assert := assert.New(t)

	summary := backtest.Summarize(&backtest.Result{Strategy: "breakout"})
	assert.Zero(summary.ReturnRate)
	assert.Zero(summary.BuyCount)
	assert.Zero(summary.TradingDays)
}
