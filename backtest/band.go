package backtest

import "github.com/markcheno/go-talib"

// Band is a Bollinger-band mean-reversion strategy: it buys a close
// below the lower band and unwinds through a minimum profit floor,
// a hard ceiling, a trailing stop against the position's high-water
// mark, and a one-shot half partial profit.
type Band struct {
	params Params
	size   int
	k      float64
}

// NewBand returns the band strategy for one run with the conventional
// 20-bar, 2-sigma band.
func NewBand(params Params) *Band {
	return &Band{params: params, size: 20, k: 2.0}
}

// Name implements Strategy
func (b *Band) Name() string { return "band" }

// lowerBand computes the lower band over the given closes, talib wants
// the full series and returns one value per bar.
func (b *Band) lowerBand(closes []float64) (float64, bool) {
	if len(closes) <= b.size {
		return 0, false
	}
	_, _, lower := talib.BBands(closes, b.size, b.k, b.k, talib.SMA)
	return lower[len(lower)-1], true
}

// Eligible keeps codes whose day low already probes the band built from
// yesterday's closes and today's high; only those can plausibly cross
// the lower band intraday.
func (b *Band) Eligible(days Candles) bool {
	today := days.Last()
	if today == nil {
		return false
	}

	closes := days.Closes()
	closes[len(closes)-1] = today.High
	lower, ok := b.lowerBand(closes)

	return ok && lower > today.Low
}

// ShouldEnter fires when the hypothetical current price sits below the
// lower band recomputed with that price as the still-forming close.
func (b *Band) ShouldEnter(days Candles, price float64) bool {
	if len(days) == 0 {
		return false
	}

	closes := days.Closes()
	closes[len(closes)-1] = price
	lower, ok := b.lowerBand(closes)

	return ok && price < lower
}

// ShouldExit implements Strategy. Everything but the stop loss is gated
// behind the minimum profit floor.
func (b *Band) ShouldExit(holding *Holding, bar Candle, elapsedDays int) ExitDecision {
	rate := holding.RevenueRate(bar.Close)

	if rate <= -b.params.StopLossPct {
		return ExitDecision{Action: SellAll, Reason: "stop loss"}
	}

	if rate < b.params.MinProfitPct {
		return holdDecision
	}

	if rate >= b.params.ProfitTakePct {
		return ExitDecision{Action: SellAll, Reason: "take profit ceiling"}
	}

	drawdown := (bar.Close - holding.HighWaterMark) / holding.HighWaterMark * 100
	if drawdown < -b.params.TrailingStopPct {
		return ExitDecision{Action: SellAll, Reason: "trailing stop"}
	}

	if rate >= b.params.PartialProfitPct && !holding.PartialProfitTaken {
		return ExitDecision{Action: SellFraction, Fraction: 0.5, Reason: "partial profit"}
	}

	return holdDecision
}
