package backtest

// Breakout buys the upward cross of the 5-day average inside a narrow
// band, on instruments whose longer averages form an ascending stack.
//
// Exit priority: stop loss, take profit, then late in the session for
// positions held at least deadMoneyMinDays sessions, dead-money and
// max-holding-period liquidation.
type Breakout struct {
	params Params
}

const (
	// entry band above the 5MA, as a ratio
	breakoutEntryBand = 1.025

	// time-of-day gate for the slow exits, minutes from midnight (14:50)
	lateSessionMinute = 14*60 + 50

	deadMoneyMinDays = 5
	// a position whose high-water mark never moved this far off the
	// entry price is considered dead money
	deadMoneyBandPct = 1.0
)

// NewBreakout returns the breakout strategy for one run
func NewBreakout(params Params) *Breakout {
	return &Breakout{params: params}
}

// Name implements Strategy
func (b *Breakout) Name() string { return "breakout" }

// Eligible requires the aligned formation 120MA < 60MA < 20MA as of
// yesterday, a rising 20MA, and at least one up-bar in the last five
// sessions so pure downtrends stay out of the whitelist.
func (b *Breakout) Eligible(days Candles) bool {
	ma := NewMaCalculator(days.Closes())

	ma20, ok1 := ma.Average(20, -1)
	ma20Prev, ok2 := ma.Average(20, -2)
	ma60, ok3 := ma.Average(60, -1)
	ma120, ok4 := ma.Average(120, -1)
	if !(ok1 && ok2 && ok3 && ok4) {
		return false
	}

	if !(ma120 < ma60 && ma60 < ma20) {
		return false
	}
	if ma20 <= ma20Prev {
		return false
	}

	upBar := false
	for _, candle := range days[max(0, len(days)-5):] {
		if candle.Open < candle.Close {
			upBar = true
			break
		}
	}
	return upBar
}

// ShouldEnter fires when the price crosses from below yesterday's 5MA to
// within the narrow band above it, with the day having opened below the
// average.
func (b *Breakout) ShouldEnter(days Candles, price float64) bool {
	today := days.Last()
	if today == nil {
		return false
	}

	ma5, ok := NewMaCalculator(days.Closes()).Average(5, -1)
	if !ok {
		return false
	}

	return today.Open < ma5 && ma5 <= price && price < ma5*breakoutEntryBand
}

// ShouldExit implements Strategy
func (b *Breakout) ShouldExit(holding *Holding, bar Candle, elapsedDays int) ExitDecision {
	rate := holding.RevenueRate(bar.Close)

	if rate <= -b.params.StopLossPct {
		return ExitDecision{Action: SellAll, Reason: "stop loss"}
	}
	if rate >= b.params.ProfitTakePct {
		return ExitDecision{Action: SellAll, Reason: "take profit"}
	}

	// the slow exits only run late in the session to keep intraday
	// noise from shaking out fresh positions
	minute := bar.Time.Hour()*60 + bar.Time.Minute()
	if minute < lateSessionMinute {
		return holdDecision
	}

	if b.params.MaxHoldingDays > 0 && elapsedDays >= b.params.MaxHoldingDays {
		return ExitDecision{Action: SellAll, Reason: "max holding days"}
	}
	if elapsedDays >= deadMoneyMinDays && holding.RevenueRate(holding.HighWaterMark) < deadMoneyBandPct {
		return ExitDecision{Action: SellAll, Reason: "dead money"}
	}

	return holdDecision
}
