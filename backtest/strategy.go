package backtest

import "time"

// Params is the configuration of one backtest run, immutable once the
// engine is constructed.
type Params struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`

	InitialCash float64 `json:"initial_cash"`
	// Allocation is the cash amount targeted per entry; the bought
	// quantity is floor(Allocation / price).
	Allocation float64 `json:"allocation"`

	ProfitTakePct    float64 `json:"profit_take_pct"`
	StopLossPct      float64 `json:"stop_loss_pct"`
	TrailingStopPct  float64 `json:"trailing_stop_pct"`
	MinProfitPct     float64 `json:"min_profit_pct"`
	PartialProfitPct float64 `json:"partial_profit_pct"`
	MaxHoldingDays   int     `json:"max_holding_days"`

	FeePct float64 `json:"fee_pct"`
	TaxPct float64 `json:"tax_pct"`

	// LiquidateOnEnd sells every remaining position at the last known
	// close when the date range is exhausted. Off by default; the
	// choice is recorded with the run so results stay comparable.
	LiquidateOnEnd bool `json:"liquidate_on_end"`
}

// ExitAction enumerates what to do with a held position
type ExitAction int

// Exit actions, in increasing order of aggression
const (
	Hold ExitAction = iota
	SellFraction
	SellAll
)

// ExitDecision is the outcome of one exit evaluation. Reason travels
// onto the resulting trade event.
type ExitDecision struct {
	Action   ExitAction
	Fraction float64
	Reason   string
}

var holdDecision = ExitDecision{Action: Hold}

// Strategy is a pluggable decision unit. Implementations are pure over
// their inputs: they never mutate the account, and they answer false or
// Hold when the history is too short instead of failing.
//
// Exit rules are evaluated in a fixed priority order and the first
// matching rule wins.
type Strategy interface {
	// Name returns the identifier stored with a run
	Name() string

	// Eligible is the cheap day-bar precondition used to build the
	// daily whitelist. days is ascending and ends with the simulated
	// day's own candle.
	Eligible(days Candles) bool

	// ShouldEnter judges an entry against the day history and a
	// hypothetical current price.
	ShouldEnter(days Candles, price float64) bool

	// ShouldExit judges an exit for a held position at the given
	// minute bar. elapsedDays counts completed sessions since entry.
	ShouldExit(holding *Holding, bar Candle, elapsedDays int) ExitDecision
}
