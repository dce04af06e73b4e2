package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/oarkflow/xid"
	"github.com/sirupsen/logrus"
)

// Trade sides
const (
	BUY  = "BUY"
	SELL = "SELL"
)

// TradeEvent is one executed order. A sell links the buy event that
// opened the position so realized profit and holding period can be
// derived without replaying state.
type TradeEvent struct {
	ID       string    `json:"id"`
	When     time.Time `json:"when"`
	Code     string    `json:"code"`
	Side     string    `json:"side"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
	Reason   string    `json:"reason"`

	BuyID      string  `json:"buy_id,omitempty"`
	RevenuePct float64 `json:"revenue_pct,omitempty"`
}

// DailySnapshot is the end-of-day valuation, one per trading day
type DailySnapshot struct {
	Date         time.Time `json:"date"`
	Cash         float64   `json:"cash"`
	HoldingValue float64   `json:"holding_value"`
	HoldingCount int       `json:"holding_count"`
	Note         string    `json:"note"`
}

// Result is everything one run produced. On a fatal error the engine
// still returns the partial result so the event log stays auditable.
// FinalValue marks open positions at their last known close;
// UnpricedHoldings counts the positions that never saw one and were
// valued at cost basis instead.
type Result struct {
	Strategy    string          `json:"strategy"`
	Params      Params          `json:"params"`
	Events      []TradeEvent    `json:"events"`
	Snapshots   []DailySnapshot `json:"snapshots"`
	InitialCash float64         `json:"initial_cash"`
	FinalCash   float64         `json:"final_cash"`
	FinalValue  float64         `json:"final_value"`

	UnpricedHoldings int `json:"unpriced_holdings,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// historyDays is how far back day candles are fetched so the longest
// moving average (120 bars) always has headroom.
const historyDays = 200

// Engine replays the date range day by day, builds the entry whitelist
// from day candles, streams minute candles through the strategy against
// the virtual account and evaluates the account once per trading day.
//
// The engine is strictly sequential and owns its account exclusively;
// concurrent runs each need their own Engine.
type Engine struct {
	params   Params
	store    CandleStore
	strategy Strategy
	account  *VirtualAccount

	universe   []string
	events     []TradeEvent
	snapshots  []DailySnapshot
	openBuys   map[string]string  // code -> id of the event that opened the position
	lastCloses map[string]float64 // code -> most recent day close seen while held
}

// NewEngine builds an engine for one run
func NewEngine(store CandleStore, strategy Strategy, params Params) *Engine {
	return &Engine{
		params:     params,
		store:      store,
		strategy:   strategy,
		account:    NewVirtualAccount(params.InitialCash, params.FeePct, params.TaxPct),
		openBuys:   map[string]string{},
		lastCloses: map[string]float64{},
	}
}

// Run executes the backtest over [params.Begin, params.End]
func (e *Engine) Run() (*Result, error) {
	startedAt := time.Now()

	universe, err := e.store.Universe()
	if err != nil {
		return e.result(startedAt), err
	}
	sort.Strings(universe)
	e.universe = universe

	for d := e.params.Begin; !d.After(e.params.End); d = d.AddDate(0, 0, 1) {
		if err := e.runDay(d); err != nil {
			return e.result(startedAt), err
		}
	}

	if e.params.LiquidateOnEnd {
		if err := e.liquidate(); err != nil {
			return e.result(startedAt), err
		}
	}

	result := e.result(startedAt)
	logrus.Infof("backtest finished: %v events, %v trading days, took %v",
		len(result.Events), len(result.Snapshots), result.FinishedAt.Sub(startedAt))
	return result, nil
}

func (e *Engine) result(startedAt time.Time) *Result {
	value, absents := e.account.MarkToMarket(e.lastCloses)
	return &Result{
		Strategy:    e.strategy.Name(),
		Params:      e.params,
		Events:      e.events,
		Snapshots:   e.snapshots,
		InitialCash: e.params.InitialCash,
		FinalCash:   e.account.Cash,
		FinalValue:  e.account.Cash + value,

		UnpricedHoldings: len(absents),

		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

func (e *Engine) runDay(d time.Time) error {
	days, err := e.store.DayCandles(e.universe, d.AddDate(0, 0, -historyDays), d)
	if err != nil {
		return err
	}

	// not a trading day when nobody printed a day candle
	trading := false
	for _, candles := range days {
		if last := candles.Last(); last != nil && SameDay(last.Time, d) {
			trading = true
			break
		}
	}
	if !trading {
		return nil
	}

	logrus.Infof("backtest at %v", d.Format("2006-01-02"))

	whitelist := map[string]bool{}
	var feed []string
	for _, code := range e.universe {
		candles := days[code]
		last := candles.Last()
		if last == nil || !SameDay(last.Time, d) {
			continue
		}
		if e.strategy.Eligible(candles) {
			whitelist[code] = true
			feed = append(feed, code)
		}
	}

	// held codes always ride along so exits can fire
	for _, code := range sortedCodes(e.account.Holdings) {
		if !whitelist[code] {
			feed = append(feed, code)
		}
	}
	sort.Strings(feed)

	logrus.Infof("%v codes in whitelist, %v held", len(whitelist), len(e.account.Holdings))

	skippedBuys := 0
	if len(feed) > 0 {
		minutes, err := e.store.MinuteCandles(feed, d)
		if err != nil {
			return err
		}

		blacklist := map[string]bool{}
		for i := range minutes {
			bar := &minutes[i]

			if e.account.Has(bar.Code) {
				if err := e.checkExit(bar, days[bar.Code], blacklist); err != nil {
					return err
				}
				continue
			}

			if !whitelist[bar.Code] || blacklist[bar.Code] {
				continue
			}
			if !e.checkEntry(bar, days[bar.Code]) {
				skippedBuys++
			}
		}
	}

	e.snapshots = append(e.snapshots, e.evaluate(d, days, skippedBuys))
	return nil
}

// checkEntry returns false only when a buy fired but the cash balance
// could not cover it.
func (e *Engine) checkEntry(bar *Candle, days Candles) bool {
	if !e.strategy.ShouldEnter(days, bar.Close) {
		return true
	}

	quantity := int(e.params.Allocation / bar.Close)
	if quantity <= 0 {
		return true
	}

	if _, err := e.account.Buy(bar.Code, quantity, bar.Close, bar.Time); err != nil {
		// recoverable: note it on the snapshot and move on
		logrus.Warnf("buy skipped for %v: %v", bar.Code, err)
		return false
	}

	event := TradeEvent{
		ID:       xid.New().String(),
		When:     bar.Time,
		Code:     bar.Code,
		Side:     BUY,
		Price:    bar.Close,
		Quantity: quantity,
		Reason:   "entry",
	}
	e.events = append(e.events, event)
	e.openBuys[bar.Code] = event.ID
	return true
}

func (e *Engine) checkExit(bar *Candle, days Candles, blacklist map[string]bool) error {
	holding := e.account.Get(bar.Code)
	if bar.Close > holding.HighWaterMark {
		holding.HighWaterMark = bar.Close
	}

	decision := e.strategy.ShouldExit(holding, *bar, sessionsSince(days, holding.OpenedAt))
	switch decision.Action {
	case Hold:
		return nil
	case SellAll:
		if decision.Reason == "stop loss" {
			// no re-entry on the day a stop fired
			blacklist[bar.Code] = true
		}
		return e.sell(bar.Code, bar.Close, 1, bar.Time, decision.Reason)
	case SellFraction:
		if err := e.sell(bar.Code, bar.Close, decision.Fraction, bar.Time, decision.Reason); err != nil {
			return err
		}
		if h := e.account.Get(bar.Code); h != nil {
			h.PartialProfitTaken = true
		}
		return nil
	}
	return nil
}

func (e *Engine) sell(code string, price float64, fraction float64, when time.Time, reason string) error {
	holding := e.account.Get(code)
	if holding == nil {
		return fmt.Errorf("%w: %v", ErrNoSuchPosition, code)
	}
	boughtPrice := holding.AveragePrice

	quantity, err := e.account.Sell(code, price, fraction)
	if err != nil {
		return err
	}
	if quantity == 0 {
		return nil
	}

	event := TradeEvent{
		ID:         xid.New().String(),
		When:       when,
		Code:       code,
		Side:       SELL,
		Price:      price,
		Quantity:   quantity,
		Reason:     reason,
		BuyID:      e.openBuys[code],
		RevenuePct: (price - boughtPrice) / boughtPrice * 100,
	}
	e.events = append(e.events, event)

	if !e.account.Has(code) {
		delete(e.openBuys, code)
	}
	return nil
}

// evaluate marks the account to market at the day close of every held
// code. Codes without a close for the day fall back to cost basis and
// are counted on the snapshot note.
func (e *Engine) evaluate(d time.Time, days map[string]Candles, skippedBuys int) DailySnapshot {
	prices := map[string]float64{}
	for code := range e.account.Holdings {
		if last := days[code].Last(); last != nil && SameDay(last.Time, d) {
			prices[code] = last.Close
			e.lastCloses[code] = last.Close
		}
	}

	value, absents := e.account.MarkToMarket(prices)
	return DailySnapshot{
		Date:         d,
		Cash:         e.account.Cash,
		HoldingValue: value,
		HoldingCount: len(e.account.Holdings),
		Note:         fmt.Sprintf("absents: %d, skipped buys: %d", len(absents), skippedBuys),
	}
}

// liquidate closes every remaining position at its last known close
func (e *Engine) liquidate() error {
	codes := sortedCodes(e.account.Holdings)
	if len(codes) == 0 {
		return nil
	}

	days, err := e.store.DayCandles(codes, e.params.End.AddDate(0, 0, -historyDays), e.params.End)
	if err != nil {
		return err
	}

	for _, code := range codes {
		last := days[code].Last()
		if last == nil {
			// nothing to price it with, keep the position on the book
			logrus.Warnf("no close to liquidate %v with", code)
			continue
		}

		when := time.Date(last.Time.Year(), last.Time.Month(), last.Time.Day(), 15, 30, 0, 0, last.Time.Location())
		if err := e.sell(code, last.Close, 1, when, "backtest end"); err != nil {
			return err
		}
	}
	return nil
}

// sessionsSince counts day candles strictly after the entry day,
// i.e. completed sessions the position was carried over.
func sessionsSince(days Candles, openedAt time.Time) int {
	count := 0
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].Time.After(openedAt) || SameDay(days[i].Time, openedAt) {
			break
		}
		count++
	}
	return count
}

func sortedCodes(holdings map[string]*Holding) []string {
	codes := make([]string, 0, len(holdings))
	for code := range holdings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
