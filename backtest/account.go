package backtest

import (
	"errors"
	"math"
	"time"
)

// ErrInsufficientFunds is returned when a buy would overdraw the cash balance
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNoSuchPosition is returned when a sell targets a code that is not held.
// The engine treats it as an invariant violation, not a recoverable state.
var ErrNoSuchPosition = errors.New("no such position")

// Holding is one open position. At most one Holding per code exists in an
// account; a holding whose quantity reaches zero is removed.
type Holding struct {
	Code          string    `json:"code"`
	Quantity      int       `json:"quantity"`
	AveragePrice  float64   `json:"average_price"`
	HighWaterMark float64   `json:"high_water_mark"`
	OpenedAt      time.Time `json:"opened_at"`

	// PartialProfitTaken remembers that the one-shot partial profit
	// ladder already fired for this position.
	PartialProfitTaken bool `json:"partial_profit_taken"`
}

// Total is the cost basis of the position
func (h *Holding) Total() float64 {
	return h.AveragePrice * float64(h.Quantity)
}

// RevenueRate is the profit percentage of the position at the given price
func (h *Holding) RevenueRate(price float64) float64 {
	return (price - h.AveragePrice) / h.AveragePrice * 100
}

// VirtualAccount holds the cash balance and open positions of one backtest
// run. Buy and Sell are atomic: a failed operation leaves the account
// untouched. Fees are charged on both sides, tax on the sell side only,
// both as percentage surcharges.
type VirtualAccount struct {
	Cash     float64
	Holdings map[string]*Holding

	feePct float64
	taxPct float64
}

// NewVirtualAccount returns an account with the given starting cash
func NewVirtualAccount(cash, feePct, taxPct float64) *VirtualAccount {
	return &VirtualAccount{
		Cash:     cash,
		Holdings: map[string]*Holding{},
		feePct:   feePct,
		taxPct:   taxPct,
	}
}

// Has reports whether a position exists for code
func (va *VirtualAccount) Has(code string) bool {
	_, ok := va.Holdings[code]
	return ok
}

// Get returns the position for code, or nil
func (va *VirtualAccount) Get(code string) *Holding {
	return va.Holdings[code]
}

// Buy debits cash by quantity*price plus the fee surcharge and returns the
// resulting position. An existing position is merged by volume-weighted
// average price; the average excludes fees so that realized profit stays
// comparable against the order book.
func (va *VirtualAccount) Buy(code string, quantity int, price float64, at time.Time) (*Holding, error) {
	cost := float64(quantity)*price*(1+va.feePct/100)
	if cost > va.Cash {
		return nil, ErrInsufficientFunds
	}

	holding, ok := va.Holdings[code]
	if ok {
		total := holding.Total() + float64(quantity)*price
		holding.Quantity += quantity
		holding.AveragePrice = total / float64(holding.Quantity)
		if price > holding.HighWaterMark {
			holding.HighWaterMark = price
		}
	} else {
		holding = &Holding{
			Code:          code,
			Quantity:      quantity,
			AveragePrice:  price,
			HighWaterMark: price,
			OpenedAt:      at,
		}
		va.Holdings[code] = holding
	}

	va.Cash -= cost
	return holding, nil
}

// Sell sells floor(quantity*fraction) of the position at the given price,
// capped at the held quantity, and credits cash net of fee and tax. The
// position is removed when its quantity reaches zero, otherwise it keeps
// its average price.
func (va *VirtualAccount) Sell(code string, price float64, fraction float64) (int, error) {
	holding, ok := va.Holdings[code]
	if !ok {
		return 0, ErrNoSuchPosition
	}

	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}

	quantity := int(math.Floor(float64(holding.Quantity) * fraction))
	if quantity > holding.Quantity {
		quantity = holding.Quantity
	}

	holding.Quantity -= quantity
	va.Cash += float64(quantity) * price * (1 - (va.feePct+va.taxPct)/100)

	if holding.Quantity == 0 {
		delete(va.Holdings, code)
	}

	return quantity, nil
}

// MarkToMarket values every open position at the supplied price. A code
// with no price is valued at cost basis and reported back so the caller
// can record the data-quality note; it is never valued at zero.
func (va *VirtualAccount) MarkToMarket(prices map[string]float64) (float64, []string) {
	value := 0.0
	var absents []string

	for code, holding := range va.Holdings {
		if price, ok := prices[code]; ok {
			value += price * float64(holding.Quantity)
		} else {
			value += holding.Total()
			absents = append(absents, code)
		}
	}

	return value, absents
}
