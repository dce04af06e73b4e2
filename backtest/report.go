package backtest

import "time"

// RoundTrip pairs a buy event with the sells that closed it
type RoundTrip struct {
	Buy   TradeEvent   `json:"buy"`
	Sells []TradeEvent `json:"sells"`
}

// Closed reports whether the sold quantity covers the bought quantity
func (rt *RoundTrip) Closed() bool {
	sold := 0
	for _, sell := range rt.Sells {
		sold += sell.Quantity
	}
	return sold >= rt.Buy.Quantity
}

// RealizedProfit is the cash-basis profit of the trip's sells, gross of
// fees and tax which are already reflected in the account balance.
func (rt *RoundTrip) RealizedProfit() float64 {
	profit := 0.0
	for _, sell := range rt.Sells {
		profit += (sell.Price - rt.Buy.Price) * float64(sell.Quantity)
	}
	return profit
}

// Summary is the run digest handed to the reporting side
type Summary struct {
	Strategy string    `json:"strategy"`
	Begin    time.Time `json:"begin"`
	End      time.Time `json:"end"`

	InitialCash float64 `json:"initial_cash"`
	FinalCash   float64 `json:"final_cash"`
	FinalValue  float64 `json:"final_value"`
	// ReturnRate is (final - initial) / initial * 100
	ReturnRate float64 `json:"return_rate"`

	TradingDays    int     `json:"trading_days"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	WinCount       int     `json:"win_count"`
	RealizedProfit float64 `json:"realized_profit"`

	RunningSeconds float64 `json:"running_seconds"`
}

// Summarize reduces a run result to its summary scalars
func Summarize(r *Result) Summary {
	s := Summary{
		Strategy:    r.Strategy,
		Begin:       r.Params.Begin,
		End:         r.Params.End,
		InitialCash: r.InitialCash,
		FinalCash:   r.FinalCash,
		FinalValue:  r.FinalValue,
		TradingDays: len(r.Snapshots),
	}

	if r.InitialCash != 0 {
		s.ReturnRate = (r.FinalValue - r.InitialCash) / r.InitialCash * 100
	}

	for _, trip := range RoundTrips(r.Events) {
		profit := trip.RealizedProfit()
		s.RealizedProfit += profit
		if profit > 0 {
			s.WinCount++
		}
	}

	for _, event := range r.Events {
		switch event.Side {
		case BUY:
			s.BuyCount++
		case SELL:
			s.SellCount++
		}
	}

	s.RunningSeconds = r.FinishedAt.Sub(r.StartedAt).Seconds()
	return s
}

// RoundTrips groups the ordered event log into buy/sell trips using the
// sell events' buy links.
func RoundTrips(events []TradeEvent) []RoundTrip {
	var trips []RoundTrip
	byBuyID := map[string]int{}

	for _, event := range events {
		if event.Side == BUY {
			byBuyID[event.ID] = len(trips)
			trips = append(trips, RoundTrip{Buy: event})
			continue
		}

		if i, ok := byBuyID[event.BuyID]; ok {
			trips[i].Sells = append(trips[i].Sells, event)
		}
	}

	return trips
}
