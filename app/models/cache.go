package models

import (
	"time"

	"github.com/google/btree"

	"github.com/oarkflow/stocksim/backtest"
)

// DayCandleCache is the per-run day candle cache handed to the engine by
// reference through the CandleStore. One btree per code, keyed by bar
// time, so the engine's daily window queries are range scans instead of
// repeated database hits. The cache lives and dies with one run; nothing
// is shared across runs.
type DayCandleCache struct {
	trees map[string]*btree.BTreeG[backtest.Candle]
}

// NewDayCandleCache returns an empty cache
func NewDayCandleCache() *DayCandleCache {
	return &DayCandleCache{trees: map[string]*btree.BTreeG[backtest.Candle]{}}
}

func candleLess(a, b backtest.Candle) bool {
	return a.Time.Before(b.Time)
}

// Has reports whether the code was loaded already, even with no candles
func (c *DayCandleCache) Has(code string) bool {
	_, ok := c.trees[code]
	return ok
}

// Put indexes the candles of one code, replacing any previous load
func (c *DayCandleCache) Put(code string, candles backtest.Candles) {
	tree := btree.NewG(16, candleLess)
	for _, candle := range candles {
		tree.ReplaceOrInsert(candle)
	}
	c.trees[code] = tree
}

// Range returns the candles of code within [begin, end], ascending
func (c *DayCandleCache) Range(code string, begin, end time.Time) backtest.Candles {
	tree, ok := c.trees[code]
	if !ok {
		return nil
	}

	var candles backtest.Candles
	tree.AscendRange(
		backtest.Candle{Time: begin},
		backtest.Candle{Time: end.Add(time.Millisecond)},
		func(candle backtest.Candle) bool {
			candles = append(candles, candle)
			return true
		},
	)
	return candles
}
