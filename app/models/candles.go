package models

import (
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-quote"
	"github.com/oarkflow/errors"
	"gorm.io/gorm"

	"github.com/oarkflow/stocksim/backtest"
)

// DayCandle is one daily bar of one instrument. Time is Unixtime in
// milliseconds like every timestamp leaving this package.
type DayCandle struct {
	ID     int     `gorm:"primary_key" json:"-"`
	Code   string  `gorm:"index" json:"code"`
	Time   int64   `gorm:"index" json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MinuteCandle is one intraday bar of one instrument
type MinuteCandle struct {
	ID     int     `gorm:"primary_key" json:"-"`
	Code   string  `gorm:"index" json:"code"`
	Time   int64   `gorm:"index" json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// DayCandles is slice of DayCandle, used to create candle data in database
type DayCandles []DayCandle

// MinuteCandles is slice of MinuteCandle
type MinuteCandles []MinuteCandle

// NewDayCandlesFromQuote converts a downloaded Quote to DayCandles,
// ex) [Date[1, 2, 3...], Open[1, 2, 3...]...] → [[Date[1], Open[1]...], [Date[2], Open[2]...]...]
func NewDayCandlesFromQuote(code string, q *quote.Quote) *DayCandles {
	candles := DayCandles{}
	for i := 0; i < len(q.Date); i++ {
		candles = append(candles, DayCandle{
			Code:   code,
			Time:   q.Date[i].Unix() * 1000,
			Open:   math.Round(q.Open[i]*100) / 100,
			High:   math.Round(q.High[i]*100) / 100,
			Low:    math.Round(q.Low[i]*100) / 100,
			Close:  math.Round(q.Close[i]*100) / 100,
			Volume: math.Round(q.Volume[i]*100) / 100,
		})
	}

	return &candles
}

// Create creates day candle data
func (cs *DayCandles) Create() error {
	if err := DB.Create(cs).Error; err != nil {
		return errors.NewE(err, "unable to create day candles", "")
	}
	return nil
}

// Create creates minute candle data
func (cs *MinuteCandles) Create() error {
	if err := DB.Create(cs).Error; err != nil {
		return errors.NewE(err, "unable to create minute candles", "")
	}
	return nil
}

// AllDeleteCandles deletes all data of both candle tables
func AllDeleteCandles() {
	DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&DayCandle{})
	DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&MinuteCandle{})
}

func (c *DayCandle) toCandle() backtest.Candle {
	return backtest.Candle{
		Code:   c.Code,
		Time:   time.UnixMilli(c.Time),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

func (c *MinuteCandle) toCandle() backtest.Candle {
	return backtest.Candle{
		Code:   c.Code,
		Time:   time.UnixMilli(c.Time),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

// CandleStore serves candles to the backtest engine from the database,
// day candles through the per-run cache.
type CandleStore struct {
	db    *gorm.DB
	cache *DayCandleCache
}

// NewCandleStore returns a store with a fresh per-run cache
func NewCandleStore(db *gorm.DB) *CandleStore {
	return &CandleStore{db: db, cache: NewDayCandleCache()}
}

// Universe returns every code with day candle data
func (s *CandleStore) Universe() ([]string, error) {
	var codes []string
	if err := s.db.Model(&DayCandle{}).Distinct("code").Order("code").Pluck("code", &codes).Error; err != nil {
		return nil, errors.NewE(err, "unable to load universe", "")
	}
	return codes, nil
}

// DayCandles returns day candles per code within [begin, end], ascending
// by date. The first call per code loads its whole history into the
// cache; later calls only slice the index.
func (s *CandleStore) DayCandles(codes []string, begin, end time.Time) (map[string]backtest.Candles, error) {
	result := map[string]backtest.Candles{}

	var misses []string
	for _, code := range codes {
		if !s.cache.Has(code) {
			misses = append(misses, code)
		}
	}

	if len(misses) > 0 {
		var rows DayCandles
		if err := s.db.Where("code IN ?", misses).Order("time asc, id asc").Find(&rows).Error; err != nil {
			return nil, errors.NewE(err, "unable to load day candles", "")
		}

		loaded := map[string]backtest.Candles{}
		for i := range rows {
			loaded[rows[i].Code] = append(loaded[rows[i].Code], rows[i].toCandle())
		}
		for _, code := range misses {
			// an empty put remembers the miss too
			s.cache.Put(code, loaded[code])
		}
	}

	for _, code := range codes {
		if candles := s.cache.Range(code, begin, end); len(candles) > 0 {
			result[code] = candles
		}
	}
	return result, nil
}

// MinuteCandles returns all minute candles of the given codes for one
// day, ascending by time, ties in insertion order.
func (s *CandleStore) MinuteCandles(codes []string, day time.Time) (backtest.Candles, error) {
	begin := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := begin.AddDate(0, 0, 1)

	var rows MinuteCandles
	err := s.db.Where("code IN ? AND time >= ? AND time < ?", codes, begin.UnixMilli(), end.UnixMilli()).
		Order("time asc, id asc").Find(&rows).Error
	if err != nil {
		return nil, errors.NewE(err, "unable to load minute candles", "")
	}

	candles := make(backtest.Candles, len(rows))
	for i := range rows {
		candles[i] = rows[i].toCandle()
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}
