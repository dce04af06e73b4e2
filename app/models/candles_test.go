package models_test

import (
	"time"

	"github.com/oarkflow/stocksim/app/models"
)

func testDay(value string) time.Time {
	d, _ := time.Parse("2006-01-02", value)
	return d
}

func (suite *ModelsTestSuite) TestUniverse() {
	store := models.NewCandleStore(models.DB)

	universe, err := store.Universe()
	suite.NoError(err)
	suite.Equal([]string{"AAA", "BBB"}, universe)
}

func (suite *ModelsTestSuite) TestDayCandles() {
	store := models.NewCandleStore(models.DB)

	days, err := store.DayCandles([]string{"AAA", "BBB"}, testDay("2021-03-02"), testDay("2021-03-03"))
	suite.NoError(err)
	suite.Len(days["AAA"], 2)
	suite.Len(days["BBB"], 2)
	suite.Equal(100.0, days["AAA"][0].Close)
	suite.Equal(101.0, days["AAA"][1].Close)
	suite.True(days["AAA"][0].Time.Before(days["AAA"][1].Time))

	// a window with no sessions yields no entry at all
	days, err = store.DayCandles([]string{"AAA"}, testDay("2021-04-01"), testDay("2021-04-30"))
	suite.NoError(err)
	suite.Empty(days)
}

func (suite *ModelsTestSuite) TestDayCandlesCached() {
	store := models.NewCandleStore(models.DB)

	days, err := store.DayCandles([]string{"AAA"}, testDay("2021-03-02"), testDay("2021-03-04"))
	suite.NoError(err)
	suite.Len(days["AAA"], 3)

	// the run's view of a code is frozen on first load
	models.AllDeleteCandles()
	days, err = store.DayCandles([]string{"AAA"}, testDay("2021-03-02"), testDay("2021-03-04"))
	suite.NoError(err)
	suite.Len(days["AAA"], 3)

	// a fresh store starts over and sees the truncation
	days, err = models.NewCandleStore(models.DB).DayCandles([]string{"AAA"}, testDay("2021-03-02"), testDay("2021-03-04"))
	suite.NoError(err)
	suite.Empty(days)
}

func (suite *ModelsTestSuite) TestMinuteCandles() {
	store := models.NewCandleStore(models.DB)

	minutes, err := store.MinuteCandles([]string{"AAA", "BBB"}, testDay("2021-03-02"))
	suite.NoError(err)
	suite.Len(minutes, 2)

	// ascending by time although they were stored out of order
	suite.Equal(99.0, minutes[0].Close)
	suite.Equal(100.0, minutes[1].Close)

	minutes, err = store.MinuteCandles([]string{"AAA"}, testDay("2021-03-03"))
	suite.NoError(err)
	suite.Len(minutes, 1)
	suite.Equal(101.0, minutes[0].Close)

	minutes, err = store.MinuteCandles([]string{"BBB"}, testDay("2021-03-02"))
	suite.NoError(err)
	suite.Empty(minutes)
}

func (suite *ModelsTestSuite) TestAllDeleteCandles() {
	models.AllDeleteCandles()

	universe, err := models.NewCandleStore(models.DB).Universe()
	suite.NoError(err)
	suite.Empty(universe)
}
