package models_test

import (
	"time"

	"github.com/oarkflow/stocksim/app/models"
	"github.com/oarkflow/stocksim/backtest"
)

func testResult() *backtest.Result {
	startedAt := time.Date(2021, 7, 1, 9, 0, 0, 0, time.UTC)
	when := time.Date(2021, 3, 2, 10, 0, 0, 0, time.UTC)

	return &backtest.Result{
		Strategy: "band",
		Params: backtest.Params{
			Begin:       testDay("2021-03-02"),
			End:         testDay("2021-03-04"),
			InitialCash: 1_000_000,
		},
		Events: []backtest.TradeEvent{
			{ID: "b1", When: when, Code: "AAA", Side: backtest.BUY, Price: 100, Quantity: 10, Reason: "entry"},
			{ID: "s1", When: when.Add(time.Hour), Code: "AAA", Side: backtest.SELL, Price: 110, Quantity: 10,
				Reason: "take profit ceiling", BuyID: "b1", RevenuePct: 10},
		},
		Snapshots: []backtest.DailySnapshot{
			{Date: testDay("2021-03-02"), Cash: 1_000_100, Note: "absents: 0, skipped buys: 0"},
		},
		InitialCash: 1_000_000,
		FinalCash:   1_000_100,
		FinalValue:  1_000_100,
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(time.Minute),
	}
}

func (suite *ModelsTestSuite) TestSaveResultAndGetRunFrame() {
	run, err := models.SaveResult(testResult())
	suite.NoError(err)
	suite.NotZero(run.ID)
	defer models.DeleteRun(run.ID)

	frame := models.GetRunFrame(run.ID)
	suite.Equal(run.ID, frame.Run.ID)
	suite.Equal("band", frame.Run.Strategy)
	suite.Len(frame.Events, 2)
	suite.Len(frame.Snapshots, 1)

	suite.Equal("b1", frame.Events[0].EventID)
	suite.Equal("b1", frame.Events[1].BuyID)
	suite.Equal("absents: 0, skipped buys: 0", frame.Snapshots[0].Note)

	// the summary is rebuilt from the stored rows
	suite.Equal(1, frame.Summary.BuyCount)
	suite.Equal(1, frame.Summary.WinCount)
	suite.Equal(100.0, frame.Summary.RealizedProfit)
	suite.InDelta(0.01, frame.Summary.ReturnRate, 1e-9)
	suite.Equal(60.0, frame.Summary.RunningSeconds)
}

func (suite *ModelsTestSuite) TestLatestRunFrame() {
	first, err := models.SaveResult(testResult())
	suite.NoError(err)
	defer models.DeleteRun(first.ID)

	second, err := models.SaveResult(testResult())
	suite.NoError(err)
	defer models.DeleteRun(second.ID)

	frame := models.LatestRunFrame()
	suite.Equal(second.ID, frame.Run.ID)
}

func (suite *ModelsTestSuite) TestRunFrameNotFound() {
	frame := models.GetRunFrame(424242)
	suite.Nil(frame.Run)
	suite.Empty(frame.Events)
}

func (suite *ModelsTestSuite) TestDeleteRun() {
	run, err := models.SaveResult(testResult())
	suite.NoError(err)

	models.DeleteRun(run.ID)

	frame := models.GetRunFrame(run.ID)
	suite.Nil(frame.Run)

	var count int64
	models.DB.Model(&models.TradeEventRecord{}).Where("run_id = ?", run.ID).Count(&count)
	suite.Zero(count)
}
