package models

import (
	"time"

	"github.com/oarkflow/errors"

	"github.com/oarkflow/stocksim/backtest"
)

// BacktestRun is one persisted engine run with its event log and
// snapshots attached.
type BacktestRun struct {
	ID         int    `gorm:"primary_key" json:"id"`
	Strategy   string `json:"strategy"`
	Begin      int64  `json:"begin"`
	End        int64  `json:"end"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`

	InitialCash float64 `json:"initial_cash"`
	FinalCash   float64 `json:"final_cash"`
	FinalValue  float64 `json:"final_value"`
	Liquidated  bool    `json:"liquidated"`

	UnpricedHoldings int `json:"unpriced_holdings,omitempty"`

	Events    []TradeEventRecord    `gorm:"foreignKey:RunID" json:"-"`
	Snapshots []DailySnapshotRecord `gorm:"foreignKey:RunID" json:"-"`
}

// TradeEventRecord is one executed order of a run
type TradeEventRecord struct {
	ID         int     `gorm:"primary_key" json:"-"`
	RunID      int     `gorm:"index" json:"-"`
	EventID    string  `json:"event_id"`
	When       int64   `json:"when"`
	Code       string  `json:"code"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Reason     string  `json:"reason"`
	BuyID      string  `json:"buy_id,omitempty"`
	RevenuePct float64 `json:"revenue_pct,omitempty"`
}

// DailySnapshotRecord is one end-of-day valuation of a run
type DailySnapshotRecord struct {
	ID           int     `gorm:"primary_key" json:"-"`
	RunID        int     `gorm:"index" json:"-"`
	Date         int64   `json:"date"`
	Cash         float64 `json:"cash"`
	HoldingValue float64 `json:"holding_value"`
	HoldingCount int     `json:"holding_count"`
	Note         string  `json:"note"`
}

// SaveResult persists an engine result and returns the stored run
func SaveResult(result *backtest.Result) (*BacktestRun, error) {
	run := BacktestRun{
		Strategy:    result.Strategy,
		Begin:       result.Params.Begin.UnixMilli(),
		End:         result.Params.End.UnixMilli(),
		StartedAt:   result.StartedAt.UnixMilli(),
		FinishedAt:  result.FinishedAt.UnixMilli(),
		InitialCash: result.InitialCash,
		FinalCash:   result.FinalCash,
		FinalValue:  result.FinalValue,
		Liquidated:  result.Params.LiquidateOnEnd,

		UnpricedHoldings: result.UnpricedHoldings,
	}

	for _, event := range result.Events {
		run.Events = append(run.Events, TradeEventRecord{
			EventID:    event.ID,
			When:       event.When.UnixMilli(),
			Code:       event.Code,
			Side:       event.Side,
			Price:      event.Price,
			Quantity:   event.Quantity,
			Reason:     event.Reason,
			BuyID:      event.BuyID,
			RevenuePct: event.RevenuePct,
		})
	}

	for _, snapshot := range result.Snapshots {
		run.Snapshots = append(run.Snapshots, DailySnapshotRecord{
			Date:         snapshot.Date.UnixMilli(),
			Cash:         snapshot.Cash,
			HoldingValue: snapshot.HoldingValue,
			HoldingCount: snapshot.HoldingCount,
			Note:         snapshot.Note,
		})
	}

	if err := DB.Create(&run).Error; err != nil {
		return nil, errors.NewE(err, "unable to save backtest result", "")
	}
	return &run, nil
}

// RunFrame is the JSON frame of one run served by the web layer
type RunFrame struct {
	Run       *BacktestRun          `json:"run,omitempty"`
	Summary   *backtest.Summary     `json:"summary,omitempty"`
	Events    []TradeEventRecord    `json:"events,omitempty"`
	Snapshots []DailySnapshotRecord `json:"snapshots,omitempty"`
}

// GetRunFrame returns the frame for a run ID, or an empty frame when
// the run does not exist.
func GetRunFrame(id int) *RunFrame {
	var run BacktestRun
	if err := DB.First(&run, id).Error; err != nil {
		// Not Found
		return &RunFrame{}
	}
	return frameOf(&run)
}

// LatestRunFrame returns the frame of the most recent run
func LatestRunFrame() *RunFrame {
	var run BacktestRun
	if err := DB.Last(&run).Error; err != nil {
		return &RunFrame{}
	}
	return frameOf(&run)
}

func frameOf(run *BacktestRun) *RunFrame {
	frame := RunFrame{Run: run}
	DB.Where("run_id = ?", run.ID).Order("id asc").Find(&frame.Events)
	DB.Where("run_id = ?", run.ID).Order("date asc").Find(&frame.Snapshots)

	summary := summaryOf(run, frame.Events, frame.Snapshots)
	frame.Summary = &summary
	return &frame
}

func summaryOf(run *BacktestRun, events []TradeEventRecord, snapshots []DailySnapshotRecord) backtest.Summary {
	result := backtest.Result{
		Strategy: run.Strategy,
		Params: backtest.Params{
			Begin: time.UnixMilli(run.Begin),
			End:   time.UnixMilli(run.End),
		},
		InitialCash: run.InitialCash,
		FinalCash:   run.FinalCash,
		FinalValue:  run.FinalValue,
		StartedAt:   time.UnixMilli(run.StartedAt),
		FinishedAt:  time.UnixMilli(run.FinishedAt),
	}

	for _, event := range events {
		result.Events = append(result.Events, backtest.TradeEvent{
			ID:         event.EventID,
			When:       time.UnixMilli(event.When),
			Code:       event.Code,
			Side:       event.Side,
			Price:      event.Price,
			Quantity:   event.Quantity,
			Reason:     event.Reason,
			BuyID:      event.BuyID,
			RevenuePct: event.RevenuePct,
		})
	}
	for _, snapshot := range snapshots {
		result.Snapshots = append(result.Snapshots, backtest.DailySnapshot{
			Date:         time.UnixMilli(snapshot.Date),
			Cash:         snapshot.Cash,
			HoldingValue: snapshot.HoldingValue,
			HoldingCount: snapshot.HoldingCount,
			Note:         snapshot.Note,
		})
	}

	return backtest.Summarize(&result)
}

// DeleteRun deletes a run with its events and snapshots
func DeleteRun(id int) {
	DB.Delete(&TradeEventRecord{}, "run_id = ?", id)
	DB.Delete(&DailySnapshotRecord{}, "run_id = ?", id)
	DB.Delete(&BacktestRun{}, id)
}
