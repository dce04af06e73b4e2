package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oarkflow/stocksim/app/models"
	"github.com/oarkflow/stocksim/backtest"
	"github.com/oarkflow/stocksim/config"
)

// JSONError is json error massage
type JSONError struct {
	Error string `json:"error"`
}

func errorAPI(w http.ResponseWriter, message string, code int) {
	jsonMessage, err := json.Marshal(JSONError{Error: message})
	if err != nil {
		logrus.Warnf("error message create error: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	w.Write(jsonMessage)
}

// BacktestRequest receives run parameters at json; zero fields fall back
// to the config defaults.
type BacktestRequest struct {
	Strategy string `json:"strategy"`
	Begin    string `json:"begin"`
	End      string `json:"end"`

	InitialCash    float64 `json:"initial_cash"`
	Allocation     float64 `json:"allocation"`
	ProfitTakePct  float64 `json:"profit_take_pct"`
	StopLossPct    float64 `json:"stop_loss_pct"`
	LiquidateOnEnd bool    `json:"liquidate_on_end"`
}

func (r *BacktestRequest) params() (backtest.Params, error) {
	defaults := config.Config.Backtest
	params := backtest.Params{
		Begin:            defaults.Begin,
		End:              defaults.End,
		InitialCash:      defaults.InitialCash,
		Allocation:       defaults.Allocation,
		ProfitTakePct:    defaults.ProfitTakePct,
		StopLossPct:      defaults.StopLossPct,
		TrailingStopPct:  defaults.TrailingStopPct,
		MinProfitPct:     defaults.MinProfitPct,
		PartialProfitPct: defaults.PartialProfitPct,
		MaxHoldingDays:   defaults.MaxHoldingDays,
		FeePct:           defaults.FeePct,
		TaxPct:           defaults.TaxPct,
		LiquidateOnEnd:   defaults.LiquidateOnEnd || r.LiquidateOnEnd,
	}

	if r.Begin != "" {
		begin, err := time.Parse("2006-01-02", r.Begin)
		if err != nil {
			return params, err
		}
		params.Begin = begin
	}
	if r.End != "" {
		end, err := time.Parse("2006-01-02", r.End)
		if err != nil {
			return params, err
		}
		params.End = end
	}

	if r.InitialCash > 0 {
		params.InitialCash = r.InitialCash
	}
	if r.Allocation > 0 {
		params.Allocation = r.Allocation
	}
	if r.ProfitTakePct > 0 {
		params.ProfitTakePct = r.ProfitTakePct
	}
	if r.StopLossPct > 0 {
		params.StopLossPct = r.StopLossPct
	}

	return params, nil
}

func (r *BacktestRequest) strategy(params backtest.Params) (backtest.Strategy, error) {
	switch r.Strategy {
	case "", "breakout":
		return backtest.NewBreakout(params), nil
	case "band":
		return backtest.NewBand(params), nil
	}
	return nil, fmt.Errorf("unknown strategy: %v", r.Strategy)
}

// BacktestAPIHandler executes a backtest over the stored candles and
// returns the persisted run frame, when path is "/backtest"
func BacktestAPIHandler(w http.ResponseWriter, req *http.Request) {
	logrus.Info("backtest request")
	dec := json.NewDecoder(req.Body)

	var request BacktestRequest
	if err := dec.Decode(&request); err != nil {
		logrus.Warnf("backtest params error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest params error: %v", err), http.StatusBadRequest)
		return
	}

	params, err := request.params()
	if err != nil {
		logrus.Warnf("backtest params error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest params error: %v", err), http.StatusBadRequest)
		return
	}

	strategy, err := request.strategy(params)
	if err != nil {
		errorAPI(w, err.Error(), http.StatusBadRequest)
		return
	}

	engine := backtest.NewEngine(models.NewCandleStore(models.DB), strategy, params)
	result, err := engine.Run()
	if err != nil {
		logrus.Warnf("backtest error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest error: %v", err), http.StatusInternalServerError)
		return
	}

	run, err := models.SaveResult(result)
	if err != nil {
		logrus.Warnf("backtest save error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest save error: %v", err), http.StatusInternalServerError)
		return
	}

	writeFrame(w, models.GetRunFrame(run.ID))
}

// ResultAPIHandler returns a stored run frame by id, or the latest run,
// when path is "/results"
func ResultAPIHandler(w http.ResponseWriter, req *http.Request) {
	logrus.Infof("result request: url -> %s", req.URL)

	rawID := req.URL.Query().Get("id")
	if rawID == "" {
		writeFrame(w, models.LatestRunFrame())
		return
	}

	id, err := strconv.Atoi(rawID)
	if err != nil {
		errorAPI(w, "bad parameter(id)", http.StatusBadRequest)
		return
	}
	writeFrame(w, models.GetRunFrame(id))
}

func writeFrame(w http.ResponseWriter, frame *models.RunFrame) {
	js, err := json.Marshal(frame)
	if err != nil {
		logrus.Warnf("run frame json error: %v", err)
		errorAPI(w, "run frame json error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

// Run starts webserver
func Run() {
	logrus.Info("server start")
	http.HandleFunc("/backtest", BacktestAPIHandler)
	http.HandleFunc("/results", ResultAPIHandler)
	logrus.Fatalln(http.ListenAndServe(fmt.Sprintf(":%d", config.Config.Port), nil))
}
