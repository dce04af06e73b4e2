package config

import (
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Config represents config info
var Config ConfList

// ConfList has contents of config.ini
type ConfList struct {
	DBname string
	Port   int
	IP     string

	Backtest BacktestConf
}

// BacktestConf is the default run parameterization; the web API can
// override single values per request.
type BacktestConf struct {
	Begin time.Time
	End   time.Time

	InitialCash float64
	Allocation  float64

	ProfitTakePct    float64
	StopLossPct      float64
	TrailingStopPct  float64
	MinProfitPct     float64
	PartialProfitPct float64
	MaxHoldingDays   int

	FeePct float64
	TaxPct float64

	LiquidateOnEnd bool
}

// InitConfig initializes config settings
func InitConfig() {
	conf, err := ini.Load("config.ini")
	if err != nil {
		logrus.Warnf("init file open error: %v", err)
	}

	backtest := conf.Section("backtest")
	begin, err := dateparse.ParseAny(backtest.Key("begin").String())
	if err != nil {
		logrus.Warnf("begin date parse error: %v", err)
	}
	end, err := dateparse.ParseAny(backtest.Key("end").String())
	if err != nil {
		logrus.Warnf("end date parse error: %v", err)
	}

	Config = ConfList{
		DBname: conf.Section("db").Key("name").String(),
		Port:   conf.Section("web").Key("port").MustInt(),
		IP:     conf.Section("web").Key("ip").String(),
		Backtest: BacktestConf{
			Begin:            begin,
			End:              end,
			InitialCash:      backtest.Key("initial_cash").MustFloat64(100_000_000),
			Allocation:       backtest.Key("allocation").MustFloat64(1_000_000),
			ProfitTakePct:    backtest.Key("profit_take_pct").MustFloat64(7),
			StopLossPct:      backtest.Key("stop_loss_pct").MustFloat64(5),
			TrailingStopPct:  backtest.Key("trailing_stop_pct").MustFloat64(3),
			MinProfitPct:     backtest.Key("min_profit_pct").MustFloat64(5),
			PartialProfitPct: backtest.Key("partial_profit_pct").MustFloat64(10),
			MaxHoldingDays:   backtest.Key("max_holding_days").MustInt(20),
			FeePct:           backtest.Key("fee_pct").MustFloat64(0.015),
			TaxPct:           backtest.Key("tax_pct").MustFloat64(0.25),
			LiquidateOnEnd:   backtest.Key("liquidate_on_end").MustBool(false),
		},
	}
}
