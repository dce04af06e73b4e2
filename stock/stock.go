package stock

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/araddon/dateparse"
	"github.com/markcheno/go-quote"
	"github.com/oarkflow/convert"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/log"

	"github.com/oarkflow/stocksim/app/models"
	"github.com/oarkflow/stocksim/utils"
)

const timeFormat = "2006-01-02"

// csv columns: code, datetime, open, high, low, close, volume
const columnCount = 7

// DownloadDayCandles dawnloads daily candles for symbol(GOOGL, FB...etc)
// during today ~ before dayPeriod and stores them as day candles.
// dayPeriod must be day(1day, 30days...etc).
func DownloadDayCandles(symbol string, dayPeriod int) error {
	endDay := time.Now()
	startDay := endDay.AddDate(0, 0, -dayPeriod)

	q, err := quote.NewQuoteFromYahoo(
		symbol, startDay.Format(timeFormat), endDay.Format(timeFormat), quote.Daily, true)
	if err != nil {
		return errors.NewE(err, "unable to download quotes", "")
	}
	if len(q.Date) == 0 {
		return errors.New("no quotes for " + symbol)
	}

	return models.NewDayCandlesFromQuote(symbol, &q).Create()
}

// LoadDayCSV loads a day candle archive (plain or gzip csv) into the
// database and returns the row count.
func LoadDayCSV(path string) (int, error) {
	rows, err := readCandleCSV(path)
	if err != nil {
		return 0, err
	}

	candles := make(models.DayCandles, len(rows))
	for i := range rows {
		candles[i] = models.DayCandle(rows[i])
	}
	if len(candles) == 0 {
		return 0, nil
	}
	if err := candles.Create(); err != nil {
		return 0, err
	}

	log.Info().Str("path", path).Int("rows", len(candles)).Msg("day candles loaded")
	return len(candles), nil
}

// LoadMinuteCSV loads a minute candle archive (plain or gzip csv) into
// the database and returns the row count.
func LoadMinuteCSV(path string) (int, error) {
	rows, err := readCandleCSV(path)
	if err != nil {
		return 0, err
	}

	candles := make(models.MinuteCandles, len(rows))
	for i := range rows {
		candles[i] = models.MinuteCandle(rows[i])
	}
	if len(candles) == 0 {
		return 0, nil
	}
	if err := candles.Create(); err != nil {
		return 0, err
	}

	log.Info().Str("path", path).Int("rows", len(candles)).Msg("minute candles loaded")
	return len(candles), nil
}

// candleRow matches both candle tables field for field
type candleRow struct {
	ID     int
	Code   string
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

func readCandleCSV(path string) ([]candleRow, error) {
	file, err := utils.OpenMaybeGzip(path)
	if err != nil {
		return nil, errors.NewE(err, "unable to open "+path, "")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = columnCount

	var rows []candleRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewE(err, "unable to read "+path, "")
		}
		line++

		// header line
		if line == 1 && record[0] == "code" {
			continue
		}

		row, err := parseRow(record)
		if err != nil {
			log.Warn().Str("path", path).Int("line", line).Err(err).Msg("row skipped")
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRow(record []string) (candleRow, error) {
	when, err := dateparse.ParseAny(record[1])
	if err != nil {
		return candleRow{}, errors.NewE(err, "bad datetime", "")
	}

	row := candleRow{Code: record[0], Time: when.UnixMilli()}
	fields := []struct {
		value string
		dst   *float64
	}{
		{record[2], &row.Open},
		{record[3], &row.High},
		{record[4], &row.Low},
		{record[5], &row.Close},
		{record[6], &row.Volume},
	}

	for _, field := range fields {
		value, ok := convert.ToFloat64(field.value)
		if !ok {
			return candleRow{}, errors.New("bad number: " + field.value)
		}
		*field.dst = value
	}

	return row, nil
}
