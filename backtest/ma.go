package backtest

// MaCalculator computes trailing simple moving averages over one
// instrument's closing prices with offset addressing. A calculator is
// built per code per simulated day from the run's candle cache, so no
// state leaks across runs.
//
// Not enough history is an ordinary outcome, not an error: every query
// returns an ok flag and callers skip the instrument when it is false.
type MaCalculator struct {
	closes []float64
}

// NewMaCalculator returns a calculator over ascending closing prices
func NewMaCalculator(closes []float64) *MaCalculator {
	return &MaCalculator{closes: closes}
}

// Average returns the arithmetic mean of the window of the given length
// ending offset bars from the end of the series. offset must be <= 0:
// 0 anchors the window at the most recent bar, -1 at the bar before it
// ("as of yesterday"), and so on.
//
// Ex) yesterday-anchored 5MA: Average(5, -1)
func (ma *MaCalculator) Average(length, offset int) (float64, bool) {
	return mean(ma.closes, length, offset)
}

// AverageWith appends a hypothetical current price to the series and
// returns the mean of the most recent window of the given length,
// "as of right now, including today's still-forming price".
func (ma *MaCalculator) AverageWith(length int, cur float64) (float64, bool) {
	end := len(ma.closes)
	if length <= 0 || length > end+1 {
		return 0, false
	}

	sum := cur
	for _, v := range ma.closes[end-length+1:] {
		sum += v
	}
	return sum / float64(length), true
}

func mean(values []float64, length, offset int) (float64, bool) {
	end := len(values) + offset
	start := end - length
	if length <= 0 || offset > 0 || start < 0 {
		return 0, false
	}

	sum := 0.0
	for _, v := range values[start:end] {
		sum += v
	}
	return sum / float64(length), true
}
