package strategy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientHistory means the candle window is shorter than the
// indicator needs. The coordinator treats it as "no signal yet" and the next
// sweep retries with fresher history.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// MovingAverage returns a series aligned to closes. Slots before the first
// computable value are NaN.
//
// SMA is the trailing mean of the last period closes. EMA uses
// alpha = 2/(period+1) and is seeded with the SMA of the first period closes.
func MovingAverage(closes []float64, period int, maType MAType) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("moving average period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("%w: need %d closes for period %d, have %d",
			ErrInsufficientHistory, period+1, period, len(closes))
	}

	out := make([]float64, len(closes))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	seed := sum / float64(period)
	out[period-1] = seed

	switch maType {
	case MAExponential:
		alpha := 2.0 / (float64(period) + 1)
		ema := seed
		for i := period; i < len(closes); i++ {
			ema = alpha*closes[i] + (1-alpha)*ema
			out[i] = ema
		}
	default: // SMA
		for i := period; i < len(closes); i++ {
			sum += closes[i] - closes[i-period]
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// RSI returns the Wilder-smoothed relative strength index series aligned to
// closes. The first defined value sits at index period; earlier slots are
// NaN. When the average loss is zero the RSI is 100 by definition.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("%w: need %d closes for rsi period %d, have %d",
			ErrInsufficientHistory, period+1, period, len(closes))
	}

	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
