package strategy

import (
	"fmt"
	"math"

	"tradescript/internal/market"
)

// CustomRuleFunc evaluates a CUSTOM entry. The engine only validates shape
// and forwards; the rule body lives outside this core.
type CustomRuleFunc func(s *ParsedStrategy, candles []market.Candle) (TradeSignal, error)

// Evaluator turns a parsed strategy plus candle history into a trade signal.
// Evaluate is a pure function of its inputs, which is what makes dry-run
// evaluation free of execution risk.
type Evaluator struct {
	CustomRule CustomRuleFunc
}

func (e *Evaluator) Evaluate(s *ParsedStrategy, candles []market.Candle) (TradeSignal, error) {
	if s == nil {
		return TradeSignal{}, fmt.Errorf("nil strategy")
	}
	if len(candles) < 2 {
		return TradeSignal{}, fmt.Errorf("%w: need at least 2 candles, have %d",
			ErrInsufficientHistory, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	lastClose := closes[len(closes)-1]

	switch s.EntryType {
	case EntryMACrossover, EntryMACrossunder:
		fast, err := MovingAverage(closes, s.FastPeriod, s.MAType)
		if err != nil {
			return TradeSignal{}, err
		}
		slow, err := MovingAverage(closes, s.SlowPeriod, s.MAType)
		if err != nil {
			return TradeSignal{}, err
		}
		n := len(closes)
		prevFast, prevSlow := fast[n-2], slow[n-2]
		lastFast, lastSlow := fast[n-1], slow[n-1]
		if math.IsNaN(prevFast) || math.IsNaN(prevSlow) {
			return TradeSignal{}, fmt.Errorf("%w: slow window not warm", ErrInsufficientHistory)
		}
		if s.EntryType == EntryMACrossover {
			if prevFast <= prevSlow && lastFast > lastSlow {
				return e.fill(s, SignalBuy, lastClose,
					fmt.Sprintf("%s %d/%d crossover: fast %.4f crossed above slow %.4f",
						s.MAType, s.FastPeriod, s.SlowPeriod, lastFast, lastSlow)), nil
			}
			return none("no crossover on latest candle"), nil
		}
		if prevFast >= prevSlow && lastFast < lastSlow {
			return e.fill(s, SignalSell, lastClose,
				fmt.Sprintf("%s %d/%d crossunder: fast %.4f crossed below slow %.4f",
					s.MAType, s.FastPeriod, s.SlowPeriod, lastFast, lastSlow)), nil
		}
		return none("no crossunder on latest candle"), nil

	case EntryPriceAbove:
		threshold := float64(s.FastPeriod)
		prevClose := closes[len(closes)-2]
		if prevClose <= threshold && lastClose > threshold {
			return e.fill(s, SignalBuy, lastClose,
				fmt.Sprintf("price crossed above %.2f", threshold)), nil
		}
		return none(fmt.Sprintf("price did not cross above %.2f", threshold)), nil

	case EntryPriceBelow:
		threshold := float64(s.FastPeriod)
		prevClose := closes[len(closes)-2]
		if prevClose >= threshold && lastClose < threshold {
			return e.fill(s, SignalSell, lastClose,
				fmt.Sprintf("price crossed below %.2f", threshold)), nil
		}
		return none(fmt.Sprintf("price did not cross below %.2f", threshold)), nil

	case EntryRSI:
		series, err := RSI(closes, s.RSIPeriod)
		if err != nil {
			return TradeSignal{}, err
		}
		n := len(series)
		prev, last := series[n-2], series[n-1]
		if math.IsNaN(prev) {
			return TradeSignal{}, fmt.Errorf("%w: rsi window not warm", ErrInsufficientHistory)
		}
		if prev <= s.RSIOversold && last > s.RSIOversold {
			return e.fill(s, SignalBuy, lastClose,
				fmt.Sprintf("rsi %.2f crossed up through oversold %.2f", last, s.RSIOversold)), nil
		}
		if prev >= s.RSIOverbought && last < s.RSIOverbought {
			return e.fill(s, SignalSell, lastClose,
				fmt.Sprintf("rsi %.2f crossed down through overbought %.2f", last, s.RSIOverbought)), nil
		}
		return none(fmt.Sprintf("rsi %.2f inside bands", last)), nil

	case EntryCustom:
		if e.CustomRule == nil {
			return none("custom rule evaluator not configured"), nil
		}
		return e.CustomRule(s, candles)
	}

	return TradeSignal{}, fmt.Errorf("unknown entry type %q", s.EntryType)
}

// fill prices the signal: stop loss and take profit hang off the entry price
// by the configured percentages, mirrored for sells.
func (e *Evaluator) fill(s *ParsedStrategy, typ SignalType, price float64, reason string) TradeSignal {
	sig := TradeSignal{Type: typ, Price: price, Reason: reason}
	sl := s.StopLossPercent / 100
	tp := s.TakeProfitPercent / 100
	if typ == SignalBuy {
		sig.StopLoss = price * (1 - sl)
		sig.TakeProfit = price * (1 + tp)
	} else {
		sig.StopLoss = price * (1 + sl)
		sig.TakeProfit = price * (1 - tp)
	}
	return sig
}
