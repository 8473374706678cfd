package strategy

// EntryType names the rule a script arms. CUSTOM is shape-checked here but
// evaluated by an external rule engine.
type EntryType string

const (
	EntryMACrossover  EntryType = "MA_CROSSOVER"
	EntryMACrossunder EntryType = "MA_CROSSUNDER"
	EntryPriceAbove   EntryType = "PRICE_ABOVE"
	EntryPriceBelow   EntryType = "PRICE_BELOW"
	EntryRSI          EntryType = "RSI"
	EntryCustom       EntryType = "CUSTOM"
)

type MAType string

const (
	MASimple      MAType = "SMA"
	MAExponential MAType = "EMA"
)

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalNone SignalType = "NONE"
)

// ParsedStrategy is the immutable descriptor produced by Parse. It is cheap
// to recompute from source text and is cached by (script id, content hash).
//
// For PRICE_ABOVE / PRICE_BELOW the price threshold is carried in the
// fast-period slot; it never enters the indicator engine.
type ParsedStrategy struct {
	EntryType EntryType `json:"entry_type"`
	MAType    MAType    `json:"ma_type"`

	FastPeriod int `json:"fast_period"`
	SlowPeriod int `json:"slow_period"`

	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`

	RSIPeriod     int     `json:"rsi_period,omitempty"`
	RSIOverbought float64 `json:"rsi_overbought,omitempty"`
	RSIOversold   float64 `json:"rsi_oversold,omitempty"`
}

// MaxPeriod is the longest indicator window the strategy needs; callers size
// their candle fetch from it.
func (s *ParsedStrategy) MaxPeriod() int {
	max := 1
	switch s.EntryType {
	case EntryMACrossover, EntryMACrossunder:
		if s.SlowPeriod > max {
			max = s.SlowPeriod
		}
	case EntryRSI:
		if s.RSIPeriod > max {
			max = s.RSIPeriod
		}
	}
	return max
}

// TradeSignal is the evaluator's verdict. Price, StopLoss and TakeProfit are
// meaningful only when Type is BUY or SELL.
type TradeSignal struct {
	Type       SignalType `json:"type"`
	Price      float64    `json:"price"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Reason     string     `json:"reason"`
}

func none(reason string) TradeSignal {
	return TradeSignal{Type: SignalNone, Reason: reason}
}
