package strategy

import (
	"errors"
	"testing"
)

func TestParse_Crossover(t *testing.T) {
	script := `
# golden cross
entry: crossover
ma: ema
fast: 5
slow: 20
stop_loss: 2%
take_profit: 4
`
	s, err := Parse(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.EntryType != EntryMACrossover {
		t.Fatalf("entry=%s want=%s", s.EntryType, EntryMACrossover)
	}
	if s.MAType != MAExponential {
		t.Fatalf("ma=%s want=%s", s.MAType, MAExponential)
	}
	if s.FastPeriod != 5 || s.SlowPeriod != 20 {
		t.Fatalf("periods=%d/%d want=5/20", s.FastPeriod, s.SlowPeriod)
	}
	if s.StopLossPercent != 2 || s.TakeProfitPercent != 4 {
		t.Fatalf("sl/tp=%g/%g want=2/4", s.StopLossPercent, s.TakeProfitPercent)
	}
}

func TestParse_DefaultsToSMA(t *testing.T) {
	s, err := Parse("entry: crossunder\nfast: 3\nslow: 7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.MAType != MASimple {
		t.Fatalf("ma=%s want=%s", s.MAType, MASimple)
	}
	if s.EntryType != EntryMACrossunder {
		t.Fatalf("entry=%s want=%s", s.EntryType, EntryMACrossunder)
	}
}

func TestParse_PriceThresholdInFastSlot(t *testing.T) {
	s, err := Parse("entry: price_above\nthreshold: 42000.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.EntryType != EntryPriceAbove {
		t.Fatalf("entry=%s want=%s", s.EntryType, EntryPriceAbove)
	}
	if s.FastPeriod != 42000 {
		t.Fatalf("threshold slot=%d want=42000", s.FastPeriod)
	}
}

func TestParse_RSIDefaults(t *testing.T) {
	s, err := Parse("entry: rsi")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.RSIPeriod != 14 || s.RSIOverbought != 70 || s.RSIOversold != 30 {
		t.Fatalf("rsi=%d/%g/%g want=14/70/30", s.RSIPeriod, s.RSIOverbought, s.RSIOversold)
	}
}

func TestParse_EqualsSeparatorAndCaseInsensitive(t *testing.T) {
	s, err := Parse("ENTRY = RSI\nrsi_period = 7\noverbought = 80\noversold = 20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.RSIPeriod != 7 || s.RSIOverbought != 80 || s.RSIOversold != 20 {
		t.Fatalf("rsi=%d/%g/%g want=7/80/20", s.RSIPeriod, s.RSIOverbought, s.RSIOversold)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name   string
		script string
		field  string
	}{
		{"missing entry", "fast: 5\nslow: 20", "entry"},
		{"unknown entry", "entry: banana", "entry"},
		{"unknown ma", "entry: crossover\nma: wma\nfast: 5\nslow: 20", "ma"},
		{"missing fast", "entry: crossover\nslow: 20", "fast"},
		{"slow not above fast", "entry: crossover\nfast: 20\nslow: 20", "slow"},
		{"negative fast", "entry: crossover\nfast: -5\nslow: 20", "fast"},
		{"missing threshold", "entry: price_above", "threshold"},
		{"negative threshold", "entry: price_below\nthreshold: -1", "threshold"},
		{"bad rsi bound", "entry: rsi\noverbought: 120", "overbought"},
		{"inverted rsi bands", "entry: rsi\noversold: 70\noverbought: 30", "oversold"},
		{"negative stop loss", "entry: rsi\nstop_loss: -2", "stop_loss"},
		{"duplicate key", "entry: rsi\nentry: rsi", "entry"},
		{"garbage line", "entry: rsi\nnot a pair", "script"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.script)
			if err == nil {
				t.Fatalf("expected error")
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("want SyntaxError, got %T: %v", err, err)
			}
			if synErr.Field != tc.field {
				t.Fatalf("field=%s want=%s (%v)", synErr.Field, tc.field, err)
			}
		})
	}
}

func TestHash_TracksContent(t *testing.T) {
	a := Hash("entry: rsi")
	b := Hash("entry: rsi")
	c := Hash("entry: rsi\noversold: 25")
	if a != b {
		t.Fatalf("same content must hash equal")
	}
	if a == c {
		t.Fatalf("different content must hash different")
	}
}
