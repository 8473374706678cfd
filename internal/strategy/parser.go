package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError names the script field that failed validation so the author
// can fix it. It is never retried by the engine.
type SyntaxError struct {
	Field  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("script syntax error: %s: %s", e.Field, e.Reason)
}

func syntaxErr(field, format string, args ...any) *SyntaxError {
	return &SyntaxError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Hash returns the content hash used with the script id as the parse cache
// key.
func Hash(scriptText string) string {
	sum := sha256.Sum256([]byte(scriptText))
	return hex.EncodeToString(sum[:])
}

// Parse turns script source into a ParsedStrategy. It is pure: same text,
// same descriptor. The DSL is line oriented, one "key: value" per line,
// keywords case-insensitive, '#' starts a comment.
//
//	entry: crossover
//	ma: ema
//	fast: 5
//	slow: 20
//	stop_loss: 2
//	take_profit: 4
func Parse(scriptText string) (*ParsedStrategy, error) {
	fields := map[string]string{}
	for lineNo, line := range strings.Split(scriptText, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			key, value, ok = strings.Cut(line, "=")
		}
		if !ok {
			return nil, syntaxErr("script", "line %d: expected key: value, got %q", lineNo+1, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))
		if key == "" || value == "" {
			return nil, syntaxErr("script", "line %d: empty key or value", lineNo+1)
		}
		if _, dup := fields[key]; dup {
			return nil, syntaxErr(key, "declared more than once")
		}
		fields[key] = value
	}

	s := &ParsedStrategy{MAType: MASimple}

	entryRaw, ok := fields["entry"]
	if !ok {
		return nil, syntaxErr("entry", "missing")
	}
	switch entryRaw {
	case "crossover", "ma_crossover":
		s.EntryType = EntryMACrossover
	case "crossunder", "ma_crossunder":
		s.EntryType = EntryMACrossunder
	case "price_above":
		s.EntryType = EntryPriceAbove
	case "price_below":
		s.EntryType = EntryPriceBelow
	case "rsi":
		s.EntryType = EntryRSI
	case "custom":
		s.EntryType = EntryCustom
	default:
		return nil, syntaxErr("entry", "unknown entry type %q", entryRaw)
	}

	if maRaw, ok := fields["ma"]; ok {
		switch maRaw {
		case "sma":
			s.MAType = MASimple
		case "ema":
			s.MAType = MAExponential
		default:
			return nil, syntaxErr("ma", "unknown ma type %q", maRaw)
		}
	}

	var err error
	if s.StopLossPercent, err = parsePercent(fields, "stop_loss"); err != nil {
		return nil, err
	}
	if s.TakeProfitPercent, err = parsePercent(fields, "take_profit"); err != nil {
		return nil, err
	}

	switch s.EntryType {
	case EntryMACrossover, EntryMACrossunder:
		if s.FastPeriod, err = requirePeriod(fields, "fast"); err != nil {
			return nil, err
		}
		if s.SlowPeriod, err = requirePeriod(fields, "slow"); err != nil {
			return nil, err
		}
		if s.SlowPeriod <= s.FastPeriod {
			return nil, syntaxErr("slow", "must be greater than fast (fast=%d slow=%d)", s.FastPeriod, s.SlowPeriod)
		}

	case EntryPriceAbove, EntryPriceBelow:
		raw, ok := fields["threshold"]
		if !ok {
			return nil, syntaxErr("threshold", "missing")
		}
		threshold, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || threshold <= 0 {
			return nil, syntaxErr("threshold", "must be a positive number, got %q", raw)
		}
		// Threshold rides in the fast-period slot, rounded to a whole unit.
		s.FastPeriod = int(threshold)

	case EntryRSI:
		s.RSIPeriod = 14
		if _, ok := fields["rsi_period"]; ok {
			if s.RSIPeriod, err = requirePeriod(fields, "rsi_period"); err != nil {
				return nil, err
			}
		}
		s.RSIOverbought = 70
		s.RSIOversold = 30
		if raw, ok := fields["overbought"]; ok {
			if s.RSIOverbought, err = parseRSIBound("overbought", raw); err != nil {
				return nil, err
			}
		}
		if raw, ok := fields["oversold"]; ok {
			if s.RSIOversold, err = parseRSIBound("oversold", raw); err != nil {
				return nil, err
			}
		}
		if s.RSIOversold >= s.RSIOverbought {
			return nil, syntaxErr("oversold", "must be below overbought (oversold=%g overbought=%g)", s.RSIOversold, s.RSIOverbought)
		}

	case EntryCustom:
		// Shape is validated here; the rule body is evaluated externally.
	}

	return s, nil
}

func requirePeriod(fields map[string]string, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, syntaxErr(key, "missing")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, syntaxErr(key, "must be a positive integer, got %q", raw)
	}
	return n, nil
}

func parsePercent(fields map[string]string, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, nil
	}
	raw = strings.TrimSuffix(raw, "%")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, syntaxErr(key, "must be a number, got %q", raw)
	}
	if f < 0 {
		return 0, syntaxErr(key, "must not be negative, got %g", f)
	}
	return f, nil
}

func parseRSIBound(key, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 || f >= 100 {
		return 0, syntaxErr(key, "must be between 0 and 100 exclusive, got %q", raw)
	}
	return f, nil
}
