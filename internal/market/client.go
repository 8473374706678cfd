package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrMarketDataUnavailable means every configured host failed. Callers retry
// on the next sweep tick rather than inside the gateway.
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// Client fetches candles and tickers over REST. Hosts are equivalent mirrors
// tried in fixed priority order; the first fully parsed response wins. There
// are no per-host retries beyond the fallback chain.
type Client struct {
	Hosts  []string
	HTTP   *http.Client
	Logger *zap.Logger
}

func NewClient(hosts []string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		Hosts:  hosts,
		HTTP:   &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var body []byte
	if err := c.getFirstHost(ctx, "/api/v3/klines?"+q.Encode(), &body); err != nil {
		return nil, err
	}
	return parseKlines(body)
}

func (c *Client) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))

	var body []byte
	if err := c.getFirstHost(ctx, "/api/v3/ticker/bookTicker?"+q.Encode(), &body); err != nil {
		return Ticker{}, err
	}
	var parsed struct {
		Symbol string `json:"symbol"`
		Bid    string `json:"bidPrice"`
		Ask    string `json:"askPrice"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}
	bid, err := strconv.ParseFloat(parsed.Bid, 64)
	if err != nil {
		return Ticker{}, fmt.Errorf("invalid bid %q", parsed.Bid)
	}
	ask, err := strconv.ParseFloat(parsed.Ask, 64)
	if err != nil {
		return Ticker{}, fmt.Errorf("invalid ask %q", parsed.Ask)
	}
	return Ticker{
		Symbol: parsed.Symbol,
		Last:   (bid + ask) / 2,
		Bid:    bid,
		Ask:    ask,
	}, nil
}

// getFirstHost walks the host list in order and fills body from the first
// host that answers 2xx. A parse failure downstream is not retried: a host
// that answers garbage is treated the same as a host that answers correctly.
func (c *Client) getFirstHost(ctx context.Context, pathAndQuery string, body *[]byte) error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("%w: no hosts configured", ErrMarketDataUnavailable)
	}
	var lastErr error
	for _, host := range c.Hosts {
		b, err := c.getOne(ctx, strings.TrimRight(host, "/")+pathAndQuery)
		if err != nil {
			lastErr = err
			if c.Logger != nil {
				c.Logger.Debug("market host failed, trying next",
					zap.String("host", host), zap.Error(err))
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		*body = b
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMarketDataUnavailable, lastErr)
}

func (c *Client) getOne(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// parseKlines normalizes the exchange kline wire format: an array of arrays
// where index 0 is the open time in ms and indexes 1-5 are OHLCV as strings.
func parseKlines(body []byte) ([]Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	out := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: want >=6 fields, got %d", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline row %d: open time: %w", i, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			f, err := parseNumericField(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			vals[j-1] = f
		}
		c := Candle{
			OpenTime: time.UnixMilli(openMs).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		}
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			return nil, fmt.Errorf("kline row %d: high/low do not bound open/close", i)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseNumericField accepts both quoted ("123.4") and bare numeric JSON.
func parseNumericField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
