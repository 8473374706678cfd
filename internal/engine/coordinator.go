package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradescript/internal/exchange"
	"tradescript/internal/market"
	"tradescript/internal/models"
	"tradescript/internal/repository"
	"tradescript/internal/service"
	"tradescript/internal/strategy"
)

type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
	Ticker(ctx context.Context, symbol string) (market.Ticker, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error)
}

type Flags interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

type ModuleConfigs interface {
	EngineConfig(ctx context.Context, userID uint64) service.EngineModuleConfig
}

// Coordinator drives one tuple through the execution state machine: gate,
// parse, fetch, evaluate, then idempotency + budget + trade creation as one
// atomic repository call, and finally order placement.
type Coordinator struct {
	Repo      repository.Repository
	Market    CandleSource
	Exchange  OrderPlacer
	Flags     Flags
	Modules   ModuleConfigs
	Evaluator *strategy.Evaluator
	Logger    *zap.Logger

	LookbackMargin int
	MaxCandles     int

	cacheMu    sync.Mutex
	parseCache map[string]*strategy.ParsedStrategy

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Run executes the full state machine for one tuple. With dryRun set it
// stops after evaluation and writes nothing.
func (c *Coordinator) Run(ctx context.Context, tuple Tuple, dryRun bool) Outcome {
	out := Outcome{Tuple: tuple}

	// Concurrent sweeps over the same tuple serialize here; the unique index
	// in ExecuteTradeDebit is the backstop for writers outside this process.
	if !dryRun {
		unlock := c.lockTuple(fmt.Sprintf("%d:%d:%s", tuple.UserID, tuple.ScriptID, tuple.Timeframe))
		defer unlock()
	}

	gate, err := c.Repo.GetActivation(ctx, tuple.UserID, tuple.ScriptID, tuple.Timeframe)
	if err != nil {
		return c.failed(out, "load activation", err)
	}
	if gate == nil || !gate.Enabled {
		out.Status = StatusSkippedGated
		out.Reason = "bot disabled"
		return out
	}

	script, err := c.Repo.GetScriptByID(ctx, tuple.ScriptID)
	if err != nil {
		return c.failed(out, "load script", err)
	}
	if script == nil {
		return c.failed(out, "load script", fmt.Errorf("script %d not found", tuple.ScriptID))
	}

	parsed, err := c.resolveStrategy(script)
	if err != nil {
		// A syntax error aborts only this tuple; it is surfaced to the
		// author through the API, never retried here.
		return c.failed(out, "parse script", err)
	}

	candles, err := c.fetchCandles(ctx, script, parsed, tuple.Timeframe)
	if err != nil {
		return c.failed(out, "fetch candles", err)
	}

	sig, err := c.Evaluator.Evaluate(parsed, candles)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientHistory) {
			out.Status = StatusSkippedNoSignal
			out.Reason = "insufficient history"
			return out
		}
		return c.failed(out, "evaluate", err)
	}
	out.Signal = &sig

	if sig.Type == strategy.SignalNone {
		out.Status = StatusSkippedNoSignal
		out.Reason = sig.Reason
		return out
	}

	candleTime := candles[len(candles)-1].OpenTime
	if candleTime.Before(gate.GateCutoff()) {
		out.Status = StatusSkippedGated
		out.Reason = "signal candle predates bot start"
		return out
	}

	if dryRun {
		out.Status = StatusDryRun
		return out
	}

	exists, err := c.Repo.TradeExistsForCandle(ctx, tuple.ScriptID, tuple.Timeframe, candleTime)
	if err != nil {
		return c.failed(out, "idempotency check", err)
	}
	if exists {
		out.Status = StatusSkippedDuplicate
		out.Reason = "candle already traded"
		return out
	}

	trade := &models.Trade{
		UserID:     tuple.UserID,
		ScriptID:   tuple.ScriptID,
		Symbol:     script.Symbol,
		Timeframe:  tuple.Timeframe,
		CandleTime: candleTime,
		SignalType: string(sig.Type),
		EntryPrice: decimal.NewFromFloat(sig.Price),
		StopLoss:   decimal.NewFromFloat(sig.StopLoss),
		TakeProfit: decimal.NewFromFloat(sig.TakeProfit),
		Status:     models.TradeStatusPending,
	}

	// Claim, debit and trade creation succeed or fail together. A budget or
	// duplicate outcome leaves no record behind.
	if err := c.Repo.ExecuteTradeDebit(ctx, trade); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCandle):
			out.Status = StatusSkippedDuplicate
			out.Reason = "candle claimed by concurrent sweep"
			return out
		case errors.Is(err, repository.ErrInsufficientBudget):
			out.Status = StatusSkippedNoBudget
			out.Reason = "coin balance exhausted"
			return out
		default:
			return c.failed(out, "trade debit", err)
		}
	}
	out.TradeID = trade.ID

	return c.placeOrder(ctx, out, trade, sig)
}

// placeOrder forwards the qualifying signal to the exchange. The coin is
// already spent: a rejection or timeout marks the trade FAILED but never
// refunds, matching the N-free-trades budget model.
func (c *Coordinator) placeOrder(ctx context.Context, out Outcome, trade *models.Trade, sig strategy.TradeSignal) Outcome {
	live := c.Flags != nil && c.Flags.IsEnabled(ctx, service.FeatureLiveOrders, false)

	var (
		ack *exchange.OrderAck
		err error
	)
	if live {
		ack, err = c.Exchange.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol:     trade.Symbol,
			Side:       string(sig.Type),
			Price:      sig.Price,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
		})
	} else {
		ack = &exchange.OrderAck{OrderID: fmt.Sprintf("paper-%d", trade.ID), Price: sig.Price, Status: "FILLED"}
	}

	if err != nil {
		msg := err.Error()
		var provErr *exchange.ProviderError
		if errors.As(err, &provErr) {
			// Keep the provider message verbatim for later classification.
			msg = provErr.Message
		} else if errors.Is(err, context.DeadlineExceeded) {
			msg = "order placement timed out: " + msg
		}
		if uerr := c.Repo.UpdateTradeStatus(ctx, trade.ID, models.TradeStatusFailed, map[string]any{
			"error_message": msg,
		}); uerr != nil && c.Logger != nil {
			c.Logger.Error("mark trade failed", zap.Uint64("trade_id", trade.ID), zap.Error(uerr))
		}
		if c.Logger != nil {
			c.Logger.Warn("order placement failed",
				zap.Uint64("trade_id", trade.ID),
				zap.String("kind", string(exchange.Classify(msg))),
				zap.String("provider_message", msg))
		}
		out.Status = StatusExecutionFailed
		out.Error = msg
		return out
	}

	if uerr := c.Repo.UpdateTradeStatus(ctx, trade.ID, models.TradeStatusOpen, map[string]any{
		"entry_price": decimal.NewFromFloat(ack.Price),
	}); uerr != nil && c.Logger != nil {
		c.Logger.Error("mark trade open", zap.Uint64("trade_id", trade.ID), zap.Error(uerr))
	}
	if c.Logger != nil {
		c.Logger.Info("trade executed",
			zap.Uint64("trade_id", trade.ID),
			zap.String("symbol", trade.Symbol),
			zap.String("side", string(sig.Type)),
			zap.Float64("price", ack.Price))
	}
	out.Status = StatusExecuted
	return out
}

// EvaluateScript runs gate-free parse + fetch + evaluate for the API. It
// shares the coordinator's parse cache and performs no writes.
func (c *Coordinator) EvaluateScript(ctx context.Context, script *models.Script, timeframe string) (*strategy.ParsedStrategy, strategy.TradeSignal, []market.Candle, error) {
	parsed, err := c.resolveStrategy(script)
	if err != nil {
		return nil, strategy.TradeSignal{}, nil, err
	}
	candles, err := c.fetchCandles(ctx, script, parsed, timeframe)
	if err != nil {
		return parsed, strategy.TradeSignal{}, nil, err
	}
	sig, err := c.Evaluator.Evaluate(parsed, candles)
	if err != nil {
		return parsed, strategy.TradeSignal{}, candles, err
	}
	return parsed, sig, candles, nil
}

// resolveStrategy returns the cached descriptor for the script's current
// content, parsing on miss. Content edits change the hash and miss the cache.
func (c *Coordinator) resolveStrategy(script *models.Script) (*strategy.ParsedStrategy, error) {
	key := fmt.Sprintf("%d:%s", script.ID, strategy.Hash(script.Content))

	c.cacheMu.Lock()
	if cached, ok := c.parseCache[key]; ok {
		c.cacheMu.Unlock()
		return cached, nil
	}
	c.cacheMu.Unlock()

	parsed, err := strategy.Parse(script.Content)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	if c.parseCache == nil {
		c.parseCache = map[string]*strategy.ParsedStrategy{}
	}
	c.parseCache[key] = parsed
	c.cacheMu.Unlock()
	return parsed, nil
}

func (c *Coordinator) fetchCandles(ctx context.Context, script *models.Script, parsed *strategy.ParsedStrategy, timeframe string) ([]market.Candle, error) {
	needed := parsed.MaxPeriod() + 2
	margin := c.LookbackMargin
	if margin <= 0 {
		margin = 50
	}
	limit := needed + margin
	if c.Modules != nil {
		if userLimit := c.Modules.EngineConfig(ctx, script.UserID).CandleLimit; userLimit > limit {
			limit = userLimit
		}
	}
	if c.MaxCandles > 0 && limit > c.MaxCandles {
		limit = c.MaxCandles
	}
	if limit < needed {
		limit = needed
	}
	return c.Market.Candles(ctx, script.Symbol, timeframe, limit)
}

func (c *Coordinator) failed(out Outcome, stage string, err error) Outcome {
	if c.Logger != nil {
		c.Logger.Warn("tuple failed",
			zap.Uint64("user_id", out.Tuple.UserID),
			zap.Uint64("script_id", out.Tuple.ScriptID),
			zap.String("timeframe", out.Tuple.Timeframe),
			zap.String("stage", stage),
			zap.Error(err))
	}
	out.Status = StatusFailed
	out.Error = fmt.Sprintf("%s: %v", stage, err)
	return out
}

func (c *Coordinator) lockTuple(key string) func() {
	c.locksMu.Lock()
	if c.locks == nil {
		c.locks = map[string]*sync.Mutex{}
	}
	mu, ok := c.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[key] = mu
	}
	c.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}
