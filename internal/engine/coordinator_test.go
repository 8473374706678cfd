package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"tradescript/internal/exchange"
	"tradescript/internal/market"
	"tradescript/internal/models"
	"tradescript/internal/repository"
	"tradescript/internal/strategy"
)

// stubRepo is an in-memory Repository. ExecuteTradeDebit holds the same
// all-or-nothing contract as the real store.
type stubRepo struct {
	mu          sync.Mutex
	users       map[uint64]*models.User
	scripts     map[uint64]*models.Script
	activations map[string]*models.ScriptActivation
	trades      map[uint64]*models.Trade
	ledger      []models.CoinLedger
	signals     map[string]bool
	settings    map[string]*models.SystemSetting
	modules     map[string]*models.ModuleSetting
	nextTradeID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:       map[uint64]*models.User{},
		scripts:     map[uint64]*models.Script{},
		activations: map[string]*models.ScriptActivation{},
		trades:      map[uint64]*models.Trade{},
		signals:     map[string]bool{},
		settings:    map[string]*models.SystemSetting{},
		modules:     map[string]*models.ModuleSetting{},
	}
}

func activationKey(userID, scriptID uint64, timeframe string) string {
	return fmt.Sprintf("%d:%d:%s", userID, scriptID, timeframe)
}

func signalKey(scriptID uint64, timeframe string, candleTime time.Time) string {
	return fmt.Sprintf("%d:%s:%d", scriptID, timeframe, candleTime.UnixMilli())
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) CreateUser(ctx context.Context, item *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[item.ID] = item
	return nil
}

func (r *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *stubRepo) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.APIToken == token {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) GrantCoins(ctx context.Context, userID uint64, amount int64, reason, performedBy string) (*models.CoinLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	if u == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}
	entry := models.CoinLedger{
		UserID:      userID,
		Before:      u.Coins,
		After:       u.Coins + amount,
		Action:      models.CoinActionGrant,
		Reason:      reason,
		PerformedBy: performedBy,
	}
	u.Coins += amount
	r.ledger = append(r.ledger, entry)
	return &entry, nil
}

func (r *stubRepo) ListCoinLedger(ctx context.Context, params repository.ListCoinLedgerParams) ([]models.CoinLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CoinLedger, len(r.ledger))
	copy(out, r.ledger)
	return out, nil
}

func (r *stubRepo) CreateScript(ctx context.Context, item *models.Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[item.ID] = item
	return nil
}

func (r *stubRepo) GetScriptByID(ctx context.Context, id uint64) (*models.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scripts[id], nil
}

func (r *stubRepo) ListScriptsByUser(ctx context.Context, userID uint64) ([]models.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Script
	for _, s := range r.scripts {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubRepo) GetActivation(ctx context.Context, userID, scriptID uint64, timeframe string) (*models.ScriptActivation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activations[activationKey(userID, scriptID, timeframe)], nil
}

func (r *stubRepo) SetActivationEnabled(ctx context.Context, userID, scriptID uint64, timeframe string, enabled bool, startedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := activationKey(userID, scriptID, timeframe)
	a := r.activations[key]
	if a == nil {
		a = &models.ScriptActivation{UserID: userID, ScriptID: scriptID, Timeframe: timeframe}
		r.activations[key] = a
	}
	a.Enabled = enabled
	a.BotStartedAt = startedAt
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *stubRepo) ListEnabledActivations(ctx context.Context) ([]models.ScriptActivation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ScriptActivation
	for _, a := range r.activations {
		if a.Enabled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubRepo) TradeExistsForCandle(ctx context.Context, scriptID uint64, timeframe string, candleTime time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.trades {
		if tr.ScriptID == scriptID && tr.Timeframe == timeframe && tr.CandleTime.Equal(candleTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRepo) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trades[id], nil
}

func (r *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Trade
	for _, tr := range r.trades {
		out = append(out, *tr)
	}
	return out, nil
}

func (r *stubRepo) UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr := r.trades[id]
	if tr == nil {
		return fmt.Errorf("trade %d not found", id)
	}
	tr.Status = status
	if msg, ok := updates["error_message"].(string); ok {
		tr.ErrorMessage = msg
	}
	return nil
}

func (r *stubRepo) ExecuteTradeDebit(ctx context.Context, trade *models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := signalKey(trade.ScriptID, trade.Timeframe, trade.CandleTime)
	if r.signals[key] {
		return repository.ErrDuplicateCandle
	}
	u := r.users[trade.UserID]
	if u == nil {
		return fmt.Errorf("user %d not found", trade.UserID)
	}
	if u.Coins <= 0 {
		return repository.ErrInsufficientBudget
	}
	r.signals[key] = true
	before := u.Coins
	u.Coins--
	r.ledger = append(r.ledger, models.CoinLedger{
		UserID:      trade.UserID,
		Before:      before,
		After:       u.Coins,
		Action:      models.CoinActionTradeDebit,
		PerformedBy: "engine",
	})
	r.nextTradeID++
	trade.ID = r.nextTradeID
	cp := *trade
	r.trades[trade.ID] = &cp
	return nil
}

func (r *stubRepo) DeleteSignalsBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *stubRepo) GetModuleSetting(ctx context.Context, userID uint64, moduleKey string) (*models.ModuleSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules[fmt.Sprintf("%d:%s", userID, moduleKey)], nil
}

func (r *stubRepo) UpsertModuleSetting(ctx context.Context, item *models.ModuleSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[fmt.Sprintf("%d:%s", item.UserID, item.ModuleKey)] = item
	return nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[item.Key] = item
	return nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings[key], nil
}

// stubMarket serves one fixed candle window per symbol.
type stubMarket struct {
	mu      sync.Mutex
	candles map[string][]market.Candle
	err     error
	panics  map[string]bool
}

func (m *stubMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panics != nil && m.panics[symbol] {
		panic("market meltdown")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.candles[symbol], nil
}

func (m *stubMarket) Ticker(ctx context.Context, symbol string) (market.Ticker, error) {
	return market.Ticker{Symbol: symbol}, nil
}

// stubExchange counts placements and can fail on demand.
type stubExchange struct {
	mu     sync.Mutex
	placed int
	err    error
}

func (e *stubExchange) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placed++
	if e.err != nil {
		return nil, e.err
	}
	return &exchange.OrderAck{OrderID: "stub-1", Price: req.Price, Status: "FILLED"}, nil
}

type stubFlags struct {
	liveOrders bool
}

func (f *stubFlags) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if f == nil {
		return fallback
	}
	return f.liveOrders
}

const crossoverScript = "entry: crossover\nma: sma\nfast: 2\nslow: 3\nstop_loss: 2\ntake_profit: 4"

// buyCandles produces a window whose last candle fires an SMA 2/3 crossover.
func buyCandles(last time.Time) []market.Candle {
	closes := []float64{10, 10, 10, 10, 20}
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			OpenTime: last.Add(-time.Duration(len(closes)-1-i) * time.Hour),
			Open:     c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}
	return out
}

func newTestRig(coins int64, candles []market.Candle) (*stubRepo, *Coordinator, Tuple) {
	repo := newStubRepo()
	started := time.Now().UTC().Add(-24 * time.Hour)
	repo.users[1] = &models.User{ID: 1, Email: "trader@example.com", Coins: coins}
	repo.scripts[7] = &models.Script{ID: 7, UserID: 1, Name: "golden", Symbol: "BTCUSDT", Content: crossoverScript}
	repo.activations[activationKey(1, 7, "1h")] = &models.ScriptActivation{
		UserID: 1, ScriptID: 7, Timeframe: "1h",
		Enabled: true, BotStartedAt: &started,
	}

	coord := &Coordinator{
		Repo:      repo,
		Market:    &stubMarket{candles: map[string][]market.Candle{"BTCUSDT": candles}},
		Exchange:  &stubExchange{},
		Flags:     &stubFlags{},
		Evaluator: &strategy.Evaluator{},
	}
	return repo, coord, Tuple{UserID: 1, ScriptID: 7, Timeframe: "1h"}
}

func TestRun_ExecutesAndDebitsOnce(t *testing.T) {
	lastCandle := time.Now().UTC().Truncate(time.Hour)
	repo, coord, tuple := newTestRig(10, buyCandles(lastCandle))

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusExecuted {
		t.Fatalf("status=%s want=%s (reason=%s err=%s)", out.Status, StatusExecuted, out.Reason, out.Error)
	}
	if out.TradeID == 0 {
		t.Fatalf("expected trade id on executed outcome")
	}
	if repo.users[1].Coins != 9 {
		t.Fatalf("coins=%d want=9", repo.users[1].Coins)
	}
	tr := repo.trades[out.TradeID]
	if tr == nil || tr.Status != models.TradeStatusOpen {
		t.Fatalf("trade=%+v want status OPEN", tr)
	}
	if !tr.CandleTime.Equal(lastCandle) {
		t.Fatalf("candle time=%s want=%s", tr.CandleTime, lastCandle)
	}
	if len(repo.ledger) != 1 || repo.ledger[0].Action != models.CoinActionTradeDebit {
		t.Fatalf("ledger=%+v want one trade_debit entry", repo.ledger)
	}
}

func TestRun_ConcurrentRunsProduceOneTrade(t *testing.T) {
	repo, coord, tuple := newTestRig(10, buyCandles(time.Now().UTC().Truncate(time.Hour)))

	const runs = 16
	outcomes := make([]Outcome, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = coord.Run(context.Background(), tuple, false)
		}(i)
	}
	wg.Wait()

	executed, duplicates := 0, 0
	for _, out := range outcomes {
		switch out.Status {
		case StatusExecuted:
			executed++
		case StatusSkippedDuplicate:
			duplicates++
		default:
			t.Fatalf("unexpected status %s (reason=%s err=%s)", out.Status, out.Reason, out.Error)
		}
	}
	if executed != 1 {
		t.Fatalf("executed=%d want exactly 1", executed)
	}
	if duplicates != runs-1 {
		t.Fatalf("duplicates=%d want=%d", duplicates, runs-1)
	}
	if len(repo.trades) != 1 {
		t.Fatalf("trades=%d want=1", len(repo.trades))
	}
	if repo.users[1].Coins != 9 {
		t.Fatalf("coins=%d want=9 (single debit)", repo.users[1].Coins)
	}
}

func TestRun_StaleCandleIsGated(t *testing.T) {
	lastCandle := time.Now().UTC().Truncate(time.Hour)
	repo, coord, tuple := newTestRig(10, buyCandles(lastCandle))

	// Bot (re)started after the signal candle: the signal predates the gate.
	started := lastCandle.Add(30 * time.Minute)
	repo.activations[activationKey(1, 7, "1h")].BotStartedAt = &started

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusSkippedGated {
		t.Fatalf("status=%s want=%s", out.Status, StatusSkippedGated)
	}
	if len(repo.trades) != 0 || repo.users[1].Coins != 10 {
		t.Fatalf("stale signal must not trade or debit (trades=%d coins=%d)", len(repo.trades), repo.users[1].Coins)
	}
}

func TestRun_DisabledGateSkips(t *testing.T) {
	repo, coord, tuple := newTestRig(10, buyCandles(time.Now().UTC()))
	repo.activations[activationKey(1, 7, "1h")].Enabled = false

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusSkippedGated {
		t.Fatalf("status=%s want=%s", out.Status, StatusSkippedGated)
	}
}

func TestRun_ZeroCoinsSkipsWithoutTrade(t *testing.T) {
	repo, coord, tuple := newTestRig(0, buyCandles(time.Now().UTC().Truncate(time.Hour)))

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusSkippedNoBudget {
		t.Fatalf("status=%s want=%s", out.Status, StatusSkippedNoBudget)
	}
	if len(repo.trades) != 0 || len(repo.ledger) != 0 {
		t.Fatalf("exhausted budget must leave no records (trades=%d ledger=%d)", len(repo.trades), len(repo.ledger))
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	repo, coord, tuple := newTestRig(10, buyCandles(time.Now().UTC().Truncate(time.Hour)))

	out := coord.Run(context.Background(), tuple, true)
	if out.Status != StatusDryRun {
		t.Fatalf("status=%s want=%s", out.Status, StatusDryRun)
	}
	if out.Signal == nil || out.Signal.Type != strategy.SignalBuy {
		t.Fatalf("dry run should surface the would-be signal, got %+v", out.Signal)
	}
	if len(repo.trades) != 0 || len(repo.ledger) != 0 || len(repo.signals) != 0 || repo.users[1].Coins != 10 {
		t.Fatalf("dry run must not write (trades=%d ledger=%d signals=%d coins=%d)",
			len(repo.trades), len(repo.ledger), len(repo.signals), repo.users[1].Coins)
	}
}

func TestRun_NoSignalSkips(t *testing.T) {
	flat := buyCandles(time.Now().UTC().Truncate(time.Hour))
	for i := range flat {
		flat[i].Close = 10
	}
	repo, coord, tuple := newTestRig(10, flat)

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusSkippedNoSignal {
		t.Fatalf("status=%s want=%s", out.Status, StatusSkippedNoSignal)
	}
	if len(repo.trades) != 0 {
		t.Fatalf("NONE signal must not trade")
	}
}

func TestRun_InsufficientHistorySkips(t *testing.T) {
	short := buyCandles(time.Now().UTC().Truncate(time.Hour))[:2]
	_, coord, tuple := newTestRig(10, short)

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusSkippedNoSignal {
		t.Fatalf("status=%s want=%s (reason=%s)", out.Status, StatusSkippedNoSignal, out.Reason)
	}
}

func TestRun_RejectedOrderKeepsDebitAndMarksFailed(t *testing.T) {
	repo, coord, tuple := newTestRig(10, buyCandles(time.Now().UTC().Truncate(time.Hour)))
	coord.Flags = &stubFlags{liveOrders: true}
	coord.Exchange = &stubExchange{err: &exchange.ProviderError{
		StatusCode: 401,
		Message:    "Invalid API-key, IP, or permissions for action.",
	}}

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusExecutionFailed {
		t.Fatalf("status=%s want=%s", out.Status, StatusExecutionFailed)
	}
	// Failed placement still consumes the coin; only the trade is failed.
	if repo.users[1].Coins != 9 {
		t.Fatalf("coins=%d want=9", repo.users[1].Coins)
	}
	tr := repo.trades[out.TradeID]
	if tr == nil || tr.Status != models.TradeStatusFailed {
		t.Fatalf("trade=%+v want status FAILED", tr)
	}
	if tr.ErrorMessage != "Invalid API-key, IP, or permissions for action." {
		t.Fatalf("error message=%q must keep provider text verbatim", tr.ErrorMessage)
	}
	if exchange.Classify(tr.ErrorMessage) != exchange.KindPermission {
		t.Fatalf("classify(%q)=%s want=%s", tr.ErrorMessage, exchange.Classify(tr.ErrorMessage), exchange.KindPermission)
	}
}

func TestRun_MarketDownFails(t *testing.T) {
	_, coord, tuple := newTestRig(10, nil)
	coord.Market = &stubMarket{err: market.ErrMarketDataUnavailable}

	out := coord.Run(context.Background(), tuple, false)
	if out.Status != StatusFailed {
		t.Fatalf("status=%s want=%s", out.Status, StatusFailed)
	}
}

func TestRun_SecondCandleTradesAgain(t *testing.T) {
	first := time.Now().UTC().Truncate(time.Hour)
	repo, coord, tuple := newTestRig(10, buyCandles(first))

	if out := coord.Run(context.Background(), tuple, false); out.Status != StatusExecuted {
		t.Fatalf("first run status=%s want=%s", out.Status, StatusExecuted)
	}
	// Same candle again: idempotent skip.
	if out := coord.Run(context.Background(), tuple, false); out.Status != StatusSkippedDuplicate {
		t.Fatalf("repeat run status=%s want=%s", out.Status, StatusSkippedDuplicate)
	}

	// A fresh candle closes: the next trade is allowed.
	coord.Market = &stubMarket{candles: map[string][]market.Candle{"BTCUSDT": buyCandles(first.Add(time.Hour))}}
	if out := coord.Run(context.Background(), tuple, false); out.Status != StatusExecuted {
		t.Fatalf("fresh candle status=%s want=%s", out.Status, StatusExecuted)
	}
	if len(repo.trades) != 2 || repo.users[1].Coins != 8 {
		t.Fatalf("trades=%d coins=%d want 2 trades and 8 coins", len(repo.trades), repo.users[1].Coins)
	}
}
