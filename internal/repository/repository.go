package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tradescript/internal/models"
)

// ErrDuplicateCandle means another writer already claimed the
// (script, timeframe, candle) tuple. Losing the race is a normal skip.
var ErrDuplicateCandle = errors.New("candle already processed")

// ErrInsufficientBudget means the user's coin balance is zero. Terminal until
// replenished; not an error condition for the sweep.
var ErrInsufficientBudget = errors.New("insufficient coin budget")

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users & coins.
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	GrantCoins(ctx context.Context, userID uint64, amount int64, reason, performedBy string) (*models.CoinLedger, error)
	ListCoinLedger(ctx context.Context, params ListCoinLedgerParams) ([]models.CoinLedger, error)

	// Scripts.
	CreateScript(ctx context.Context, item *models.Script) error
	GetScriptByID(ctx context.Context, id uint64) (*models.Script, error)
	ListScriptsByUser(ctx context.Context, userID uint64) ([]models.Script, error)

	// Activations (bot gates).
	GetActivation(ctx context.Context, userID, scriptID uint64, timeframe string) (*models.ScriptActivation, error)
	SetActivationEnabled(ctx context.Context, userID, scriptID uint64, timeframe string, enabled bool, startedAt *time.Time) error
	ListEnabledActivations(ctx context.Context) ([]models.ScriptActivation, error)

	// Trades.
	TradeExistsForCandle(ctx context.Context, scriptID uint64, timeframe string, candleTime time.Time) (bool, error)
	GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error

	// ExecuteTradeDebit is the one atomic unit of the execution path: claim
	// the candle slot via the signals unique index, decrement the coin
	// balance with a floor at zero, append the ledger row and insert the
	// PENDING trade. Returns ErrDuplicateCandle or ErrInsufficientBudget
	// with every write rolled back.
	ExecuteTradeDebit(ctx context.Context, trade *models.Trade) error

	// Signals.
	DeleteSignalsBefore(ctx context.Context, before time.Time) (int64, error)

	// Module settings (opaque UI blobs; typed decode happens in service).
	GetModuleSetting(ctx context.Context, userID uint64, moduleKey string) (*models.ModuleSetting, error)
	UpsertModuleSetting(ctx context.Context, item *models.ModuleSetting) error

	// System settings.
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
}

type ListTradesParams struct {
	Limit    int
	Offset   int
	UserID   *uint64
	ScriptID *uint64
	Status   *string
	Since    *time.Time
	OrderBy  string
	Asc      *bool
}

type ListCoinLedgerParams struct {
	Limit  int
	Offset int
	UserID *uint64
	Action *string
	Since  *time.Time
}
