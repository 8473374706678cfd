package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradescript/internal/models"
	"tradescript/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- users & coins ----------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	if s == nil || s.db == nil || strings.TrimSpace(token) == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("api_token = ?", token).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GrantCoins(ctx context.Context, userID uint64, amount int64, reason, performedBy string) (*models.CoinLedger, error) {
	if s == nil || s.db == nil || amount <= 0 {
		return nil, nil
	}
	var entry *models.CoinLedger
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("coins", gorm.Expr("coins + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var u models.User
		if err := tx.Select("coins").First(&u, userID).Error; err != nil {
			return err
		}
		entry = &models.CoinLedger{
			UserID:      userID,
			Before:      u.Coins - amount,
			After:       u.Coins,
			Action:      models.CoinActionGrant,
			Reason:      reason,
			PerformedBy: performedBy,
			CreatedAt:   time.Now().UTC(),
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) ListCoinLedger(ctx context.Context, params repository.ListCoinLedgerParams) ([]models.CoinLedger, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CoinLedger{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Action != nil && strings.TrimSpace(*params.Action) != "" {
		query = query.Where("action = ?", strings.TrimSpace(*params.Action))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 200)
	var items []models.CoinLedger
	if err := query.Order("created_at desc").Limit(limit).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- scripts ----------------------------------------------------------------

func (s *Store) CreateScript(ctx context.Context, item *models.Script) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetScriptByID(ctx context.Context, id uint64) (*models.Script, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Script
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListScriptsByUser(ctx context.Context, userID uint64) ([]models.Script, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Script
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- activations ------------------------------------------------------------

func (s *Store) GetActivation(ctx context.Context, userID, scriptID uint64, timeframe string) (*models.ScriptActivation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ScriptActivation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND script_id = ? AND timeframe = ?", userID, scriptID, timeframe).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SetActivationEnabled(ctx context.Context, userID, scriptID uint64, timeframe string, enabled bool, startedAt *time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	item := &models.ScriptActivation{
		UserID:       userID,
		ScriptID:     scriptID,
		Timeframe:    timeframe,
		Enabled:      enabled,
		BotStartedAt: startedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "script_id"}, {Name: "timeframe"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled",
			"bot_started_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListEnabledActivations(ctx context.Context) ([]models.ScriptActivation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScriptActivation
	if err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- trades -----------------------------------------------------------------

func (s *Store) TradeExistsForCandle(ctx context.Context, scriptID uint64, timeframe string, candleTime time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("script_id = ? AND timeframe = ? AND candle_time = ?", scriptID, timeframe, candleTime).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.ScriptID != nil {
		query = query.Where("script_id = ?", *params.ScriptID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	var items []models.Trade
	if err := query.Limit(limit).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = status
	return s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ExecuteTradeDebit claims the candle, spends the coin and creates the trade
// as a single transaction. The signals unique index decides races between
// concurrent sweeps: the loser's insert affects zero rows.
func (s *Store) ExecuteTradeDebit(ctx context.Context, trade *models.Trade) error {
	if s == nil || s.db == nil || trade == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := &models.Signal{
			ScriptID:   trade.ScriptID,
			Timeframe:  trade.Timeframe,
			CandleTime: trade.CandleTime,
			SignalType: trade.SignalType,
			Processed:  true,
			CreatedAt:  time.Now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrDuplicateCandle
		}

		res = tx.Model(&models.User{}).
			Where("id = ? AND coins > 0", trade.UserID).
			UpdateColumn("coins", gorm.Expr("coins - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrInsufficientBudget
		}

		var u models.User
		if err := tx.Select("coins").First(&u, trade.UserID).Error; err != nil {
			return err
		}
		entry := &models.CoinLedger{
			UserID:      trade.UserID,
			Before:      u.Coins + 1,
			After:       u.Coins,
			Action:      models.CoinActionTradeDebit,
			Reason:      "trade execution",
			PerformedBy: "engine",
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		return tx.Create(trade).Error
	})
}

// --- signals ----------------------------------------------------------------

func (s *Store) DeleteSignalsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.Signal{})
	return res.RowsAffected, res.Error
}

// --- module settings --------------------------------------------------------

func (s *Store) GetModuleSetting(ctx context.Context, userID uint64, moduleKey string) (*models.ModuleSetting, error) {
	if s == nil || s.db == nil || strings.TrimSpace(moduleKey) == "" {
		return nil, nil
	}
	var item models.ModuleSetting
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND module_key = ?", userID, moduleKey).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertModuleSetting(ctx context.Context, item *models.ModuleSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ModuleKey) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"config",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil || strings.TrimSpace(key) == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
