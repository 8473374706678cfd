package service

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"tradescript/internal/models"
	"tradescript/internal/repository"
)

// moduleRepo overrides only the lookup the service touches.
type moduleRepo struct {
	repository.Repository
	item *models.ModuleSetting
	err  error
}

func (r *moduleRepo) GetModuleSetting(ctx context.Context, userID uint64, moduleKey string) (*models.ModuleSetting, error) {
	return r.item, r.err
}

func TestEngineConfig_MissingBlobUsesDefaults(t *testing.T) {
	svc := &ModuleSettingsService{Repo: &moduleRepo{}}
	cfg := svc.EngineConfig(context.Background(), 1)
	if cfg.CandleLimit != 200 || !cfg.NotifyOnTrade || !cfg.NotifyOnError || cfg.PauseOnFailure {
		t.Fatalf("cfg=%+v want defaults", cfg)
	}
}

func TestEngineConfig_MalformedBlobUsesDefaults(t *testing.T) {
	svc := &ModuleSettingsService{Repo: &moduleRepo{item: &models.ModuleSetting{
		UserID:    1,
		ModuleKey: ModuleKeyEngine,
		Config:    datatypes.JSON([]byte(`{not json`)),
	}}}
	cfg := svc.EngineConfig(context.Background(), 1)
	if cfg.CandleLimit != 200 {
		t.Fatalf("candle_limit=%d want default 200", cfg.CandleLimit)
	}
}

func TestEngineConfig_OutOfRangeLimitIsClamped(t *testing.T) {
	svc := &ModuleSettingsService{Repo: &moduleRepo{item: &models.ModuleSetting{
		UserID:    1,
		ModuleKey: ModuleKeyEngine,
		Config:    datatypes.JSON([]byte(`{"candle_limit": 100000, "notify_on_trade": false}`)),
	}}}
	cfg := svc.EngineConfig(context.Background(), 1)
	if cfg.CandleLimit != 200 {
		t.Fatalf("candle_limit=%d want default 200 when out of range", cfg.CandleLimit)
	}
	if cfg.NotifyOnTrade {
		t.Fatalf("notify_on_trade should keep the stored false")
	}
}

func TestEngineConfig_ValidBlobWins(t *testing.T) {
	svc := &ModuleSettingsService{Repo: &moduleRepo{item: &models.ModuleSetting{
		UserID:    1,
		ModuleKey: ModuleKeyEngine,
		Config:    datatypes.JSON([]byte(`{"candle_limit": 300, "notify_on_trade": true, "pause_on_failure": true}`)),
	}}}
	cfg := svc.EngineConfig(context.Background(), 1)
	if cfg.CandleLimit != 300 || !cfg.PauseOnFailure {
		t.Fatalf("cfg=%+v want stored values", cfg)
	}
}
