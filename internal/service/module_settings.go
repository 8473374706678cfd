package service

import (
	"context"
	"encoding/json"

	"tradescript/internal/repository"
)

// Module keys with a schema this engine consumes. Every other key is an
// opaque blob owned by the UI and passes through untouched.
const (
	ModuleKeyEngine = "engine"
)

// EngineModuleConfig is the typed view of the "engine" module blob. Values
// are validated and defaulted on read; the stored JSON is never trusted raw
// at the coordinator boundary.
type EngineModuleConfig struct {
	CandleLimit    int  `json:"candle_limit"`
	NotifyOnTrade  bool `json:"notify_on_trade"`
	NotifyOnError  bool `json:"notify_on_error"`
	PauseOnFailure bool `json:"pause_on_failure"`
}

func defaultEngineModuleConfig() EngineModuleConfig {
	return EngineModuleConfig{
		CandleLimit:   200,
		NotifyOnTrade: true,
		NotifyOnError: true,
	}
}

type ModuleSettingsService struct {
	Repo repository.Repository
}

// EngineConfig decodes the user's engine module settings, falling back to
// defaults field by field when the blob is missing or malformed.
func (s *ModuleSettingsService) EngineConfig(ctx context.Context, userID uint64) EngineModuleConfig {
	cfg := defaultEngineModuleConfig()
	if s == nil || s.Repo == nil {
		return cfg
	}
	item, err := s.Repo.GetModuleSetting(ctx, userID, ModuleKeyEngine)
	if err != nil || item == nil || len(item.Config) == 0 {
		return cfg
	}
	var parsed EngineModuleConfig
	if err := json.Unmarshal(item.Config, &parsed); err != nil {
		return cfg
	}
	if parsed.CandleLimit <= 0 || parsed.CandleLimit > 1000 {
		parsed.CandleLimit = cfg.CandleLimit
	}
	return parsed
}
