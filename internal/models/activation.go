package models

import "time"

// ScriptActivation is the per (user, script, timeframe) bot gate. Enabling
// stamps BotStartedAt; candles older than that timestamp must never execute,
// which is what stops a re-enabled bot from replaying stale signals.
type ScriptActivation struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	UserID   uint64 `gorm:"not null;uniqueIndex:idx_activation_tuple"`
	ScriptID uint64 `gorm:"not null;uniqueIndex:idx_activation_tuple"`

	Timeframe string `gorm:"type:varchar(10);not null;uniqueIndex:idx_activation_tuple"`

	Enabled      bool       `gorm:"not null;default:false;index"`
	BotStartedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ScriptActivation) TableName() string {
	return "script_activations"
}

// GateCutoff is the single gating timestamp for this activation. Rows written
// before BotStartedAt existed fall back to the last toggle time.
func (a *ScriptActivation) GateCutoff() time.Time {
	if a == nil {
		return time.Time{}
	}
	if a.BotStartedAt != nil {
		return *a.BotStartedAt
	}
	return a.UpdatedAt
}
