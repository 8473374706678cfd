package models

import "time"

// Signal is the processed-candle claim record. A (script_id, timeframe,
// candle_time) tuple is claimed at most once; concurrent sweeps race on the
// unique index and exactly one wins.
type Signal struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	ScriptID uint64 `gorm:"not null;uniqueIndex:idx_signal_candle"`

	Timeframe  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_signal_candle"`
	CandleTime time.Time `gorm:"type:timestamptz;not null;uniqueIndex:idx_signal_candle"`

	SignalType string `gorm:"type:varchar(10);not null"`
	Processed  bool   `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Signal) TableName() string {
	return "signals"
}
