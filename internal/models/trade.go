package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusPending   = "PENDING"
	TradeStatusOpen      = "OPEN"
	TradeStatusClosed    = "CLOSED"
	TradeStatusFailed    = "FAILED"
	TradeStatusCancelled = "CANCELLED"
)

// Trade is created by the coordinator on a qualifying signal. The unique
// index over (script_id, timeframe, candle_time) is the persistence-layer
// backstop for the one-trade-per-candle invariant: the second concurrent
// writer's insert fails against it.
type Trade struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	UserID   uint64 `gorm:"not null;index"`
	ScriptID uint64 `gorm:"not null;uniqueIndex:idx_trade_candle"`

	Symbol    string `gorm:"type:varchar(20);not null;index"`
	Timeframe string `gorm:"type:varchar(10);not null;uniqueIndex:idx_trade_candle"`

	CandleTime time.Time `gorm:"type:timestamptz;not null;uniqueIndex:idx_trade_candle"`

	SignalType string          `gorm:"type:varchar(10);not null"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	ExitPrice  *decimal.Decimal `gorm:"type:numeric(20,10)"`
	StopLoss   decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	TakeProfit decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	Status       string `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ErrorMessage string `gorm:"type:text"`

	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	ClosedAt  *time.Time `gorm:"type:timestamptz"`
}

func (Trade) TableName() string {
	return "trades"
}
