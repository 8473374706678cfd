package models

import "time"

const (
	CoinActionTradeDebit = "trade_debit"
	CoinActionGrant      = "grant"
)

// CoinLedger is the append-only audit trail for the coin budget. Rows are
// written in the same transaction as the balance change they describe.
type CoinLedger struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`

	Before int64 `gorm:"not null"`
	After  int64 `gorm:"not null"`

	Action      string `gorm:"type:varchar(30);not null;index"`
	Reason      string `gorm:"type:text"`
	PerformedBy string `gorm:"type:varchar(100);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (CoinLedger) TableName() string {
	return "coin_ledger"
}
