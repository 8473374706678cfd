package models

import "time"

// Script is user-authored strategy source text. The parsed form is cached by
// (ID, content hash), so Content edits invalidate the cache implicitly.
type Script struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`

	Name    string `gorm:"type:varchar(100);not null"`
	Symbol  string `gorm:"type:varchar(20);not null;index"`
	Content string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Script) TableName() string {
	return "scripts"
}
