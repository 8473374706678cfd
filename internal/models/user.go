package models

import "time"

// User is the owner of scripts and the holder of the coin budget. Coins are
// mutated only through the atomic debit/grant paths in the repository.
type User struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Email    string `gorm:"type:varchar(200);uniqueIndex;not null"`
	Role     string `gorm:"type:varchar(20);not null;default:'user';index"`
	APIToken string `gorm:"type:varchar(120);uniqueIndex"`

	Coins int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
