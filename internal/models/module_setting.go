package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModuleSetting maps a UI module key to its configuration blob. Only the keys
// the engine consumes get a typed schema on read (see service.ModuleSettings);
// everything else is an opaque pass-through owned by the UI layer.
type ModuleSetting struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;uniqueIndex:idx_module_setting_key"`

	ModuleKey string         `gorm:"type:varchar(60);not null;uniqueIndex:idx_module_setting_key"`
	Config    datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ModuleSetting) TableName() string {
	return "module_settings"
}
