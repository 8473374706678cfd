package db

import "tradescript/internal/models"

// AutoMigrate creates or updates the schema for every persisted model,
// including the unique indexes the execution path relies on.
func (d *DB) AutoMigrate() error {
	if d == nil || d.Gorm == nil {
		return nil
	}
	return d.Gorm.AutoMigrate(
		&models.User{},
		&models.Script{},
		&models.ScriptActivation{},
		&models.Trade{},
		&models.Signal{},
		&models.CoinLedger{},
		&models.ModuleSetting{},
		&models.SystemSetting{},
	)
}
