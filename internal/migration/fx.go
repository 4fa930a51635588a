package migration

import (
	"github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DB.Type != "postgres" {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

// AutoMigrate mirrors the SQL migrations for dialects golang-migrate does not
// cover here.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&domain.Manufacturer{},
		&domain.Category{},
		&domain.Product{},
		&domain.Translation{},
		&domain.MediaAsset{},
	)
}
