package store

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&planRow{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&bucketRow{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&ideaRow{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("plans", "buckets", "ideas")
			},
		},
	})
	return m.Migrate()
}
