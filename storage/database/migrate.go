package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"Quilt/internal/model"
	"Quilt/pkg/logger"
)

// AutoMigrate 覆盖不到的索引与约束
var postMigrations = []struct {
	name string
	sql  string
}{
	{
		name: "patients_interface_mode_check",
		sql: `DO $$ BEGIN
	ALTER TABLE patients ADD CONSTRAINT patients_interface_mode_check CHECK (interface_mode IN ('default', 'easy'));
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`,
	},
	{
		name: "idx_patients_unredeemed_code",
		sql:  `CREATE INDEX IF NOT EXISTS idx_patients_unredeemed_code ON patients (invitation_code) WHERE redeemed_at IS NULL`,
	},
}

// Migrate 建表并补充约束，可重复执行
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.Profile{},
		&model.Patient{},
		&model.CaregiverPatient{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	for _, m := range postMigrations {
		if err := db.Exec(m.sql).Error; err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}

	logger.Logger.Info("Database migration completed successfully",
		zap.Int("post_migrations", len(postMigrations)),
	)
	return nil
}
