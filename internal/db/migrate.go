package db

import (
	"fmt"

	"github.com/botdeck/botdeck/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Bot{},
		&models.Command{},
		&models.AnalyticsRecord{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_bots_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_bots_user_id_created_at
				ON bots (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_commands_bot_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_commands_bot_id_created_at
				ON commands (bot_id, created_at DESC)
			`,
		},
		{
			name: "idx_analytics_records_bot_id_id",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_analytics_records_bot_id_id
				ON analytics_records (bot_id, id DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}
