package models

import "time"

// Command represents a command definition attached to one bot.
type Command struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BotID uint64 `gorm:"index;not null"` // Owning bot ID.

	Name        string `gorm:"type:text;not null"` // Trigger name, e.g. "!ping".
	Description string `gorm:"type:text;not null"` // Human-readable description.
	Code        string `gorm:"type:text;not null"` // Command source text.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
