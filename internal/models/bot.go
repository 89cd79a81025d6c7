package models

import "time"

// Bot represents a managed Discord bot owned by one user.
type Bot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"index;not null"` // Owning user ID.

	Name   string `gorm:"type:text;not null"` // Display name.
	Token  string `gorm:"type:text;not null"` // Discord bot token.
	Active bool   `gorm:"not null;default:false"` // Whether the bot is marked active.

	Commands []Command `gorm:"foreignKey:BotID"` // Commands defined for this bot.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
