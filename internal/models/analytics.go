package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalyticsRecord is one append-only analytics event reported for a bot.
// Records are never updated or deleted individually; listings order them by
// Timestamp descending.
type AnalyticsRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BotID uint64 `gorm:"index;not null"` // Owning bot ID.

	Metrics   datatypes.JSON `gorm:"not null"`           // Opaque metrics payload.
	Timestamp string         `gorm:"type:text;not null"` // String-encoded instant the event refers to.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Row creation timestamp.
}
