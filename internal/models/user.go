package models

import "time"

// User represents a dashboard account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password (hash.salt encoding).

	TOTPSecret string `gorm:"type:text"` // TOTP secret when a second factor is enabled.

	Bots []Bot `gorm:"foreignKey:UserID"` // Bots owned by this account.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
