package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botdeck/botdeck/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore persists dashboard entities through GORM (PostgreSQL or SQLite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore over an open connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateUser creates a user account, enforcing username uniqueness.
func (s *GormStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; errCount != nil {
		return nil, fmt.Errorf("check username: %w", errCount)
	}
	if count > 0 {
		return nil, ErrDuplicateUsername
	}

	now := time.Now().UTC()
	user := models.User{
		Username:  username,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		// The unique index can still fire under a concurrent registration.
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", errCreate)
	}
	return &user, nil
}

// GetUser returns the user by id.
func (s *GormStore) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", errFind)
	}
	return &user, nil
}

// GetUserByUsername returns the user with the username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", errFind)
	}
	return &user, nil
}

// SetUserTOTPSecret stores or clears the user's TOTP secret.
func (s *GormStore) SetUserTOTPSecret(ctx context.Context, id uint64, secret string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("set totp secret: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBot creates a bot for the owner. New bots always start inactive.
func (s *GormStore) CreateBot(ctx context.Context, userID uint64, name, token string) (*models.Bot, error) {
	if _, errUser := s.GetUser(ctx, userID); errUser != nil {
		return nil, errUser
	}

	now := time.Now().UTC()
	bot := models.Bot{
		UserID:    userID,
		Name:      name,
		Token:     token,
		Active:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&bot).Error; errCreate != nil {
		return nil, fmt.Errorf("create bot: %w", errCreate)
	}
	return &bot, nil
}

// ListBotsByUser returns all bots owned by the user.
func (s *GormStore) ListBotsByUser(ctx context.Context, userID uint64) ([]models.Bot, error) {
	var bots []models.Bot
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&bots).Error; errFind != nil {
		return nil, fmt.Errorf("list bots: %w", errFind)
	}
	return bots, nil
}

// GetBot returns the bot by id.
func (s *GormStore) GetBot(ctx context.Context, id uint64) (*models.Bot, error) {
	var bot models.Bot
	if errFind := s.db.WithContext(ctx).First(&bot, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bot: %w", errFind)
	}
	return &bot, nil
}

// UpdateBot applies a partial update and returns the updated bot.
func (s *GormStore) UpdateBot(ctx context.Context, id uint64, update BotUpdate) (*models.Bot, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Token != nil {
		updates["token"] = *update.Token
	}
	if update.Active != nil {
		updates["active"] = *update.Active
	}

	res := s.db.WithContext(ctx).Model(&models.Bot{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update bot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetBot(ctx, id)
}

// DeleteBot removes the bot and cascades to its commands and analytics
// records in one transaction.
func (s *GormStore) DeleteBot(ctx context.Context, id uint64) error {
	if _, errGet := s.GetBot(ctx, id); errGet != nil {
		return errGet
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelCommands := tx.Where("bot_id = ?", id).Delete(&models.Command{}).Error; errDelCommands != nil {
			return errDelCommands
		}
		if errDelAnalytics := tx.Where("bot_id = ?", id).Delete(&models.AnalyticsRecord{}).Error; errDelAnalytics != nil {
			return errDelAnalytics
		}
		return tx.Delete(&models.Bot{}, id).Error
	})
	if errTx != nil {
		return fmt.Errorf("delete bot: %w", errTx)
	}
	return nil
}

// CreateCommand creates a command under the bot.
func (s *GormStore) CreateCommand(ctx context.Context, botID uint64, name, description, code string) (*models.Command, error) {
	if _, errBot := s.GetBot(ctx, botID); errBot != nil {
		return nil, errBot
	}

	now := time.Now().UTC()
	command := models.Command{
		BotID:       botID,
		Name:        name,
		Description: description,
		Code:        code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&command).Error; errCreate != nil {
		return nil, fmt.Errorf("create command: %w", errCreate)
	}
	return &command, nil
}

// ListCommandsByBot returns all commands attached to the bot.
func (s *GormStore) ListCommandsByBot(ctx context.Context, botID uint64) ([]models.Command, error) {
	var commands []models.Command
	if errFind := s.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("id ASC").
		Find(&commands).Error; errFind != nil {
		return nil, fmt.Errorf("list commands: %w", errFind)
	}
	return commands, nil
}

// GetCommand returns the command by id.
func (s *GormStore) GetCommand(ctx context.Context, id uint64) (*models.Command, error) {
	var command models.Command
	if errFind := s.db.WithContext(ctx).First(&command, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get command: %w", errFind)
	}
	return &command, nil
}

// UpdateCommand applies a partial update and returns the updated command.
func (s *GormStore) UpdateCommand(ctx context.Context, id uint64, update CommandUpdate) (*models.Command, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Code != nil {
		updates["code"] = *update.Code
	}

	res := s.db.WithContext(ctx).Model(&models.Command{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update command: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetCommand(ctx, id)
}

// DeleteCommand removes the command.
func (s *GormStore) DeleteCommand(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Command{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete command: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAnalytics appends an analytics record for the bot.
func (s *GormStore) SaveAnalytics(ctx context.Context, botID uint64, metrics []byte, timestamp string) (*models.AnalyticsRecord, error) {
	if _, errBot := s.GetBot(ctx, botID); errBot != nil {
		return nil, errBot
	}

	record := models.AnalyticsRecord{
		BotID:     botID,
		Metrics:   datatypes.JSON(metrics),
		Timestamp: timestamp,
		CreatedAt: time.Now().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("save analytics: %w", errCreate)
	}
	return &record, nil
}

// ListAnalyticsByBot returns the bot's records, newest timestamp first.
// Timestamps are strings of varying formats, so ordering happens in Go on the
// parsed values rather than in SQL.
func (s *GormStore) ListAnalyticsByBot(ctx context.Context, botID uint64) ([]models.AnalyticsRecord, error) {
	var records []models.AnalyticsRecord
	if errFind := s.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("list analytics: %w", errFind)
	}
	sortAnalyticsDesc(records)
	return records, nil
}
