package store

import (
	"context"
	"sync"
	"time"

	"github.com/botdeck/botdeck/internal/models"
	"gorm.io/datatypes"
)

// MemoryStore keeps all entities in process-local maps. Suitable for tests
// and small single-process deployments; nothing survives a restart.
type MemoryStore struct {
	mu sync.Mutex

	users     map[uint64]*models.User
	bots      map[uint64]*models.Bot
	commands  map[uint64]*models.Command
	analytics map[uint64]*models.AnalyticsRecord

	nextUserID      uint64
	nextBotID       uint64
	nextCommandID   uint64
	nextAnalyticsID uint64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:           make(map[uint64]*models.User),
		bots:            make(map[uint64]*models.Bot),
		commands:        make(map[uint64]*models.Command),
		analytics:       make(map[uint64]*models.AnalyticsRecord),
		nextUserID:      1,
		nextBotID:       1,
		nextCommandID:   1,
		nextAnalyticsID: 1,
	}
}

// CreateUser creates a user. Username uniqueness is checked with a linear
// scan, which is fine at this scale.
func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			return nil, ErrDuplicateUsername
		}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        s.nextUserID,
		Username:  username,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextUserID++
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

// GetUser returns the user by id.
func (s *MemoryStore) GetUser(_ context.Context, id uint64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername returns the user with the username, via linear scan.
func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// SetUserTOTPSecret stores or clears the user's TOTP secret.
func (s *MemoryStore) SetUserTOTPSecret(_ context.Context, id uint64, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.TOTPSecret = secret
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateBot creates a bot for the owner. New bots always start inactive,
// whatever the caller asked for.
func (s *MemoryStore) CreateBot(_ context.Context, userID uint64, name, token string) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	bot := &models.Bot{
		ID:        s.nextBotID,
		UserID:    userID,
		Name:      name,
		Token:     token,
		Active:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextBotID++
	s.bots[bot.ID] = bot

	copied := *bot
	return &copied, nil
}

// ListBotsByUser returns all bots owned by the user.
func (s *MemoryStore) ListBotsByUser(_ context.Context, userID uint64) ([]models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Bot, 0)
	for _, bot := range s.bots {
		if bot.UserID == userID {
			out = append(out, *bot)
		}
	}
	sortBotsByID(out)
	return out, nil
}

// GetBot returns the bot by id.
func (s *MemoryStore) GetBot(_ context.Context, id uint64) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot, ok := s.bots[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *bot
	return &copied, nil
}

// UpdateBot applies a partial update. Id and owner are not part of BotUpdate,
// so the ownership invariant cannot be overwritten here.
func (s *MemoryStore) UpdateBot(_ context.Context, id uint64, update BotUpdate) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot, ok := s.bots[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		bot.Name = *update.Name
	}
	if update.Token != nil {
		bot.Token = *update.Token
	}
	if update.Active != nil {
		bot.Active = *update.Active
	}
	bot.UpdatedAt = time.Now().UTC()

	copied := *bot
	return &copied, nil
}

// DeleteBot removes the bot and cascades to its commands and analytics.
func (s *MemoryStore) DeleteBot(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[id]; !ok {
		return ErrNotFound
	}
	delete(s.bots, id)
	for commandID, command := range s.commands {
		if command.BotID == id {
			delete(s.commands, commandID)
		}
	}
	for recordID, record := range s.analytics {
		if record.BotID == id {
			delete(s.analytics, recordID)
		}
	}
	return nil
}

// CreateCommand creates a command under the bot.
func (s *MemoryStore) CreateCommand(_ context.Context, botID uint64, name, description, code string) (*models.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[botID]; !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	command := &models.Command{
		ID:          s.nextCommandID,
		BotID:       botID,
		Name:        name,
		Description: description,
		Code:        code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextCommandID++
	s.commands[command.ID] = command

	copied := *command
	return &copied, nil
}

// ListCommandsByBot returns all commands attached to the bot.
func (s *MemoryStore) ListCommandsByBot(_ context.Context, botID uint64) ([]models.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Command, 0)
	for _, command := range s.commands {
		if command.BotID == botID {
			out = append(out, *command)
		}
	}
	sortCommandsByID(out)
	return out, nil
}

// GetCommand returns the command by id.
func (s *MemoryStore) GetCommand(_ context.Context, id uint64) (*models.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command, ok := s.commands[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *command
	return &copied, nil
}

// UpdateCommand applies a partial update.
func (s *MemoryStore) UpdateCommand(_ context.Context, id uint64, update CommandUpdate) (*models.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command, ok := s.commands[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		command.Name = *update.Name
	}
	if update.Description != nil {
		command.Description = *update.Description
	}
	if update.Code != nil {
		command.Code = *update.Code
	}
	command.UpdatedAt = time.Now().UTC()

	copied := *command
	return &copied, nil
}

// DeleteCommand removes the command.
func (s *MemoryStore) DeleteCommand(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.commands[id]; !ok {
		return ErrNotFound
	}
	delete(s.commands, id)
	return nil
}

// SaveAnalytics appends an analytics record for the bot.
func (s *MemoryStore) SaveAnalytics(_ context.Context, botID uint64, metrics []byte, timestamp string) (*models.AnalyticsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[botID]; !ok {
		return nil, ErrNotFound
	}

	record := &models.AnalyticsRecord{
		ID:        s.nextAnalyticsID,
		BotID:     botID,
		Metrics:   datatypes.JSON(append([]byte(nil), metrics...)),
		Timestamp: timestamp,
		CreatedAt: time.Now().UTC(),
	}
	s.nextAnalyticsID++
	s.analytics[record.ID] = record

	copied := *record
	return &copied, nil
}

// ListAnalyticsByBot returns the bot's records, newest timestamp first.
func (s *MemoryStore) ListAnalyticsByBot(_ context.Context, botID uint64) ([]models.AnalyticsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AnalyticsRecord, 0)
	for _, record := range s.analytics {
		if record.BotID == botID {
			out = append(out, *record)
		}
	}
	sortAnalyticsDesc(out)
	return out, nil
}
