// Package store exposes the owner-scoped CRUD contract for dashboard
// entities, with one in-memory implementation and one GORM-backed
// implementation selected at process start.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/botdeck/botdeck/internal/models"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
)

// BotUpdate carries a partial bot mutation. Nil fields are left untouched.
// The bot id and owner id are deliberately not expressible here.
type BotUpdate struct {
	Name   *string
	Token  *string
	Active *bool
}

// CommandUpdate carries a partial command mutation. Nil fields are left
// untouched.
type CommandUpdate struct {
	Name        *string
	Description *string
	Code        *string
}

// Store is the repository contract shared by all storage backends. Every
// operation is atomic with respect to itself; there are no cross-call
// transactions.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, id uint64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserTOTPSecret(ctx context.Context, id uint64, secret string) error

	CreateBot(ctx context.Context, userID uint64, name, token string) (*models.Bot, error)
	ListBotsByUser(ctx context.Context, userID uint64) ([]models.Bot, error)
	GetBot(ctx context.Context, id uint64) (*models.Bot, error)
	UpdateBot(ctx context.Context, id uint64, update BotUpdate) (*models.Bot, error)
	DeleteBot(ctx context.Context, id uint64) error

	CreateCommand(ctx context.Context, botID uint64, name, description, code string) (*models.Command, error)
	ListCommandsByBot(ctx context.Context, botID uint64) ([]models.Command, error)
	GetCommand(ctx context.Context, id uint64) (*models.Command, error)
	UpdateCommand(ctx context.Context, id uint64, update CommandUpdate) (*models.Command, error)
	DeleteCommand(ctx context.Context, id uint64) error

	SaveAnalytics(ctx context.Context, botID uint64, metrics []byte, timestamp string) (*models.AnalyticsRecord, error)
	ListAnalyticsByBot(ctx context.Context, botID uint64) ([]models.AnalyticsRecord, error)
}

// timestampLayouts are tried in order when parsing analytics timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a string-encoded instant. Unparsable values map to
// the zero time so they sort after every well-formed record.
func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if parsed, errParse := time.Parse(layout, raw); errParse == nil {
			return parsed
		}
	}
	return time.Time{}
}

// sortAnalyticsDesc orders records by parsed timestamp descending. Ties and
// unparsable timestamps fall back to id descending so the order stays total.
func sortAnalyticsDesc(records []models.AnalyticsRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := parseTimestamp(records[i].Timestamp), parseTimestamp(records[j].Timestamp)
		if ti.Equal(tj) {
			return records[i].ID > records[j].ID
		}
		return ti.After(tj)
	})
}

func sortBotsByID(bots []models.Bot) {
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
}

func sortCommandsByID(commands []models.Command) {
	sort.Slice(commands, func(i, j int) bool { return commands[i].ID < commands[j].ID })
}
