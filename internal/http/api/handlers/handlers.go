package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "botdeck_session"

// Context keys set by the session middleware.
const (
	ContextUserKey      = "currentUser"
	ContextSessionIDKey = "sessionID"
)

// currentUser returns the authenticated principal set by the middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// resolveOwnedBot loads the bot named by the :id parameter and verifies the
// principal owns it. A missing bot and a foreign bot are both answered with
// 403, so ids cannot be probed across accounts.
func resolveOwnedBot(c *gin.Context, s store.Store) (*models.Bot, bool) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	bot, errGet := s.GetBot(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if bot.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return bot, true
}

// validationError answers 400 listing the offending fields.
func validationError(c *gin.Context, fields ...string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
}
