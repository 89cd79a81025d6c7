package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
)

// BotHandler manages bot endpoints.
type BotHandler struct {
	store store.Store
}

// NewBotHandler constructs a BotHandler.
func NewBotHandler(s store.Store) *BotHandler {
	return &BotHandler{store: s}
}

func botPayload(bot *models.Bot) gin.H {
	return gin.H{
		"id":        bot.ID,
		"userId":    bot.UserID,
		"name":      bot.Name,
		"token":     bot.Token,
		"isActive":  bot.Active,
		"createdAt": bot.CreatedAt,
		"updatedAt": bot.UpdatedAt,
	}
}

// List returns the principal's bots.
func (h *BotHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bots, errList := h.store.ListBotsByUser(c.Request.Context(), user.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list bots failed"})
		return
	}
	out := make([]gin.H, 0, len(bots))
	for i := range bots {
		out = append(out, botPayload(&bots[i]))
	}
	c.JSON(http.StatusOK, out)
}

// createBotRequest is the request body for bot creation. An isActive value
// sent here is ignored; new bots always start inactive.
type createBotRequest struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Create registers a new bot for the principal.
func (h *BotHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var body createBotRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var missing []string
	if strings.TrimSpace(body.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(body.Token) == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		validationError(c, missing...)
		return
	}

	bot, errCreate := h.store.CreateBot(c.Request.Context(), user.ID, strings.TrimSpace(body.Name), body.Token)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create bot failed"})
		return
	}
	c.JSON(http.StatusCreated, botPayload(bot))
}

// updateBotRequest is the request body for partial bot updates. Identity
// fields are not bindable here.
type updateBotRequest struct {
	Name     *string `json:"name"`
	Token    *string `json:"token"`
	IsActive *bool   `json:"isActive"`
}

// Update applies a partial update to an owned bot.
func (h *BotHandler) Update(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	var body updateBotRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated, errUpdate := h.store.UpdateBot(c.Request.Context(), bot.ID, store.BotUpdate{
		Name:   body.Name,
		Token:  body.Token,
		Active: body.IsActive,
	})
	if errUpdate != nil {
		if errors.Is(errUpdate, store.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update bot failed"})
		return
	}
	c.JSON(http.StatusOK, botPayload(updated))
}

// Delete removes an owned bot along with its commands and analytics.
func (h *BotHandler) Delete(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	if errDelete := h.store.DeleteBot(c.Request.Context(), bot.ID); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete bot failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
