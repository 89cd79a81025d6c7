package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
)

// CommandHandler manages command endpoints nested under a bot.
type CommandHandler struct {
	store store.Store
}

// NewCommandHandler constructs a CommandHandler.
func NewCommandHandler(s store.Store) *CommandHandler {
	return &CommandHandler{store: s}
}

func commandPayload(command *models.Command) gin.H {
	return gin.H{
		"id":          command.ID,
		"botId":       command.BotID,
		"name":        command.Name,
		"description": command.Description,
		"code":        command.Code,
		"createdAt":   command.CreatedAt,
		"updatedAt":   command.UpdatedAt,
	}
}

// resolveOwnedCommand loads the :commandId command and verifies it belongs to
// the already-resolved bot.
func (h *CommandHandler) resolveOwnedCommand(c *gin.Context, bot *models.Bot) (*models.Command, bool) {
	commandID, ok := parseIDParam(c, "commandId")
	if !ok {
		return nil, false
	}

	command, errGet := h.store.GetCommand(c.Request.Context(), commandID)
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if command.BotID != bot.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return command, true
}

// List returns all commands of an owned bot.
func (h *CommandHandler) List(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	commands, errList := h.store.ListCommandsByBot(c.Request.Context(), bot.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list commands failed"})
		return
	}
	out := make([]gin.H, 0, len(commands))
	for i := range commands {
		out = append(out, commandPayload(&commands[i]))
	}
	c.JSON(http.StatusOK, out)
}

// createCommandRequest is the request body for command creation.
type createCommandRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

// Create adds a command to an owned bot.
func (h *CommandHandler) Create(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	var body createCommandRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var missing []string
	if strings.TrimSpace(body.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(body.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(body.Code) == "" {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		validationError(c, missing...)
		return
	}

	command, errCreate := h.store.CreateCommand(c.Request.Context(), bot.ID,
		strings.TrimSpace(body.Name), body.Description, body.Code)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create command failed"})
		return
	}
	c.JSON(http.StatusCreated, commandPayload(command))
}

// updateCommandRequest is the request body for partial command updates.
type updateCommandRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Code        *string `json:"code"`
}

// Update applies a partial update to a command of an owned bot.
func (h *CommandHandler) Update(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}
	command, ok := h.resolveOwnedCommand(c, bot)
	if !ok {
		return
	}

	var body updateCommandRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated, errUpdate := h.store.UpdateCommand(c.Request.Context(), command.ID, store.CommandUpdate{
		Name:        body.Name,
		Description: body.Description,
		Code:        body.Code,
	})
	if errUpdate != nil {
		if errors.Is(errUpdate, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update command failed"})
		return
	}
	c.JSON(http.StatusOK, commandPayload(updated))
}

// Delete removes a command of an owned bot.
func (h *CommandHandler) Delete(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}
	command, ok := h.resolveOwnedCommand(c, bot)
	if !ok {
		return
	}

	if errDelete := h.store.DeleteCommand(c.Request.Context(), command.ID); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete command failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
