package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the append-only analytics log of a bot.
type AnalyticsHandler struct {
	store store.Store
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(s store.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: s}
}

func analyticsPayload(record *models.AnalyticsRecord) gin.H {
	return gin.H{
		"id":        record.ID,
		"botId":     record.BotID,
		"metrics":   json.RawMessage(record.Metrics),
		"timestamp": record.Timestamp,
	}
}

// List returns an owned bot's records, newest first.
func (h *AnalyticsHandler) List(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	records, errList := h.store.ListAnalyticsByBot(c.Request.Context(), bot.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list analytics failed"})
		return
	}
	out := make([]gin.H, 0, len(records))
	for i := range records {
		out = append(out, analyticsPayload(&records[i]))
	}
	c.JSON(http.StatusOK, out)
}

// createAnalyticsRequest is the request body for appending a record.
type createAnalyticsRequest struct {
	Metrics   json.RawMessage `json:"metrics"`
	Timestamp string          `json:"timestamp"`
}

// Create appends an analytics record to an owned bot. The timestamp defaults
// to now when omitted.
func (h *AnalyticsHandler) Create(c *gin.Context) {
	bot, ok := resolveOwnedBot(c, h.store)
	if !ok {
		return
	}

	var body createAnalyticsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Metrics) == 0 || string(body.Metrics) == "null" {
		validationError(c, "metrics")
		return
	}
	timestamp := strings.TrimSpace(body.Timestamp)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	record, errSave := h.store.SaveAnalytics(c.Request.Context(), bot.ID, body.Metrics, timestamp)
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save analytics failed"})
		return
	}
	c.JSON(http.StatusCreated, analyticsPayload(record))
}
