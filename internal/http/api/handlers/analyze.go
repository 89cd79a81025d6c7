package handlers

import (
	"net/http"
	"strings"

	"github.com/botdeck/botdeck/internal/analysis"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AnalyzeHandler forwards code snippets to the analysis gateway.
type AnalyzeHandler struct {
	analyzer analysis.Analyzer
}

// NewAnalyzeHandler constructs an AnalyzeHandler.
func NewAnalyzeHandler(analyzer analysis.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer}
}

// analyzeRequest is the request body for code analysis.
type analyzeRequest struct {
	Code string `json:"code"`
}

// Analyze reviews a snippet through the external provider. Failures surface
// as 500 with the underlying message; this is an internal tool.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var body analyzeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	report, errAnalyze := h.analyzer.Analyze(c.Request.Context(), body.Code)
	if errAnalyze != nil {
		log.WithError(errAnalyze).Warn("code analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": errAnalyze.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
