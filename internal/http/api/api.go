// Package api registers the dashboard's REST routes and the session
// middleware guarding them.
package api

import (
	"net/http"

	"github.com/botdeck/botdeck/internal/analysis"
	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/http/api/handlers"
	"github.com/botdeck/botdeck/internal/security"
	"github.com/botdeck/botdeck/internal/session"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the collaborators the route layer dispatches to.
type Deps struct {
	Store    store.Store
	Sessions *session.Manager
	Session  config.SessionConfig
	Analyzer analysis.Analyzer
	DB       *gorm.DB // nil when the memory backend is active
}

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Store == nil || deps.Sessions == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	apiGroup := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.Store, deps.Sessions, deps.Session)
	apiGroup.POST("/register", authHandler.Register)
	apiGroup.POST("/login", authHandler.Login)

	authed := apiGroup.Group("")
	authed.Use(sessionAuthMiddleware(deps.Store, deps.Sessions, deps.Session.Secret))

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/user", authHandler.Me)
	authed.POST("/account/totp/prepare", authHandler.PrepareTOTP)
	authed.POST("/account/totp/confirm", authHandler.ConfirmTOTP)
	authed.POST("/account/totp/disable", authHandler.DisableTOTP)

	botHandler := handlers.NewBotHandler(deps.Store)
	authed.GET("/bots", botHandler.List)
	authed.POST("/bots", botHandler.Create)
	authed.PATCH("/bots/:id", botHandler.Update)
	authed.DELETE("/bots/:id", botHandler.Delete)

	commandHandler := handlers.NewCommandHandler(deps.Store)
	authed.GET("/bots/:id/commands", commandHandler.List)
	authed.POST("/bots/:id/commands", commandHandler.Create)
	authed.PATCH("/bots/:id/commands/:commandId", commandHandler.Update)
	authed.DELETE("/bots/:id/commands/:commandId", commandHandler.Delete)

	analyticsHandler := handlers.NewAnalyticsHandler(deps.Store)
	authed.GET("/bots/:id/analytics", analyticsHandler.List)
	authed.POST("/bots/:id/analytics", analyticsHandler.Create)

	analyzeHandler := handlers.NewAnalyzeHandler(deps.Analyzer)
	authed.POST("/analyze-code", analyzeHandler.Analyze)
}

// sessionAuthMiddleware resolves the session cookie to a principal and
// rejects the request before any business logic otherwise.
func sessionAuthMiddleware(s store.Store, sessions *session.Manager, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errCookie := c.Cookie(handlers.SessionCookie)
		if errCookie != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, errParse := security.ParseSessionToken(secret, token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		sess, ok := sessions.Get(claims.SessionID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		user, errUser := s.GetUser(c.Request.Context(), sess.UserID)
		if errUser != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(handlers.ContextUserKey, user)
		c.Set(handlers.ContextSessionIDKey, sess.ID)
		c.Next()
	}
}
