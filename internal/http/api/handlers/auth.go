package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/security"
	"github.com/botdeck/botdeck/internal/session"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthHandler manages registration, login, logout, and account security.
type AuthHandler struct {
	store      store.Store
	sessions   *session.Manager
	sessionCfg config.SessionConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(s store.Store, sessions *session.Manager, sessionCfg config.SessionConfig) *AuthHandler {
	return &AuthHandler{store: s, sessions: sessions, sessionCfg: sessionCfg}
}

// userPayload is the public shape of a user. The password hash never leaves
// the store layer.
func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"totpEnabled": user.TOTPSecret != "",
		"createdAt":   user.CreatedAt,
	}
}

// establishSession creates a server-side session for the user and sets the
// signed cookie.
func (h *AuthHandler) establishSession(c *gin.Context, userID uint64) error {
	sess, errCreate := h.sessions.Create(userID)
	if errCreate != nil {
		return errCreate
	}
	token, errSign := security.SignSessionToken(h.sessionCfg.Secret, sess.ID, h.sessionCfg.Expiry)
	if errSign != nil {
		h.sessions.Delete(sess.ID)
		return errSign
	}
	c.SetCookie(SessionCookie, token, int(h.sessionCfg.Expiry.Seconds()), "/", "", false, true)
	return nil
}

// credentialsRequest is the request body for register and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode"`
}

// Register creates an account and immediately signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var body credentialsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var missing []string
	username := strings.TrimSpace(body.Username)
	if username == "" {
		missing = append(missing, "username")
	}
	if body.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		validationError(c, missing...)
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user, errCreate := h.store.CreateUser(c.Request.Context(), username, hash)
	if errCreate != nil {
		if errors.Is(errCreate, store.ErrDuplicateUsername) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	if errSession := h.establishSession(c, user.ID); errSession != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	log.Infof("registered user %s", user.Username)
	c.JSON(http.StatusCreated, userPayload(user))
}

// Login authenticates a username/password pair. Unknown usernames and wrong
// passwords fail identically.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	user, errGet := h.store.GetUserByUsername(c.Request.Context(), strings.TrimSpace(body.Username))
	if errGet != nil || !security.VerifyPassword(body.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if user.TOTPSecret != "" {
		if strings.TrimSpace(body.TOTPCode) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp code required", "totpRequired": true})
			return
		}
		if !security.ValidateTOTP(user.TOTPSecret, body.TOTPCode) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
	}

	if errSession := h.establishSession(c, user.ID); errSession != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	c.JSON(http.StatusOK, userPayload(user))
}

// Logout invalidates the current session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID := c.GetString(ContextSessionIDKey); sessionID != "" {
		h.sessions.Delete(sessionID)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, userPayload(user))
}

// PrepareTOTP issues a fresh TOTP secret for enrollment. Nothing is persisted
// until the code is confirmed.
func (h *AuthHandler) PrepareTOTP(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	secret, url, errGen := security.GenerateTOTPSecret(user.Username)
	if errGen != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// confirmTOTPRequest is the request body for TOTP confirmation.
type confirmTOTPRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// ConfirmTOTP verifies the enrollment code and enables the second factor.
func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Secret) == "" || strings.TrimSpace(body.Code) == "" {
		validationError(c, "secret", "code")
		return
	}
	if !security.ValidateTOTP(body.Secret, body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}

	if errSet := h.store.SetUserTOTPSecret(c.Request.Context(), user.ID, body.Secret); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// disableTOTPRequest is the request body for disabling TOTP.
type disableTOTPRequest struct {
	Code string `json:"code"`
}

// DisableTOTP turns the second factor off after verifying a current code.
func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if user.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}

	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(user.TOTPSecret, body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}

	if errSet := h.store.SetUserTOTPSecret(c.Request.Context(), user.ID, ""); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
