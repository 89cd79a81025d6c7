// Package app wires configuration, storage, sessions, and the HTTP layer
// into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/botdeck/botdeck/internal/analysis"
	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/http/api"
	"github.com/botdeck/botdeck/internal/session"
	"github.com/botdeck/botdeck/internal/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// shutdownGrace bounds how long in-flight requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// Migrate opens the database and runs migrations without serving.
func Migrate(ctx context.Context, cfg config.Config) error {
	if cfg.Storage != config.StorageDatabase {
		return fmt.Errorf("storage backend %q has no migrations", cfg.Storage)
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// buildStore constructs the storage backend named by the config. The
// returned *gorm.DB is nil for the memory backend.
func buildStore(cfg config.Config) (store.Store, *gorm.DB, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return store.NewMemoryStore(), nil, nil
	case config.StorageDatabase:
		conn, errOpen := db.Open(cfg.Database.DSN)
		if errOpen != nil {
			return nil, nil, errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return nil, nil, errMigrate
		}
		return store.NewGormStore(conn), conn, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage)
	}
}

// RunServer boots the dashboard API and blocks until ctx is cancelled or
// the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return errors.New("session secret is required; set session.secret or " + config.EnvSessionSecret)
	}

	backingStore, conn, errStore := buildStore(cfg)
	if errStore != nil {
		return errStore
	}
	if conn != nil {
		log.WithField("dialect", db.DialectName(conn)).Info("database storage ready")
	} else {
		log.Warn("memory storage active, state is lost on restart")
	}

	sessions := session.NewManager(cfg.Session.Expiry)
	sweeper, errSweeper := session.NewSweeper(sessions, cfg.Session.SweepInterval)
	if errSweeper != nil {
		return errSweeper
	}
	sweeper.Start()
	defer sweeper.Stop()

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	api.RegisterRoutes(engine, api.Deps{
		Store:    backingStore,
		Sessions: sessions,
		Session:  cfg.Session,
		Analyzer: analysis.NewOpenAIClient(cfg.OpenAI),
		DB:       conn,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("dashboard API listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request handled")
	}
}
