package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper periodically evicts expired sessions from a Manager.
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper schedules a sweep of the manager at the given interval.
func NewSweeper(m *Manager, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}

	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	c := cron.New()
	if _, errAdd := c.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		if removed := m.Sweep(time.Now()); removed > 0 {
			log.Debugf("session sweep evicted %d expired sessions", removed)
		}
	}); errAdd != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", errAdd)
	}

	return &Sweeper{cron: c}, nil
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
