package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	sweepSchedule  = "@hourly"
	refreshTimeout = 30 * time.Second
)

// Sessions resolves credentials of live sessions and removes expired ones.
type Sessions interface {
	Credential(sessionID int64) (string, error)
	Sweep() ([]int64, error)
}

// OwnerCloser disconnects the live clients of a session.
type OwnerCloser interface {
	CloseOwner(owner int64)
}

// Cleaner drops expired bookkeeping, such as rate limiter windows.
type Cleaner interface {
	Cleanup()
}

// Scheduler refreshes every live view on a schedule and sweeps expired
// sessions every hour.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	sessions Sessions
	clients  OwnerCloser
	cleaners []Cleaner
	schedule string
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. An empty schedule disables periodic
// refresh but keeps the hourly sweep. clients may be nil.
func NewScheduler(svc *Service, sessions Sessions, clients OwnerCloser, schedule string, logger *slog.Logger, cleaners ...Cleaner) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		service:  svc,
		sessions: sessions,
		clients:  clients,
		cleaners: cleaners,
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if s.schedule != "" {
		if _, err := s.cron.AddFunc(s.schedule, func() { s.RefreshAll(s.context()) }); err != nil {
			return fmt.Errorf("schedule refresh %q: %w", s.schedule, err)
		}
	}
	if _, err := s.cron.AddFunc(sweepSchedule, s.Sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "refresh", s.schedule, "sweep", sweepSchedule)
	return nil
}

// Stop cancels in-flight refreshes and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// RefreshAll refetches the list of every live view using its session's
// credential and last fetch scope. Views whose session is gone are forgotten.
func (s *Scheduler) RefreshAll(ctx context.Context) {
	for _, id := range s.service.Sessions() {
		if ctx.Err() != nil {
			return
		}
		cred, err := s.sessions.Credential(id)
		if err != nil {
			s.logger.Error("load session credential", "session_id", id, "error", err)
			continue
		}
		if cred == "" {
			s.service.Forget(id)
			continue
		}

		v, ok := s.service.lookup(id)
		if !ok {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		if err := s.service.Refresh(rctx, id, cred, v.scopeID()); err != nil {
			s.logger.Warn("scheduled refresh", "session_id", id, "error", err)
		}
		cancel()
	}
}

// Sweep deletes expired sessions, forgets their views, and closes their
// websocket clients.
func (s *Scheduler) Sweep() {
	ids, err := s.sessions.Sweep()
	if err != nil {
		s.logger.Error("sweep sessions", "error", err)
	}
	for _, id := range ids {
		s.service.Forget(id)
		if s.clients != nil {
			s.clients.CloseOwner(id)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("swept expired sessions", "count", len(ids))
	}
	for _, c := range s.cleaners {
		c.Cleanup()
	}
}
