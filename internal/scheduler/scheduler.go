// Package scheduler arms and executes randomized verification schedules for
// work sessions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/locationcache"
	"shramsetu/internal/models"
	"shramsetu/internal/schedule"
	"shramsetu/internal/types"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// verificationTask is one armed timer for a (worker, instant) pair.
type verificationTask struct {
	workerID    string
	scheduledAt time.Time
	timer       *time.Timer
}

// sessionSchedule is the live task set of one session.
type sessionSchedule struct {
	sessionID uint
	endTime   time.Time
	tasks     map[string]*verificationTask
	cleanup   *time.Timer
}

// VerificationScheduler owns the timer registry. Each armed session maps to a
// set of one-shot timers, one per worker per verification instant, plus a
// cleanup timer that completes the session shortly after its end time. All
// registry access goes through mu; timer callbacks re-enter through it to
// deregister themselves.
type VerificationScheduler struct {
	db        *gorm.DB
	generator *schedule.Generator
	executor  *Executor
	cache     *locationcache.Cache

	graceMinutes  int
	cleanupBuffer time.Duration

	mu       sync.Mutex
	registry map[uint]*sessionSchedule
	stopped  bool

	// executions tracks in-flight verification callbacks for shutdown.
	executions sync.WaitGroup

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewVerificationScheduler creates the scheduler.
func NewVerificationScheduler(db *gorm.DB, generator *schedule.Generator, executor *Executor, cache *locationcache.Cache, configManager types.ConfigManager) *VerificationScheduler {
	vc := configManager.GetVerificationConfig()
	return &VerificationScheduler{
		db:            db,
		generator:     generator,
		executor:      executor,
		cache:         cache,
		graceMinutes:  vc.CheckinGraceMinutes,
		cleanupBuffer: time.Duration(vc.SessionCleanupBufferMinutes) * time.Minute,
		registry:      make(map[uint]*sessionSchedule),
		now:           time.Now,
	}
}

// Start re-arms schedules for sessions that were ongoing when the process
// last stopped. Timers live in process memory, so a restart must rebuild
// them from the database.
func (s *VerificationScheduler) Start() error {
	var sessions []models.WorkSession
	if err := s.db.Where("status = ?", models.SessionStatusOngoing).Find(&sessions).Error; err != nil {
		return fmt.Errorf("failed to load ongoing sessions: %w", err)
	}

	recovered := 0
	for i := range sessions {
		if err := s.StartScheduling(sessions[i].ID); err != nil {
			logrus.WithError(err).WithField("session_id", sessions[i].ID).
				Warn("Failed to re-arm verification schedule on startup")
			continue
		}
		recovered++
	}

	if recovered > 0 {
		logrus.Infof("Verification scheduler started, re-armed %d ongoing session(s)", recovered)
	} else {
		logrus.Info("Verification scheduler started")
	}
	return nil
}

// Stop cancels all armed timers and waits for in-flight verifications to
// finish, bounded by ctx.
func (s *VerificationScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	for _, sched := range s.registry {
		s.cancelLocked(sched)
	}
	s.registry = make(map[uint]*sessionSchedule)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.executions.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Verification scheduler stopped.")
	case <-ctx.Done():
		logrus.Warn("Verification scheduler stop timed out.")
	}
}

// StartScheduling generates a randomized verification schedule for the
// session and arms one timer per assigned worker per instant. The session
// transitions to ongoing. Instants already in the past (late start, restart
// recovery) are dropped silently.
//
// Returns ErrSessionNotFound for an unknown session and ErrSchedulingActive
// when the session already has an armed schedule.
func (s *VerificationScheduler) StartScheduling(sessionID uint) error {
	var session models.WorkSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return app_errors.ErrSessionNotFound
		}
		return fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	if session.IsTerminal() {
		return app_errors.NewValidationError(fmt.Sprintf("cannot schedule verification for %s session", session.Status))
	}

	workers, err := session.Workers()
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		return app_errors.NewValidationError("session has no assigned workers")
	}

	instants, err := s.generator.Instants(session.StartTime, session.EndTime, schedule.Policy{
		MinIntervalMinutes:  session.MinIntervalMinutes,
		MaxIntervalMinutes:  session.MaxIntervalMinutes,
		MinVerifications:    session.MinVerifications,
		CheckinGraceMinutes: s.graceMinutes,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}
	if _, exists := s.registry[sessionID]; exists {
		return app_errors.ErrSchedulingActive
	}

	now := s.now()
	sched := &sessionSchedule{
		sessionID: sessionID,
		endTime:   session.EndTime,
		tasks:     make(map[string]*verificationTask),
	}

	for _, workerID := range workers {
		for _, instant := range instants {
			if !instant.After(now) {
				continue
			}
			key := taskKey(workerID, instant)
			task := &verificationTask{workerID: workerID, scheduledAt: instant}
			task.timer = time.AfterFunc(instant.Sub(now), func() {
				s.runTask(sessionID, key, task)
			})
			sched.tasks[key] = task
		}
	}

	cleanupAt := session.EndTime.Add(s.cleanupBuffer)
	sched.cleanup = time.AfterFunc(cleanupAt.Sub(now), func() {
		s.completeSession(sessionID)
	})

	s.registry[sessionID] = sched

	if session.Status != models.SessionStatusOngoing {
		if err := s.db.Model(&models.WorkSession{}).Where("id = ?", sessionID).
			Update("status", models.SessionStatusOngoing).Error; err != nil {
			s.cancelLocked(sched)
			delete(s.registry, sessionID)
			return fmt.Errorf("failed to mark session %d ongoing: %w", sessionID, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"workers":       len(workers),
		"verifications": len(instants),
		"armed_tasks":   len(sched.tasks),
	}).Info("Verification schedule armed")

	return nil
}

// StopScheduling cancels all armed timers for a session. Stopping a session
// with no armed schedule is a no-op, so the call is safe to repeat.
func (s *VerificationScheduler) StopScheduling(sessionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, exists := s.registry[sessionID]
	if !exists {
		return
	}
	s.cancelLocked(sched)
	delete(s.registry, sessionID)
	logrus.WithField("session_id", sessionID).Info("Verification schedule cancelled")
}

// UpdateWorkerLocation caches a fresh device location sample so upcoming
// verification instants see it.
func (s *VerificationScheduler) UpdateWorkerLocation(sample *models.LocationSample) error {
	return s.cache.Update(sample)
}

// ActiveScheduleCount returns the number of sessions with an armed schedule.
func (s *VerificationScheduler) ActiveScheduleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

// PendingTaskCount returns the number of verification timers not yet fired
// for one session. Zero for a session with no armed schedule.
func (s *VerificationScheduler) PendingTaskCount(sessionID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sched, exists := s.registry[sessionID]; exists {
		return len(sched.tasks)
	}
	return 0
}

// TotalPendingTasks returns the number of verification timers not yet fired
// across all armed sessions.
func (s *VerificationScheduler) TotalPendingTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sched := range s.registry {
		total += len(sched.tasks)
	}
	return total
}

// runTask is the timer callback for one verification instant. It deregisters
// the task, then delegates to the executor.
func (s *VerificationScheduler) runTask(sessionID uint, key string, task *verificationTask) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if sched, exists := s.registry[sessionID]; exists {
		delete(sched.tasks, key)
	}
	s.executions.Add(1)
	s.mu.Unlock()
	defer s.executions.Done()

	if err := s.executor.PerformVerification(task.workerID, sessionID, task.scheduledAt); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"worker_id":  task.workerID,
			"session_id": sessionID,
		}).Error("Verification execution failed")
	}
}

// completeSession is the cleanup-timer callback. It drops any remaining
// timers and marks the session completed unless it already reached a
// terminal state.
func (s *VerificationScheduler) completeSession(sessionID uint) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if sched, exists := s.registry[sessionID]; exists {
		s.cancelLocked(sched)
		delete(s.registry, sessionID)
	}
	s.mu.Unlock()

	err := s.db.Model(&models.WorkSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionStatusOngoing).
		Update("status", models.SessionStatusCompleted).Error
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to complete session")
		return
	}
	logrus.WithField("session_id", sessionID).Info("Session completed, verification schedule released")
}

// cancelLocked stops every timer of a schedule. Caller holds mu.
func (s *VerificationScheduler) cancelLocked(sched *sessionSchedule) {
	for _, task := range sched.tasks {
		task.timer.Stop()
	}
	sched.tasks = make(map[string]*verificationTask)
	if sched.cleanup != nil {
		sched.cleanup.Stop()
	}
}

// taskKey identifies one (worker, instant) timer within a session schedule.
func taskKey(workerID string, instant time.Time) string {
	return fmt.Sprintf("%s@%d", workerID, instant.UnixNano())
}
