// Package services contains the work session management service.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/models"
	"shramsetu/internal/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
)

// Default per-session verification policy applied when a create request
// leaves the fields unset.
const (
	defaultMinIntervalMinutes = 15
	defaultMaxIntervalMinutes = 45
	defaultMinVerifications   = 4
)

// sessionExportVersion tags the export envelope format.
const sessionExportVersion = 1

// SessionService manages the work session lifecycle and owns the coupling
// between session state and the verification scheduler: cancelling a session
// always releases its armed schedule.
type SessionService struct {
	db        *gorm.DB
	scheduler *scheduler.VerificationScheduler
}

// NewSessionService creates the session service.
func NewSessionService(db *gorm.DB, sched *scheduler.VerificationScheduler) *SessionService {
	return &SessionService{db: db, scheduler: sched}
}

// Create validates and persists a new session in the scheduled state.
// Unset policy fields receive the defaults.
func (s *SessionService) Create(session *models.WorkSession) error {
	applyPolicyDefaults(session)
	if err := session.Validate(); err != nil {
		return app_errors.NewValidationError(err.Error())
	}
	workers, err := session.Workers()
	if err != nil {
		return app_errors.NewValidationError(err.Error())
	}
	if len(workers) == 0 {
		return app_errors.NewValidationError("at least one assigned worker is required")
	}

	session.ID = 0
	session.Status = models.SessionStatusScheduled
	if session.Date == "" {
		session.Date = session.StartTime.Format("2006-01-02")
	}

	if err := s.db.Create(session).Error; err != nil {
		return app_errors.ParseDBError(err)
	}
	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"date":       session.Date,
		"workers":    len(workers),
	}).Info("Work session created")
	return nil
}

// List returns sessions, optionally filtered by status and/or date, most
// recent first.
func (s *SessionService) List(status, date string) ([]models.WorkSession, error) {
	query := s.db.Model(&models.WorkSession{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if date != "" {
		query = query.Where("date = ?", date)
	}
	var sessions []models.WorkSession
	if err := query.Order("start_time DESC").Find(&sessions).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	return sessions, nil
}

// Get resolves one session by id.
func (s *SessionService) Get(id uint) (*models.WorkSession, error) {
	var session models.WorkSession
	if err := s.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_errors.ErrSessionNotFound
		}
		return nil, app_errors.ParseDBError(err)
	}
	return &session, nil
}

// Update replaces the mutable fields of a scheduled session. Sessions that
// already started cannot be reshaped; their armed schedule would no longer
// match.
func (s *SessionService) Update(id uint, updated *models.WorkSession) (*models.WorkSession, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, app_errors.NewValidationError(fmt.Sprintf("cannot update %s session", session.Status))
	}

	applyPolicyDefaults(updated)
	if err := updated.Validate(); err != nil {
		return nil, app_errors.NewValidationError(err.Error())
	}
	workers, err := updated.Workers()
	if err != nil {
		return nil, app_errors.NewValidationError(err.Error())
	}
	if len(workers) == 0 {
		return nil, app_errors.NewValidationError("at least one assigned worker is required")
	}

	session.SiteLatitude = updated.SiteLatitude
	session.SiteLongitude = updated.SiteLongitude
	session.GeofenceRadiusM = updated.GeofenceRadiusM
	session.SiteAddress = updated.SiteAddress
	session.StartTime = updated.StartTime
	session.EndTime = updated.EndTime
	session.BreakStart = updated.BreakStart
	session.BreakEnd = updated.BreakEnd
	session.AssignedWorkerIDs = updated.AssignedWorkerIDs
	session.MinIntervalMinutes = updated.MinIntervalMinutes
	session.MaxIntervalMinutes = updated.MaxIntervalMinutes
	session.MinVerifications = updated.MinVerifications
	session.BaseDailyWage = updated.BaseDailyWage
	if updated.Date != "" {
		session.Date = updated.Date
	} else {
		session.Date = updated.StartTime.Format("2006-01-02")
	}

	if err := s.db.Save(session).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	return session, nil
}

// StartScheduling arms the verification schedule for a session.
func (s *SessionService) StartScheduling(id uint) error {
	return s.scheduler.StartScheduling(id)
}

// StopScheduling releases the armed schedule for a session without changing
// its status. Recorded outcomes are untouched.
func (s *SessionService) StopScheduling(id uint) {
	s.scheduler.StopScheduling(id)
}

// Cancel transitions a session to cancelled and releases its armed schedule.
// Terminal sessions cannot be cancelled again.
func (s *SessionService) Cancel(id uint) (*models.WorkSession, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, app_errors.NewValidationError(fmt.Sprintf("cannot cancel %s session", session.Status))
	}

	s.scheduler.StopScheduling(id)

	session.Status = models.SessionStatusCancelled
	if err := s.db.Save(session).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	logrus.WithField("session_id", id).Info("Work session cancelled")
	return session, nil
}

// Export serializes a session into a portable JSON envelope. Volatile fields
// (id, status, timestamps) are stripped so the envelope can be imported into
// another deployment as a fresh scheduled session.
func (s *SessionService) Export(id uint) ([]byte, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	for _, field := range []string{"id", "status", "created_at", "updated_at"} {
		if raw, err = sjson.DeleteBytes(raw, field); err != nil {
			return nil, fmt.Errorf("failed to strip field %s: %w", field, err)
		}
	}

	envelope := []byte(`{}`)
	if envelope, err = sjson.SetBytes(envelope, "version", sessionExportVersion); err != nil {
		return nil, err
	}
	if envelope, err = sjson.SetBytes(envelope, "exported_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if envelope, err = sjson.SetRawBytes(envelope, "session", raw); err != nil {
		return nil, err
	}
	return envelope, nil
}

// Import creates a fresh scheduled session from an export envelope.
func (s *SessionService) Import(data []byte) (*models.WorkSession, error) {
	if !gjson.ValidBytes(data) {
		return nil, app_errors.NewValidationError("import payload is not valid JSON")
	}
	version := gjson.GetBytes(data, "version")
	if !version.Exists() || version.Int() != sessionExportVersion {
		return nil, app_errors.NewValidationError(fmt.Sprintf("unsupported export version %s", version.Raw))
	}
	payload := gjson.GetBytes(data, "session")
	if !payload.Exists() {
		return nil, app_errors.NewValidationError("import payload has no session")
	}

	var session models.WorkSession
	if err := json.Unmarshal([]byte(payload.Raw), &session); err != nil {
		return nil, app_errors.NewValidationError(fmt.Sprintf("malformed session payload: %s", err))
	}
	if err := s.Create(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// applyPolicyDefaults fills unset verification policy fields.
func applyPolicyDefaults(session *models.WorkSession) {
	if session.MinIntervalMinutes == 0 {
		session.MinIntervalMinutes = defaultMinIntervalMinutes
	}
	if session.MaxIntervalMinutes == 0 {
		session.MaxIntervalMinutes = defaultMaxIntervalMinutes
	}
	if session.MinVerifications == 0 {
		session.MinVerifications = defaultMinVerifications
	}
}
