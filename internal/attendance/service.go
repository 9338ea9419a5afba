// Package attendance implements the check-in/check-out lifecycle, the
// summary and fraud calculators, and the approval workflow for attendance
// records.
package attendance

import (
	"errors"
	"fmt"
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/geo"
	"shramsetu/internal/keylock"
	"shramsetu/internal/models"
	"shramsetu/internal/types"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckPoint is the device-reported position attached to a check-in or
// check-out call.
type CheckPoint struct {
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Accuracy   float64        `json:"accuracy"`
	DeviceInfo datatypes.JSON `json:"device_info,omitempty"`
}

// Validate checks coordinate ranges.
func (p *CheckPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	if p.Accuracy < 0 {
		return fmt.Errorf("accuracy cannot be negative")
	}
	return nil
}

// Service drives attendance records through their lifecycle: created at
// check-in, accumulating verification outcomes, finalized at check-out, then
// approved or rejected by an official.
type Service struct {
	db          *gorm.DB
	recordLocks *keylock.KeyedMutex
	defaultWage float64

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewService creates the attendance service. The keyed mutex is the same
// instance the verification executor uses.
func NewService(db *gorm.DB, locks *keylock.KeyedMutex, configManager types.ConfigManager) *Service {
	return &Service{
		db:          db,
		recordLocks: locks,
		defaultWage: configManager.GetWageConfig().DefaultBaseDailyWage,
		now:         time.Now,
	}
}

// CheckIn creates the attendance record for (workerID, sessionID).
//
// A check-in outside the geofence is accepted but flagged for official
// review. A second check-in for the same pair fails with ErrAlreadyCheckedIn
// so the original stays auditable.
func (s *Service) CheckIn(workerID string, sessionID uint, point CheckPoint) (*models.AttendanceRecord, error) {
	if workerID == "" {
		return nil, app_errors.NewValidationError("worker id is required")
	}
	if err := point.Validate(); err != nil {
		return nil, app_errors.NewValidationError(err.Error())
	}

	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, app_errors.NewValidationError(fmt.Sprintf("cannot check in to %s session", session.Status))
	}

	distance := geo.DistanceMeters(point.Latitude, point.Longitude, session.SiteLatitude, session.SiteLongitude)
	within := distance <= session.GeofenceRadiusM

	unlock := s.recordLocks.Lock(keylock.RecordKey(workerID, sessionID))
	defer unlock()

	var existing models.AttendanceRecord
	err = s.db.Where("worker_id = ? AND session_id = ?", workerID, sessionID).First(&existing).Error
	if err == nil {
		return nil, app_errors.ErrAlreadyCheckedIn
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, app_errors.ParseDBError(err)
	}

	record := &models.AttendanceRecord{
		WorkerID:              workerID,
		SessionID:             sessionID,
		CheckinAt:             s.now(),
		CheckinLatitude:       point.Latitude,
		CheckinLongitude:      point.Longitude,
		CheckinAccuracy:       point.Accuracy,
		CheckinDeviceInfo:     point.DeviceInfo,
		CheckinWithinGeofence: within,
		CheckinDistanceM:      distance,
		ApprovalStatus:        models.ApprovalStatusPending,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":       workerID,
		"session_id":      sessionID,
		"within_geofence": within,
		"distance_m":      fmt.Sprintf("%.1f", distance),
	}).Info("Worker checked in")
	return record, nil
}

// CheckOut finalizes the record for (workerID, sessionID): summary, fraud
// analysis, and wage are computed once and the record stops accepting
// verification outcomes.
func (s *Service) CheckOut(workerID string, sessionID uint, point CheckPoint) (*models.AttendanceRecord, error) {
	if err := point.Validate(); err != nil {
		return nil, app_errors.NewValidationError(err.Error())
	}

	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.recordLocks.Lock(keylock.RecordKey(workerID, sessionID))
	defer unlock()

	var record models.AttendanceRecord
	err = s.db.Where("worker_id = ? AND session_id = ?", workerID, sessionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_errors.ErrNotCheckedIn
		}
		return nil, app_errors.ParseDBError(err)
	}
	if record.Finalized {
		return nil, app_errors.ErrRecordFinalized
	}

	outcomes, err := s.orderedOutcomes(record.ID)
	if err != nil {
		return nil, err
	}

	distance := geo.DistanceMeters(point.Latitude, point.Longitude, session.SiteLatitude, session.SiteLongitude)
	within := distance <= session.GeofenceRadiusM
	checkoutAt := s.now()

	record.CheckoutAt = &checkoutAt
	record.CheckoutLatitude = point.Latitude
	record.CheckoutLongitude = point.Longitude
	record.CheckoutAccuracy = point.Accuracy
	record.CheckoutDeviceInfo = point.DeviceInfo
	record.CheckoutWithinGeofence = within
	record.CheckoutDistanceM = distance

	computeSummary(&record, session, outcomes, checkoutAt, within)
	if err := computeFraud(&record, outcomes); err != nil {
		return nil, err
	}
	computeWage(&record, s.baseWage(session))
	record.Finalized = true

	if err := s.db.Save(&record).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":       workerID,
		"session_id":      sessionID,
		"work_percentage": record.WorkPercentage,
		"risk_level":      record.RiskLevel,
		"final_wage":      record.FinalWage,
	}).Info("Worker checked out, record finalized")
	return &record, nil
}

// Approve moves a pending record to approved. Only officials call this.
func (s *Service) Approve(workerID string, sessionID uint, approver, notes string) (*models.AttendanceRecord, error) {
	return s.resolveApproval(workerID, sessionID, approver, notes, models.ApprovalStatusApproved)
}

// Reject moves a pending record to rejected. Rejection does not reopen the
// record for further verifications.
func (s *Service) Reject(workerID string, sessionID uint, approver, notes string) (*models.AttendanceRecord, error) {
	return s.resolveApproval(workerID, sessionID, approver, notes, models.ApprovalStatusRejected)
}

func (s *Service) resolveApproval(workerID string, sessionID uint, approver, notes, status string) (*models.AttendanceRecord, error) {
	if approver == "" {
		return nil, app_errors.NewValidationError("approver is required")
	}

	unlock := s.recordLocks.Lock(keylock.RecordKey(workerID, sessionID))
	defer unlock()

	var record models.AttendanceRecord
	err := s.db.Where("worker_id = ? AND session_id = ?", workerID, sessionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_errors.NewNotFoundError("attendance record not found")
		}
		return nil, app_errors.ParseDBError(err)
	}
	if record.ApprovalStatus != models.ApprovalStatusPending {
		return nil, app_errors.NewValidationError(fmt.Sprintf("record is already %s", record.ApprovalStatus))
	}

	resolvedAt := s.now()
	record.ApprovalStatus = status
	record.ApprovedBy = approver
	record.ApprovalNotes = notes
	record.ApprovedAt = &resolvedAt

	if err := s.db.Save(&record).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"session_id": sessionID,
		"status":     status,
		"approver":   approver,
	}).Info("Attendance record approval resolved")
	return &record, nil
}

// Record fetches the attendance record for (workerID, sessionID) with its
// verification outcomes in scheduled-instant order.
func (s *Service) Record(workerID string, sessionID uint) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := s.db.Where("worker_id = ? AND session_id = ?", workerID, sessionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_errors.NewNotFoundError("attendance record not found")
		}
		return nil, app_errors.ParseDBError(err)
	}
	record.Verifications, err = s.orderedOutcomes(record.ID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordsForSession lists all attendance records of one session, outcomes
// not loaded.
func (s *Service) RecordsForSession(sessionID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := s.db.Where("session_id = ?", sessionID).Order("worker_id ASC").Find(&records).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	return records, nil
}

// loadSession resolves a session or maps the miss to ErrSessionNotFound.
func (s *Service) loadSession(sessionID uint) (*models.WorkSession, error) {
	var session models.WorkSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_errors.ErrSessionNotFound
		}
		return nil, app_errors.ParseDBError(err)
	}
	return &session, nil
}

// orderedOutcomes loads a record's outcomes in scheduled-instant order.
func (s *Service) orderedOutcomes(recordID uint) ([]models.VerificationOutcome, error) {
	var outcomes []models.VerificationOutcome
	err := s.db.Where("attendance_record_id = ?", recordID).
		Order("scheduled_at ASC").Find(&outcomes).Error
	if err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	return outcomes, nil
}

// baseWage picks the session override or the configured default.
func (s *Service) baseWage(session *models.WorkSession) float64 {
	if session.BaseDailyWage > 0 {
		return session.BaseDailyWage
	}
	return s.defaultWage
}
