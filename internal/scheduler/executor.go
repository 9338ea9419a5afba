package scheduler

import (
	"errors"
	"fmt"
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/geo"
	"shramsetu/internal/keylock"
	"shramsetu/internal/locationcache"
	"shramsetu/internal/models"
	"shramsetu/internal/notify"
	"shramsetu/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Geofence breach multipliers for fraud flag severity. A distance beyond
// highSeverityMultiplier x radius raises a high flag, beyond
// criticalSeverityMultiplier x radius a critical one.
const (
	highSeverityMultiplier     = 2.0
	criticalSeverityMultiplier = 5.0
)

// Store hash tracking executor counters for the dashboard.
const verificationStatsKey = "stats:verifications"

// Executor counter fields.
const (
	StatExecuted      = "executed"
	StatVerified      = "verified"
	StatFailed        = "failed"
	StatSkippedStale  = "skipped_stale"
	StatSkippedAbsent = "skipped_absent"
	StatAlerts        = "alerts"
)

// Executor runs a single scheduled verification: read the cached location,
// check freshness and geofence membership, append the outcome, and raise an
// alert when risk is high. Each run is one logical step; notification
// dispatch never blocks it.
type Executor struct {
	db          *gorm.DB
	cache       *locationcache.Cache
	notifier    notify.Notifier
	store       store.Store
	recordLocks *keylock.KeyedMutex

	// staleness is the maximum trusted age of a cached location sample,
	// evaluated at read time.
	staleness time.Duration

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewExecutor creates a verification executor. The keyed mutex is shared
// with the attendance service so record mutations for the same
// (worker, session) pair are serialized across both.
func NewExecutor(db *gorm.DB, cache *locationcache.Cache, notifier notify.Notifier, st store.Store, locks *keylock.KeyedMutex, staleness time.Duration) *Executor {
	return &Executor{
		db:          db,
		cache:       cache,
		notifier:    notifier,
		store:       st,
		recordLocks: locks,
		staleness:   staleness,
		now:         time.Now,
	}
}

// PerformVerification executes the location check scheduled at scheduledAt
// for (workerID, sessionID).
//
// A missing or stale cached location is a skip, not a failure: no outcome is
// recorded and the worker's device is asked for a fresh fix. A worker with
// no attendance record (never checked in) accumulates no outcomes either.
func (e *Executor) PerformVerification(workerID string, sessionID uint, scheduledAt time.Time) error {
	var session models.WorkSession
	if err := e.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return app_errors.ErrSessionNotFound
		}
		return fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	sample, err := e.cache.Latest(workerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.skipForLocation(workerID, sessionID, StatSkippedAbsent, "no cached location")
			return nil
		}
		return fmt.Errorf("failed to read location cache for worker %s: %w", workerID, err)
	}

	if sample.Age(e.now()) > e.staleness {
		e.skipForLocation(workerID, sessionID, StatSkippedStale, fmt.Sprintf("location is %s old", sample.Age(e.now()).Round(time.Second)))
		return nil
	}

	distance := geo.DistanceMeters(sample.Latitude, sample.Longitude, session.SiteLatitude, session.SiteLongitude)
	withinGeofence := distance <= session.GeofenceRadiusM
	flags := geofenceFlags(distance, session.GeofenceRadiusM)

	actualAt := e.now()
	outcome := models.VerificationOutcome{
		VerificationID:  uuid.NewString(),
		WorkerID:        workerID,
		SessionID:       sessionID,
		ScheduledAt:     scheduledAt,
		ActualAt:        actualAt,
		TimeDiffSeconds: int64(actualAt.Sub(scheduledAt) / time.Second),
		Latitude:        sample.Latitude,
		Longitude:       sample.Longitude,
		Accuracy:        sample.Accuracy,
		WithinGeofence:  withinGeofence,
		DistanceM:       distance,
		// Geofence membership is the sole verification criterion.
		Verified: withinGeofence,
	}
	if err := outcome.SetFlags(flags); err != nil {
		return err
	}

	appended, err := e.appendOutcome(&outcome)
	if err != nil {
		return err
	}
	if !appended {
		return nil
	}

	e.bumpStat(StatExecuted)
	if outcome.Verified {
		e.bumpStat(StatVerified)
	} else {
		e.bumpStat(StatFailed)
	}

	if flag, severe := severestFlag(flags); severe {
		e.bumpStat(StatAlerts)
		e.notifier.SendCriticalAlert(workerID, sessionID, notify.AlertDetails{
			VerificationID: outcome.VerificationID,
			ScheduledAt:    scheduledAt,
			DistanceM:      distance,
			FlagType:       flag.Type,
			FlagSeverity:   flag.Severity,
			Detail:         flag.Detail,
		})
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"session_id": sessionID,
		"distance_m": fmt.Sprintf("%.1f", distance),
		"verified":   outcome.Verified,
	}).Debug("Verification outcome recorded")

	return nil
}

// appendOutcome attaches the outcome to the worker's attendance record under
// the per-(worker, session) lock. Returns false when no record exists or the
// record is already finalized; the outcome is discarded in both cases.
func (e *Executor) appendOutcome(outcome *models.VerificationOutcome) (bool, error) {
	unlock := e.recordLocks.Lock(keylock.RecordKey(outcome.WorkerID, outcome.SessionID))
	defer unlock()

	var record models.AttendanceRecord
	err := e.db.Where("worker_id = ? AND session_id = ?", outcome.WorkerID, outcome.SessionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{
				"worker_id":  outcome.WorkerID,
				"session_id": outcome.SessionID,
			}).Debug("Discarding verification outcome: worker never checked in")
			return false, nil
		}
		return false, fmt.Errorf("failed to load attendance record: %w", err)
	}

	if record.Finalized {
		logrus.WithFields(logrus.Fields{
			"worker_id":  outcome.WorkerID,
			"session_id": outcome.SessionID,
		}).Debug("Discarding verification outcome: record already finalized")
		return false, nil
	}

	outcome.AttendanceRecordID = record.ID
	if err := e.db.Create(outcome).Error; err != nil {
		return false, fmt.Errorf("failed to append verification outcome: %w", err)
	}
	return true, nil
}

// skipForLocation records a skipped check and requests a fresh device fix.
func (e *Executor) skipForLocation(workerID string, sessionID uint, stat, reason string) {
	e.bumpStat(stat)
	logrus.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"session_id": sessionID,
		"reason":     reason,
	}).Info("Skipping verification, requesting location update")
	e.notifier.RequestLocationUpdate(workerID, sessionID)
}

// bumpStat increments a dashboard counter. Counter failures are invisible to
// the verification path.
func (e *Executor) bumpStat(field string) {
	if e.store == nil {
		return
	}
	if _, err := e.store.HIncrBy(verificationStatsKey, field, 1); err != nil {
		logrus.WithError(err).Debug("Failed to bump verification stat")
	}
}

// geofenceFlags derives fraud flags for a verification distance. At most one
// flag is raised; its severity grows with how far beyond the geofence the
// worker was.
func geofenceFlags(distance, radius float64) []models.FraudFlag {
	switch {
	case distance > criticalSeverityMultiplier*radius:
		return []models.FraudFlag{{
			Type:     models.FlagFarOutsideGeofence,
			Severity: models.FlagSeverityCritical,
			Detail:   fmt.Sprintf("worker %.0fm from site, geofence radius %.0fm", distance, radius),
			Distance: distance,
		}}
	case distance > highSeverityMultiplier*radius:
		return []models.FraudFlag{{
			Type:     models.FlagOutsideGeofence,
			Severity: models.FlagSeverityHigh,
			Detail:   fmt.Sprintf("worker %.0fm from site, geofence radius %.0fm", distance, radius),
			Distance: distance,
		}}
	default:
		return nil
	}
}

// severestFlag returns the first high or critical flag, preferring critical.
func severestFlag(flags []models.FraudFlag) (models.FraudFlag, bool) {
	var high *models.FraudFlag
	for i := range flags {
		switch flags[i].Severity {
		case models.FlagSeverityCritical:
			return flags[i], true
		case models.FlagSeverityHigh:
			if high == nil {
				high = &flags[i]
			}
		}
	}
	if high != nil {
		return *high, true
	}
	return models.FraudFlag{}, false
}
