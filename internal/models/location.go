package models

import (
	"fmt"
	"time"
)

// LocationSample is the most recent device location reported for a worker.
// It lives in the shared location cache, not in the database: each new report
// overwrites the previous one, most-recent-wins, with no per-session
// partitioning.
type LocationSample struct {
	WorkerID  string    `json:"worker_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the sample for structural well-formedness. This is the
// only validation a location report receives; semantic checks (staleness,
// geofence membership) happen at verification time.
func (s *LocationSample) Validate() error {
	if s.WorkerID == "" {
		return fmt.Errorf("worker id is required")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	if s.Accuracy < 0 {
		return fmt.Errorf("accuracy cannot be negative")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// Age returns how old the sample is relative to now.
func (s *LocationSample) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
