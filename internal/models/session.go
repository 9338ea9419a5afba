// Package models defines the persistent domain types of the attendance
// verification engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Work session lifecycle states.
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusOngoing   = "ongoing"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// WorkSession corresponds to the work_sessions table. One row per scheduled
// labor shift at a site, with its geofence and verification policy.
type WorkSession struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Site geofence
	SiteLatitude    float64 `gorm:"not null" json:"site_latitude"`
	SiteLongitude   float64 `gorm:"not null" json:"site_longitude"`
	GeofenceRadiusM float64 `gorm:"not null" json:"geofence_radius_m"`
	SiteAddress     string  `gorm:"type:varchar(512)" json:"site_address"`

	// Shift window. Date is the calendar day the shift belongs to.
	Date       string     `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime  time.Time  `gorm:"not null" json:"start_time"`
	EndTime    time.Time  `gorm:"not null" json:"end_time"`
	BreakStart *time.Time `json:"break_start,omitempty"`
	BreakEnd   *time.Time `json:"break_end,omitempty"`

	// AssignedWorkerIDs holds a JSON array of worker identifiers.
	AssignedWorkerIDs datatypes.JSON `gorm:"type:json" json:"assigned_worker_ids"`

	// Verification policy
	MinIntervalMinutes int `gorm:"not null;default:15" json:"min_interval_minutes"`
	MaxIntervalMinutes int `gorm:"not null;default:45" json:"max_interval_minutes"`
	MinVerifications   int `gorm:"not null;default:4" json:"min_verifications"`

	// BaseDailyWage of 0 means "use the configured default".
	BaseDailyWage float64 `gorm:"default:0" json:"base_daily_wage"`

	Status    string    `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (WorkSession) TableName() string {
	return "work_sessions"
}

// Workers decodes the assigned worker id list.
func (s *WorkSession) Workers() ([]string, error) {
	if len(s.AssignedWorkerIDs) == 0 {
		return nil, nil
	}
	var workers []string
	if err := json.Unmarshal(s.AssignedWorkerIDs, &workers); err != nil {
		return nil, fmt.Errorf("failed to decode assigned worker ids: %w", err)
	}
	return workers, nil
}

// SetWorkers encodes the assigned worker id list.
func (s *WorkSession) SetWorkers(workers []string) error {
	data, err := json.Marshal(workers)
	if err != nil {
		return fmt.Errorf("failed to encode assigned worker ids: %w", err)
	}
	s.AssignedWorkerIDs = data
	return nil
}

// Validate enforces the structural invariants of a work session.
func (s *WorkSession) Validate() error {
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}
	if s.GeofenceRadiusM <= 0 {
		return fmt.Errorf("geofence radius must be positive")
	}
	if s.SiteLatitude < -90 || s.SiteLatitude > 90 {
		return fmt.Errorf("site latitude out of range")
	}
	if s.SiteLongitude < -180 || s.SiteLongitude > 180 {
		return fmt.Errorf("site longitude out of range")
	}
	if s.MinIntervalMinutes < 1 {
		return fmt.Errorf("minimum verification interval must be at least 1 minute")
	}
	if s.MinIntervalMinutes > s.MaxIntervalMinutes {
		return fmt.Errorf("minimum verification interval cannot exceed maximum")
	}
	if s.MinVerifications < 1 {
		return fmt.Errorf("minimum verification count must be at least 1")
	}
	if (s.BreakStart == nil) != (s.BreakEnd == nil) {
		return fmt.Errorf("break start and end must be set together")
	}
	if s.BreakStart != nil && !s.BreakEnd.After(*s.BreakStart) {
		return fmt.Errorf("break end must be after break start")
	}
	if s.BaseDailyWage < 0 {
		return fmt.Errorf("base daily wage cannot be negative")
	}
	return nil
}

// IsTerminal reports whether the session can no longer transition.
func (s *WorkSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}
