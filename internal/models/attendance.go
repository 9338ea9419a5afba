package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Approval workflow states for an attendance record.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// AttendanceRecord corresponds to the attendance_records table. One row per
// (worker, session), created at check-in and finalized at check-out. The
// approval fields are mutated independently of finalization.
type AttendanceRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkerID  string `gorm:"type:varchar(255);not null;uniqueIndex:idx_worker_session" json:"worker_id"`
	SessionID uint   `gorm:"not null;uniqueIndex:idx_worker_session;index" json:"session_id"`

	// Check-in
	CheckinAt             time.Time      `gorm:"not null" json:"checkin_at"`
	CheckinLatitude       float64        `json:"checkin_latitude"`
	CheckinLongitude      float64        `json:"checkin_longitude"`
	CheckinAccuracy       float64        `json:"checkin_accuracy"`
	CheckinDeviceInfo     datatypes.JSON `gorm:"type:json" json:"checkin_device_info,omitempty"`
	CheckinWithinGeofence bool           `json:"checkin_within_geofence"`
	CheckinDistanceM      float64        `json:"checkin_distance_m"`

	// Check-out (nil until the worker checks out)
	CheckoutAt             *time.Time     `json:"checkout_at,omitempty"`
	CheckoutLatitude       float64        `json:"checkout_latitude"`
	CheckoutLongitude      float64        `json:"checkout_longitude"`
	CheckoutAccuracy       float64        `json:"checkout_accuracy"`
	CheckoutDeviceInfo     datatypes.JSON `gorm:"type:json" json:"checkout_device_info,omitempty"`
	CheckoutWithinGeofence bool           `json:"checkout_within_geofence"`
	CheckoutDistanceM      float64        `json:"checkout_distance_m"`

	// Summary, computed at check-out
	TotalWorkHours          float64 `json:"total_work_hours"`
	ExpectedWorkHours       float64 `json:"expected_work_hours"`
	WorkPercentage          float64 `json:"work_percentage"`
	TotalVerifications      int     `json:"total_verifications"`
	SuccessfulVerifications int     `json:"successful_verifications"`
	VerificationSuccessRate float64 `json:"verification_success_rate"`
	FullDay                 bool    `json:"full_day"`
	HalfDay                 bool    `json:"half_day"`

	// Fraud analysis
	RiskScore            int            `json:"risk_score"`
	RiskLevel            RiskLevel      `gorm:"type:varchar(10);default:'low'" json:"risk_level"`
	FraudFlags           datatypes.JSON `gorm:"type:json" json:"fraud_flags,omitempty"`
	RequiresManualReview bool           `json:"requires_manual_review"`

	// Wage calculation
	BaseDailyWage float64 `json:"base_daily_wage"`
	ComputedWage  float64 `json:"computed_wage"`
	Deductions    float64 `json:"deductions"`
	FinalWage     float64 `json:"final_wage"`

	// Approval workflow, driven by officials after finalization
	ApprovalStatus string     `gorm:"type:varchar(10);not null;default:'pending';index" json:"approval_status"`
	ApprovedBy     string     `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	ApprovalNotes  string     `gorm:"type:varchar(512)" json:"approval_notes,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`

	// Finalized flips at check-out; the record accepts no further
	// verification outcomes afterwards.
	Finalized bool `gorm:"default:false" json:"finalized"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Verifications []VerificationOutcome `gorm:"foreignKey:AttendanceRecordID" json:"verifications,omitempty"`
}

// TableName specifies the table name for GORM.
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Flags decodes the aggregated fraud flag list.
func (r *AttendanceRecord) Flags() ([]FraudFlag, error) {
	if len(r.FraudFlags) == 0 {
		return nil, nil
	}
	var flags []FraudFlag
	if err := json.Unmarshal(r.FraudFlags, &flags); err != nil {
		return nil, fmt.Errorf("failed to decode fraud flags: %w", err)
	}
	return flags, nil
}

// SetFlags encodes the aggregated fraud flag list.
func (r *AttendanceRecord) SetFlags(flags []FraudFlag) error {
	data, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to encode fraud flags: %w", err)
	}
	r.FraudFlags = data
	return nil
}

// VerificationOutcome corresponds to the verification_outcomes table. One
// immutable row per executed location check. Rows are always read in
// scheduled_at order so outcomes appear in scheduled-instant order even when
// wall-clock firing jittered.
type VerificationOutcome struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	VerificationID     string `gorm:"type:varchar(36);not null;unique" json:"verification_id"`
	AttendanceRecordID uint   `gorm:"not null;index:idx_record_scheduled" json:"attendance_record_id"`
	WorkerID           string `gorm:"type:varchar(255);not null" json:"worker_id"`
	SessionID          uint   `gorm:"not null;index" json:"session_id"`

	ScheduledAt     time.Time `gorm:"not null;index:idx_record_scheduled" json:"scheduled_at"`
	ActualAt        time.Time `gorm:"not null" json:"actual_at"`
	TimeDiffSeconds int64     `json:"time_diff_seconds"`

	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Accuracy       float64 `json:"accuracy"`
	WithinGeofence bool    `json:"within_geofence"`
	DistanceM      float64 `json:"distance_m"`
	Verified       bool    `json:"verified"`

	FraudFlags datatypes.JSON `gorm:"type:json" json:"fraud_flags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (VerificationOutcome) TableName() string {
	return "verification_outcomes"
}

// Flags decodes the outcome's fraud flag list.
func (v *VerificationOutcome) Flags() ([]FraudFlag, error) {
	if len(v.FraudFlags) == 0 {
		return nil, nil
	}
	var flags []FraudFlag
	if err := json.Unmarshal(v.FraudFlags, &flags); err != nil {
		return nil, fmt.Errorf("failed to decode fraud flags: %w", err)
	}
	return flags, nil
}

// SetFlags encodes the outcome's fraud flag list.
func (v *VerificationOutcome) SetFlags(flags []FraudFlag) error {
	data, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to encode fraud flags: %w", err)
	}
	v.FraudFlags = data
	return nil
}
