package models

// RiskLevel buckets a fraud risk score. The set is closed: every score maps
// to exactly one level via RiskLevelForScore.
type RiskLevel string

// Risk level values, ordered by increasing severity.
const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Risk score bucket boundaries. Scores are clamped to [0, 100] before
// bucketing, so the mapping is total.
const (
	RiskScoreMediumThreshold   = 30
	RiskScoreHighThreshold     = 70
	RiskScoreCriticalThreshold = 90
)

// RiskLevelForScore maps a 0-100 fraud score to its risk level. The mapping
// is monotonic: a higher score never yields a lower level.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score < RiskScoreMediumThreshold:
		return RiskLevelLow
	case score < RiskScoreHighThreshold:
		return RiskLevelMedium
	case score < RiskScoreCriticalThreshold:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// Fraud flag severities.
const (
	FlagSeverityLow      = "low"
	FlagSeverityMedium   = "medium"
	FlagSeverityHigh     = "high"
	FlagSeverityCritical = "critical"
)

// Fraud flag types raised by the verification engine.
const (
	FlagOutsideGeofence    = "outside_geofence"
	FlagFarOutsideGeofence = "far_outside_geofence"
	FlagCheckinOutsideSite = "checkin_outside_geofence"
)

// FraudFlag is a severity-graded signal that a verification outcome suggests
// the worker was not genuinely present.
type FraudFlag struct {
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Detail   string  `json:"detail,omitempty"`
	Distance float64 `json:"distance_m,omitempty"`
}
