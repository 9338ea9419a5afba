package attendance

import (
	"math"
	"time"

	"shramsetu/internal/models"
)

// Work percentage is a weighted blend of two monotonic signals: the share of
// scheduled verifications that passed, and the share of observed location
// points (check-in, each verification, check-out) inside the geofence. When
// no verification was recorded the presence term carries the full weight.
const (
	verificationRateWeight = 0.6
	presenceRateWeight     = 0.4
)

// Fraud score increments per flag severity, capped at 100. A check-in
// outside the geofence contributes its own fixed increment.
const (
	fraudIncrementMedium         = 10
	fraudIncrementHigh           = 25
	fraudIncrementCritical       = 40
	fraudIncrementCheckinOutside = 10
	fraudScoreCap                = 100
)

// A record needs manual review at or above this score, or on any critical
// flag regardless of score.
const manualReviewScoreThreshold = 70

// Day classification and wage deduction policy. High-risk records forfeit a
// quarter of the computed wage, critical-risk records half, withheld pending
// official review.
const (
	halfDayBelowPercent   = 50.0
	fullDayFromPercent    = 90.0
	deductionRateHigh     = 0.25
	deductionRateCritical = 0.50
)

// breakOverlap returns how much of [from, to] falls inside the session's
// break window.
func breakOverlap(session *models.WorkSession, from, to time.Time) time.Duration {
	if session.BreakStart == nil || session.BreakEnd == nil {
		return 0
	}
	start := maxTime(from, *session.BreakStart)
	end := minTime(to, *session.BreakEnd)
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// computeSummary fills the summary fields of a record at check-out time.
// Outcomes must already be in scheduled-instant order.
func computeSummary(record *models.AttendanceRecord, session *models.WorkSession, outcomes []models.VerificationOutcome, checkoutAt time.Time, checkoutWithin bool) {
	worked := checkoutAt.Sub(record.CheckinAt) - breakOverlap(session, record.CheckinAt, checkoutAt)
	if worked < 0 {
		worked = 0
	}
	expected := session.EndTime.Sub(session.StartTime) - breakOverlap(session, session.StartTime, session.EndTime)

	record.TotalWorkHours = round2(worked.Hours())
	record.ExpectedWorkHours = round2(expected.Hours())

	record.TotalVerifications = len(outcomes)
	for _, o := range outcomes {
		if o.Verified {
			record.SuccessfulVerifications++
		}
	}

	presencePoints := 2 + len(outcomes)
	presenceHits := 0
	if record.CheckinWithinGeofence {
		presenceHits++
	}
	if checkoutWithin {
		presenceHits++
	}
	for _, o := range outcomes {
		if o.WithinGeofence {
			presenceHits++
		}
	}
	presenceRate := 100 * float64(presenceHits) / float64(presencePoints)

	if record.TotalVerifications == 0 {
		record.VerificationSuccessRate = 0
		record.WorkPercentage = round2(clamp(presenceRate, 0, 100))
	} else {
		record.VerificationSuccessRate = round2(100 * float64(record.SuccessfulVerifications) / float64(record.TotalVerifications))
		record.WorkPercentage = round2(clamp(
			verificationRateWeight*record.VerificationSuccessRate+presenceRateWeight*presenceRate, 0, 100))
	}

	record.HalfDay = record.WorkPercentage < halfDayBelowPercent
	record.FullDay = record.WorkPercentage >= fullDayFromPercent
}

// computeFraud aggregates fraud flags across the check-in and every recorded
// verification into the record's score, level, flag list, and review marker.
func computeFraud(record *models.AttendanceRecord, outcomes []models.VerificationOutcome) error {
	var flags []models.FraudFlag
	if !record.CheckinWithinGeofence {
		flags = append(flags, models.FraudFlag{
			Type:     models.FlagCheckinOutsideSite,
			Severity: models.FlagSeverityMedium,
			Detail:   "check-in recorded outside the site geofence",
			Distance: record.CheckinDistanceM,
		})
	}
	for i := range outcomes {
		outcomeFlags, err := outcomes[i].Flags()
		if err != nil {
			return err
		}
		flags = append(flags, outcomeFlags...)
	}

	score := 0
	critical := false
	if !record.CheckinWithinGeofence {
		score += fraudIncrementCheckinOutside
	}
	for _, f := range flags {
		switch f.Severity {
		case models.FlagSeverityMedium:
			score += fraudIncrementMedium
		case models.FlagSeverityHigh:
			score += fraudIncrementHigh
		case models.FlagSeverityCritical:
			score += fraudIncrementCritical
			critical = true
		}
	}
	if score > fraudScoreCap {
		score = fraudScoreCap
	}

	record.RiskScore = score
	record.RiskLevel = models.RiskLevelForScore(score)
	record.RequiresManualReview = score >= manualReviewScoreThreshold || critical
	return record.SetFlags(flags)
}

// computeWage derives the wage figures from the finalized summary and risk
// level. The final wage never exceeds base x workPercentage/100 and never
// goes negative.
func computeWage(record *models.AttendanceRecord, baseDailyWage float64) {
	record.BaseDailyWage = baseDailyWage
	record.ComputedWage = round2(baseDailyWage * record.WorkPercentage / 100)

	switch record.RiskLevel {
	case models.RiskLevelHigh:
		record.Deductions = round2(record.ComputedWage * deductionRateHigh)
	case models.RiskLevelCritical:
		record.Deductions = round2(record.ComputedWage * deductionRateCritical)
	default:
		record.Deductions = 0
	}

	final := round2(record.ComputedWage - record.Deductions)
	if final < 0 {
		final = 0
	}
	record.FinalWage = final
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
