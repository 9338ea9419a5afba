package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSession() *WorkSession {
	start := time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC)
	s := &WorkSession{
		SiteLatitude:       28.6139,
		SiteLongitude:      77.2090,
		GeofenceRadiusM:    100,
		Date:               "2025-07-14",
		StartTime:          start,
		EndTime:            start.Add(9 * time.Hour),
		MinIntervalMinutes: 15,
		MaxIntervalMinutes: 45,
		MinVerifications:   4,
		Status:             SessionStatusScheduled,
	}
	_ = s.SetWorkers([]string{"worker-1"})
	return s
}

func TestWorkSession_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*WorkSession)
		wantErr bool
	}{
		{"valid", func(s *WorkSession) {}, false},
		{"end before start", func(s *WorkSession) { s.EndTime = s.StartTime.Add(-time.Hour) }, true},
		{"end equals start", func(s *WorkSession) { s.EndTime = s.StartTime }, true},
		{"zero radius", func(s *WorkSession) { s.GeofenceRadiusM = 0 }, true},
		{"negative radius", func(s *WorkSession) { s.GeofenceRadiusM = -5 }, true},
		{"latitude out of range", func(s *WorkSession) { s.SiteLatitude = 95 }, true},
		{"longitude out of range", func(s *WorkSession) { s.SiteLongitude = -181 }, true},
		{"zero min interval", func(s *WorkSession) { s.MinIntervalMinutes = 0 }, true},
		{"min above max interval", func(s *WorkSession) { s.MinIntervalMinutes = 60 }, true},
		{"zero min verifications", func(s *WorkSession) { s.MinVerifications = 0 }, true},
		{"negative wage", func(s *WorkSession) { s.BaseDailyWage = -1 }, true},
		{"break start without end", func(s *WorkSession) {
			bs := s.StartTime.Add(4 * time.Hour)
			s.BreakStart = &bs
		}, true},
		{"break end before break start", func(s *WorkSession) {
			bs := s.StartTime.Add(4 * time.Hour)
			be := bs.Add(-time.Minute)
			s.BreakStart, s.BreakEnd = &bs, &be
		}, true},
		{"valid break", func(s *WorkSession) {
			bs := s.StartTime.Add(4 * time.Hour)
			be := bs.Add(time.Hour)
			s.BreakStart, s.BreakEnd = &bs, &be
		}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSession()
			tt.modify(s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkSession_WorkersRoundTrip(t *testing.T) {
	t.Parallel()

	s := validSession()
	require.NoError(t, s.SetWorkers([]string{"w1", "w2", "w3"}))
	workers, err := s.Workers()
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2", "w3"}, workers)
}

func TestWorkSession_WorkersEmpty(t *testing.T) {
	t.Parallel()

	s := &WorkSession{}
	workers, err := s.Workers()
	require.NoError(t, err)
	assert.Nil(t, workers)
}

func TestWorkSession_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   string
		terminal bool
	}{
		{SessionStatusScheduled, false},
		{SessionStatusOngoing, false},
		{SessionStatusCompleted, true},
		{SessionStatusCancelled, true},
	}
	for _, tt := range tests {
		s := &WorkSession{Status: tt.status}
		assert.Equal(t, tt.terminal, s.IsTerminal(), "status %s", tt.status)
	}
}

func TestAttendanceRecord_FlagsRoundTrip(t *testing.T) {
	t.Parallel()

	r := &AttendanceRecord{}
	flags := []FraudFlag{
		{Type: FlagOutsideGeofence, Severity: FlagSeverityHigh, Distance: 250},
		{Type: FlagCheckinOutsideSite, Severity: FlagSeverityMedium, Distance: 120},
	}
	require.NoError(t, r.SetFlags(flags))

	got, err := r.Flags()
	require.NoError(t, err)
	assert.Equal(t, flags, got)
}

func TestAttendanceRecord_FlagsEmpty(t *testing.T) {
	t.Parallel()

	r := &AttendanceRecord{}
	got, err := r.Flags()
	require.NoError(t, err)
	assert.Nil(t, got)
}
