package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAttendance(t *testing.T) {
	tests := []struct {
		in   string
		want Attendance
		ok   bool
	}{
		{"", AttendancePending, true},
		{"pending", AttendancePending, true},
		{"yes", AttendanceYes, true},
		{"no", AttendanceNo, true},
		{"maybe", AttendancePending, false},
		{"YES", AttendancePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAttendance(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	live := Session{ExpiresAt: now.Add(time.Minute)}
	dead := Session{ExpiresAt: now.Add(-time.Minute)}

	assert.False(t, live.Expired(now))
	assert.True(t, dead.Expired(now))
}
