package models

import "time"

// Guest represents a wedding guest
type Guest struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Slug       string     `json:"slug"`
	PlusOne    string     `json:"plus_one,omitempty"`
	Attending  Attendance `json:"attending"`
	InviteSent bool       `json:"invite_sent"`
	Messages   []string   `json:"messages,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Attendance represents the attendance confirmation status
type Attendance string

const (
	AttendancePending Attendance = "pending"
	AttendanceYes     Attendance = "yes"
	AttendanceNo      Attendance = "no"
)

// ParseAttendance maps an RSVP response string to an Attendance value.
// The empty string means the guest has not responded yet.
func ParseAttendance(s string) (Attendance, bool) {
	switch s {
	case "", string(AttendancePending):
		return AttendancePending, true
	case string(AttendanceYes):
		return AttendanceYes, true
	case string(AttendanceNo):
		return AttendanceNo, true
	}
	return AttendancePending, false
}
