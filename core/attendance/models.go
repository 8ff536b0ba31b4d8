package attendance

import (
	"fmt"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// SessionStatus is the lifecycle state of a Session.
// Transitions are monotonic: Scheduled → Ongoing → {Completed, Cancelled}.
type SessionStatus string

const (
	Scheduled SessionStatus = "scheduled"
	Ongoing   SessionStatus = "ongoing"
	Completed SessionStatus = "completed"
	Cancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case Scheduled, Ongoing, Completed, Cancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == Completed || s == Cancelled
}

// Status is the attendance outcome recorded for a student.
type Status string

const (
	Present Status = "present"
	Late    Status = "late"
	Absent  Status = "absent"
)

func (s Status) Valid() bool {
	switch s {
	case Present, Late, Absent:
		return true
	}
	return false
}

// Method is how an attendance record was captured: a closed set of variants,
// not a free-form string, so invalid values die at the boundary.
type Method string

const (
	Rfid   Method = "rfid"
	Manual Method = "manual"
	Gate   Method = "gate"
	System Method = "system"
)

func (m Method) Valid() bool {
	switch m {
	case Rfid, Manual, Gate, System:
		return true
	}
	return false
}

// Record is one student's attendance entry in a session.
// A session holds at most one Record per student.
type Record struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	Status     Status     `json:"status"`
	Method     Method     `json:"method"`
	RecordedAt time.Time  `json:"recorded_at"` // UTC
	JoinedAt   *time.Time `json:"joined_at,omitempty"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
}

// Session is one dated/timed occurrence of a recurring class.
// The class roster is NOT frozen into the session at creation; it is fetched
// fresh from the roster provider whenever membership matters.
type Session struct {
	ID         string            `json:"id"`
	ClassID    string            `json:"class_id"`
	Date       time.Time         `json:"date"`       // date component only
	StartTime  string            `json:"start_time"` // "HH:MM"
	EndTime    string            `json:"end_time,omitempty"`
	Status     SessionStatus     `json:"status"`
	Attendance map[string]Record `json:"attendance"` // studentID -> Record
	Notes      string            `json:"notes,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`
	Version    int               `json:"-"` // optimistic locking, storage-owned
	CreatedAt  time.Time         `json:"created_at"` // UTC
	UpdatedAt  time.Time         `json:"updated_at"` // UTC
}

// EndsAt combines Date and EndTime into a wall-clock instant.
// ok is false when the session has no end time.
func (s *Session) EndsAt() (t time.Time, ok bool) {
	if s.EndTime == "" {
		return time.Time{}, false
	}
	mins, err := ParseTimeOfDay(s.EndTime)
	if err != nil {
		return time.Time{}, false
	}
	d := s.Date
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, d.Location()), true
}

// Overdue reports whether the session is still Ongoing past its end time.
func (s *Session) Overdue(now time.Time) bool {
	if s.Status != Ongoing {
		return false
	}
	endsAt, ok := s.EndsAt()
	return ok && now.After(endsAt)
}

// Attended returns the set of studentIDs that already have a record.
func (s *Session) Attended() map[string]struct{} {
	attended := make(map[string]struct{}, len(s.Attendance))
	for studentID := range s.Attendance {
		attended[studentID] = struct{}{}
	}
	return attended
}

// ParseTimeOfDay converts a 24h "HH:MM" string to minutes-of-day.
func ParseTimeOfDay(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %v", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return hh*60 + mm, nil
}

// MinutesOfDay is t's offset from its own midnight, in minutes.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// NewSession contains information needed to schedule a new Session.
type NewSession struct {
	ClassID   string    `json:"class_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	StartTime string    `json:"start_time" validate:"required,timeofday"`
	EndTime   string    `json:"end_time" validate:"omitempty,timeofday"`
	Notes     string    `json:"notes"`
	CreatedBy string    `json:"created_by"`
}

func (ns *NewSession) Validate() error {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	return core.Validate.Struct(ns)
}

// NewRecord defines a manual or gate attendance write for a student.
type NewRecord struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=present late absent"`
	Method    Method `json:"method" validate:"required,oneof=rfid manual gate system"`
}

func (nr *NewRecord) Validate() error {
	nr.StudentID = core.CleanString(nr.StudentID)
	return core.Validate.Struct(nr)
}

// QueryFilter narrows session queries. Zero values are ignored.
type QueryFilter struct {
	Status  SessionStatus `query:"status"`
	ClassID string        `query:"class"`
	Date    time.Time     `query:"date"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.ClassID == "" && qf.Date.IsZero()
}
