package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

// NewConfig returns a Config suitable for tests: no env lookups, engine knobs
// at their documented defaults.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		Attendance: core.AttendanceConfig{
			LateThreshold:    attendance.DefaultLateThreshold,
			ScanGapThreshold: attendance.DefaultScanGapThreshold,
			SweepInterval:    attendance.DefaultSweepInterval,
		},
	}
}

// NewService wires an attendance Service over the in-memory storage.
func NewService(t *testing.T) (attendance.Service, *inmemdb.DB, *attendance.NotificationServiceMock) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}
	notifSvc := &attendance.NotificationServiceMock{}
	svc := attendance.NewService(
		inmemdb.NewSessionRepository(db),
		inmemdb.NewRosterProvider(db),
		inmemdb.NewCardRegistry(db),
		notifSvc,
		attendance.LoggerMock{},
		NewConfig(),
	)
	return svc, db, notifSvc
}

// CreateSession schedules a session and walks it to the requested status.
func CreateSession(
	t *testing.T,
	svc attendance.Service,
	classID string,
	date time.Time,
	startTime, endTime string,
	status attendance.SessionStatus,
) attendance.Session {
	ctx := context.Background()
	session, err := svc.Schedule(ctx, attendance.NewSession{
		ClassID:   classID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	switch status {
	case attendance.Scheduled:
	case attendance.Ongoing:
		if session, err = svc.Start(ctx, session.ID); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	case attendance.Completed:
		if session, err = svc.Start(ctx, session.ID); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
		if session, err = svc.End(ctx, session.ID, time.Time{}); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	case attendance.Cancelled:
		if session, err = svc.Cancel(ctx, session.ID); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	}
	return session
}
