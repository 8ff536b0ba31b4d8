package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	testutil "github.com/trezcool/mahudhurio/tests"
)

// sweepService wraps a real Service to observe and interfere with the
// sweep's Expire/Reconcile calls.
type sweepService struct {
	attendance.Service

	beforeExpire map[string]func() // sessionID -> hook, runs before delegating
	expireErrs   map[string]error  // sessionID -> injected failure
	reconciled   []string          // session IDs, in order
}

func (s *sweepService) Expire(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	if hook, ok := s.beforeExpire[session.ID]; ok {
		hook()
	}
	if err, ok := s.expireErrs[session.ID]; ok {
		return attendance.Session{}, err
	}
	return s.Service.Expire(ctx, session)
}

func (s *sweepService) Reconcile(ctx context.Context, session attendance.Session) (int, error) {
	s.reconciled = append(s.reconciled, session.ID)
	return s.Service.Reconcile(ctx, session)
}

func Test_sweeper_Tick(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)

	t.Run("completes and reconciles overdue sessions", func(t *testing.T) {
		svc, db, _ := testutil.NewService(t)
		ctx := context.Background()
		db.SeedEnrollment("math-101", "std-a")

		overdue := testutil.CreateSession(t, svc, "math-101", yesterday, "10:00", "11:00", attendance.Ongoing)
		current := testutil.CreateSession(t, svc, "math-101", tomorrow, "10:00", "11:00", attendance.Ongoing)
		noEnd := testutil.CreateSession(t, svc, "math-101", yesterday, "10:00", "", attendance.Ongoing)

		wrapped := &sweepService{Service: svc}
		attendance.NewSweeper(wrapped, attendance.LoggerMock{}, time.Minute).Tick(ctx)

		got, err := svc.GetByID(ctx, overdue.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Status != attendance.Completed {
			t.Errorf("overdue session status = %v, want %v", got.Status, attendance.Completed)
		}
		if rec, ok := got.Attendance["std-a"]; !ok || rec.Status != attendance.Absent {
			t.Errorf("overdue session was not reconciled: %+v", got.Attendance)
		}

		for _, id := range []string{current.ID, noEnd.ID} {
			got, err = svc.GetByID(ctx, id)
			if err != nil {
				t.Fatalf("GetByID() failed: %v", err)
			}
			if got.Status != attendance.Ongoing {
				t.Errorf("session %s status = %v, want %v", id, got.Status, attendance.Ongoing)
			}
		}
		if len(wrapped.reconciled) != 1 || wrapped.reconciled[0] != overdue.ID {
			t.Errorf("reconciled = %v, want [%s]", wrapped.reconciled, overdue.ID)
		}
	})

	t.Run("loses race to interactive end without double reconcile", func(t *testing.T) {
		svc, db, _ := testutil.NewService(t)
		ctx := context.Background()
		db.SeedEnrollment("math-101", "std-a")

		overdue := testutil.CreateSession(t, svc, "math-101", yesterday, "10:00", "11:00", attendance.Ongoing)

		wrapped := &sweepService{
			Service: svc,
			beforeExpire: map[string]func(){
				overdue.ID: func() {
					// staff ends the session between the sweep's query and its expire
					if _, err := svc.End(ctx, overdue.ID, time.Time{}); err != nil {
						t.Fatalf("End() failed: %v", err)
					}
				},
			},
		}
		attendance.NewSweeper(wrapped, attendance.LoggerMock{}, time.Minute).Tick(ctx)

		if len(wrapped.reconciled) != 0 {
			t.Errorf("sweep reconciled %v after losing the race, want none", wrapped.reconciled)
		}
		got, err := svc.GetByID(ctx, overdue.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Status != attendance.Completed {
			t.Errorf("session status = %v, want %v", got.Status, attendance.Completed)
		}
	})

	t.Run("a failing session does not abort the rest", func(t *testing.T) {
		svc, db, _ := testutil.NewService(t)
		ctx := context.Background()
		db.SeedEnrollment("math-101", "std-a")

		bad := testutil.CreateSession(t, svc, "math-101", yesterday, "08:00", "09:00", attendance.Ongoing)
		good := testutil.CreateSession(t, svc, "math-101", yesterday, "10:00", "11:00", attendance.Ongoing)

		wrapped := &sweepService{
			Service:    svc,
			expireErrs: map[string]error{bad.ID: errors.New("storage hiccup")},
		}
		attendance.NewSweeper(wrapped, attendance.LoggerMock{}, time.Minute).Tick(ctx)

		got, err := svc.GetByID(ctx, good.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Status != attendance.Completed {
			t.Errorf("healthy session status = %v, want %v", got.Status, attendance.Completed)
		}

		got, err = svc.GetByID(ctx, bad.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Status != attendance.Ongoing {
			t.Errorf("failing session status = %v, want %v (left for the next tick)", got.Status, attendance.Ongoing)
		}
	})
}

func Test_sweeper_Run_stopsOnCancel(t *testing.T) {
	svc, _, _ := testutil.NewService(t)
	sweeper := attendance.NewSweeper(svc, attendance.LoggerMock{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on context cancellation")
	}
}
