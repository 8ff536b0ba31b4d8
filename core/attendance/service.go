package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound          = errors.New("session not found")
	ErrNotEnrolled       = errors.New("student is not enrolled in this class")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrCardNotRegistered = errors.New("card is not registered to any student")
	ErrNoOngoingSession  = errors.New("no ongoing session accepts this student")

	nowFunc = time.Now // for tests
)

type (
	// Repository persists sessions and their embedded attendance records.
	// A session plus its records is the unit of mutation; implementations must
	// serialize per-session updates.
	Repository interface {
		CreateSession(ctx context.Context, session Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		// QuerySessions applies AND operation on available QueryFilter fields.
		QuerySessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		QueryOngoingSessions(ctx context.Context) ([]Session, error)
		// TransitionSession is an atomic check-and-set: it moves the session
		// from `from` to `to` only if its current status is `from`, and fails
		// with ErrInvalidTransition otherwise. endTime (may be empty) is
		// recorded alongside a transition to Completed.
		TransitionSession(ctx context.Context, id string, from, to SessionStatus, endTime string) (Session, error)
		// UpsertRecord writes the student's record, replacing any existing one.
		UpsertRecord(ctx context.Context, sessionID string, rec Record) (Record, error)
		// InsertRecordIfAbsent appends the record only if the student has none
		// in this session; inserted reports whether a write happened.
		InsertRecordIfAbsent(ctx context.Context, sessionID string, rec Record) (inserted bool, err error)
	}

	// RosterProvider exposes current class enrollment, never a snapshot.
	RosterProvider interface {
		Roster(ctx context.Context, classID string) ([]string, error)
	}

	// Student is the identity a card resolves to.
	Student struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Contact string `json:"contact,omitempty"` // registered guardian channel; may be empty
	}

	// CardRegistry maps canonical card UIDs to students.
	CardRegistry interface {
		// Lookup fails with ErrCardNotRegistered on a miss.
		Lookup(ctx context.Context, canonicalUID string) (Student, error)
	}

	Service interface {
		Schedule(ctx context.Context, ns NewSession) (Session, error)
		GetByID(ctx context.Context, id string) (Session, error)
		Query(ctx context.Context, filter QueryFilter) ([]Session, error)

		Start(ctx context.Context, id string) (Session, error)
		End(ctx context.Context, id string, endTime time.Time) (Session, error)
		Cancel(ctx context.Context, id string) (Session, error)
		// Expire is End for the background sweep: same transition, but raced
		// against a concurrent interactive End it must lose gracefully.
		Expire(ctx context.Context, session Session) (Session, error)

		RecordAttendance(ctx context.Context, sessionID string, nr NewRecord) (Record, error)
		HandleScan(ctx context.Context, token ScanToken) (Session, Record, error)
		Reconcile(ctx context.Context, session Session) (appended int, err error)

		ClassReport(ctx context.Context, classID string) (ClassReport, error)
	}

	service struct {
		repo     Repository
		roster   RosterProvider
		registry CardRegistry
		notifSvc core.NotificationService
		logger   core.Logger
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	roster RosterProvider,
	registry CardRegistry,
	notifSvc core.NotificationService,
	logger core.Logger,
	conf *core.Config,
) *service {
	return &service{
		repo:     repo,
		roster:   roster,
		registry: registry,
		notifSvc: notifSvc,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *service) Schedule(ctx context.Context, ns NewSession) (Session, error) {
	now := nowFunc().UTC()
	session := Session{
		ClassID:    ns.ClassID,
		Date:       ns.Date,
		StartTime:  ns.StartTime,
		EndTime:    ns.EndTime,
		Status:     Scheduled,
		Attendance: make(map[string]Record),
		Notes:      ns.Notes,
		CreatedBy:  ns.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateSession(ctx, session)
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter)
}

func (svc *service) Start(ctx context.Context, id string) (Session, error) {
	return svc.repo.TransitionSession(ctx, id, Scheduled, Ongoing, "")
}

// End completes an Ongoing session and reconciles absences exactly once for
// the transition. A caller losing the race against the sweep's Expire gets
// ErrInvalidTransition and must not reconcile.
func (svc *service) End(ctx context.Context, id string, endTime time.Time) (Session, error) {
	var et string
	if !endTime.IsZero() {
		et = endTime.Format("15:04")
	}
	session, err := svc.repo.TransitionSession(ctx, id, Ongoing, Completed, et)
	if err != nil {
		return Session{}, err
	}
	if _, err = svc.Reconcile(ctx, session); err != nil {
		return session, err
	}
	return svc.repo.GetSessionByID(ctx, session.ID)
}

func (svc *service) Cancel(ctx context.Context, id string) (Session, error) {
	session, err := svc.repo.TransitionSession(ctx, id, Scheduled, Cancelled, "")
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrInvalidTransition) {
		return Session{}, err
	}
	// not Scheduled anymore; Ongoing sessions may be cancelled too
	return svc.repo.TransitionSession(ctx, id, Ongoing, Cancelled, "")
}

// Expire performs the sweep's Ongoing → Completed transition. The check-and-set
// in the repository guarantees at most one of a racing End/Expire pair wins.
func (svc *service) Expire(ctx context.Context, session Session) (Session, error) {
	return svc.repo.TransitionSession(ctx, session.ID, Ongoing, Completed, session.EndTime)
}

// RecordAttendance writes a student's record for this session.
// Upsert semantics: a later scan or manual correction always wins over an
// earlier record, so staff can override a misread.
func (svc *service) RecordAttendance(ctx context.Context, sessionID string, nr NewRecord) (Record, error) {
	session, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}

	enrolled, err := svc.isEnrolled(ctx, session.ClassID, nr.StudentID)
	if err != nil {
		return Record{}, err
	}
	if !enrolled {
		return Record{}, ErrNotEnrolled
	}

	now := nowFunc().UTC()
	rec := Record{
		StudentID:  nr.StudentID,
		Status:     nr.Status,
		Method:     nr.Method,
		RecordedAt: now,
		JoinedAt:   &now,
	}
	rec, err = svc.repo.UpsertRecord(ctx, session.ID, rec)
	if err != nil {
		return Record{}, err
	}

	if nr.Method == Rfid {
		svc.notify(session, rec, Student{ID: nr.StudentID})
	}
	return rec, nil
}

// HandleScan runs the full gate flow for one scan token: resolve the card,
// find the ongoing session the student belongs to, classify and record.
// A same-day repeat scan returns the existing record untouched, purely to
// avoid redundant notifications; the ledger itself never rejects duplicates.
func (svc *service) HandleScan(ctx context.Context, token ScanToken) (Session, Record, error) {
	uid := NormalizeUID(token.Raw)

	student, err := svc.registry.Lookup(ctx, uid)
	if err != nil {
		return Session{}, Record{}, err
	}

	sessions, err := svc.repo.QueryOngoingSessions(ctx)
	if err != nil {
		return Session{}, Record{}, err
	}

	for i := range sessions {
		session := sessions[i]

		// duplicate-scan guard
		if existing, ok := session.Attendance[student.ID]; ok {
			return session, existing, nil
		}

		enrolled, err := svc.isEnrolled(ctx, session.ClassID, student.ID)
		if err != nil {
			return Session{}, Record{}, err
		}
		if !enrolled {
			continue
		}

		now := token.At
		if now.IsZero() {
			now = nowFunc()
		}
		utc := now.UTC()
		rec := Record{
			StudentID:  student.ID,
			Status:     Classify(&session, now, svc.conf.Attendance.LateThreshold),
			Method:     Rfid,
			RecordedAt: utc,
			JoinedAt:   &utc,
		}
		rec, err = svc.repo.UpsertRecord(ctx, session.ID, rec)
		if err != nil {
			return Session{}, Record{}, err
		}

		svc.notify(session, rec, student)
		return session, rec, nil
	}
	return Session{}, Record{}, ErrNoOngoingSession
}

// Reconcile fills in Absent records for enrolled students with no entry, once
// a session is Completed. It never overwrites existing records, which makes it
// safe to invoke any number of times: after the first successful run the set
// difference is empty and nothing more is appended.
func (svc *service) Reconcile(ctx context.Context, session Session) (int, error) {
	if session.Status != Completed {
		return 0, ErrInvalidTransition
	}

	// the roster is read fresh; enrollment may have changed since scheduling
	roster, err := svc.roster.Roster(ctx, session.ClassID)
	if err != nil {
		return 0, err
	}

	attended := session.Attended()
	now := nowFunc().UTC()

	var appended int
	var notifications []core.Notification
	for _, studentID := range roster {
		if _, ok := attended[studentID]; ok {
			continue
		}
		rec := Record{
			StudentID:  studentID,
			Status:     Absent,
			Method:     System,
			RecordedAt: now,
		}
		inserted, err := svc.repo.InsertRecordIfAbsent(ctx, session.ID, rec)
		if err != nil {
			return appended, err
		}
		if !inserted {
			continue // raced with a concurrent write; theirs stands
		}
		appended++
		notifications = append(notifications, core.Notification{
			StudentID: studentID,
			SessionID: session.ID,
			ClassID:   session.ClassID,
			Status:    string(Absent),
			Timestamp: now,
		})
	}

	if appended > 0 {
		svc.logger.Info(fmt.Sprintf("session %s: appended %d absence record(s)", session.ID, appended))
	}
	if len(notifications) > 0 {
		svc.notifSvc.Send(notifications...)
	}
	return appended, nil
}

// ClassReport aggregates attendance outcomes per student across a class's
// completed sessions.
type ClassReport struct {
	ClassID       string                  `json:"class_id"`
	TotalSessions int                     `json:"total_sessions"`
	Students      map[string]ReportCounts `json:"students"`
}

type ReportCounts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

func (svc *service) ClassReport(ctx context.Context, classID string) (ClassReport, error) {
	sessions, err := svc.repo.QuerySessions(ctx, QueryFilter{ClassID: classID, Status: Completed})
	if err != nil {
		return ClassReport{}, err
	}

	report := ClassReport{
		ClassID:       classID,
		TotalSessions: len(sessions),
		Students:      make(map[string]ReportCounts),
	}
	for _, session := range sessions {
		for studentID, rec := range session.Attendance {
			counts := report.Students[studentID]
			switch rec.Status {
			case Present:
				counts.Present++
			case Late:
				counts.Late++
			case Absent:
				counts.Absent++
			}
			report.Students[studentID] = counts
		}
	}
	return report, nil
}

func (svc *service) isEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	roster, err := svc.roster.Roster(ctx, classID)
	if err != nil {
		return false, err
	}
	for _, id := range roster {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

// notify emits a best-effort notification for an attendance write. Delivery
// failure is the notification service's problem; it never reaches the ledger.
func (svc *service) notify(session Session, rec Record, student Student) {
	svc.notifSvc.Send(core.Notification{
		StudentID:   rec.StudentID,
		StudentName: student.Name,
		SessionID:   session.ID,
		ClassID:     session.ClassID,
		Status:      string(rec.Status),
		Timestamp:   rec.RecordedAt,
		Contact:     student.Contact,
	})
}
