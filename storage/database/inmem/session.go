package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type sessionRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

// clone guards against callers mutating shared state through returned values.
func clone(session *attendance.Session) attendance.Session {
	out := *session
	out.Attendance = make(map[string]attendance.Record, len(session.Attendance))
	for studentID, rec := range session.Attendance {
		out.Attendance[studentID] = rec
	}
	return out
}

func (repo *sessionRepository) CreateSession(_ context.Context, session attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	session.ID = uuid.New().String()
	if session.Attendance == nil {
		session.Attendance = make(map[string]attendance.Record)
	}
	stored := clone(&session)
	repo.db.table[session.ID] = &stored
	return session, nil
}

func (repo *sessionRepository) GetSessionByID(_ context.Context, id string) (attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if session, ok := repo.db.table[id]; ok {
		return clone(session), nil
	}
	return attendance.Session{}, attendance.ErrNotFound
}

func (repo *sessionRepository) QuerySessions(_ context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]attendance.Session, 0, len(repo.db.table))
	for _, session := range repo.db.table {
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		if filter.ClassID != "" && session.ClassID != filter.ClassID {
			continue
		}
		if !filter.Date.IsZero() && !sameDate(session.Date, filter.Date) {
			continue
		}
		sessions = append(sessions, clone(session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.After(sessions[j].Date)
		}
		return sessions[i].StartTime > sessions[j].StartTime
	})
	return sessions, nil
}

func (repo *sessionRepository) QueryOngoingSessions(ctx context.Context) ([]attendance.Session, error) {
	return repo.QuerySessions(ctx, attendance.QueryFilter{Status: attendance.Ongoing})
}

func (repo *sessionRepository) TransitionSession(
	_ context.Context,
	id string,
	from, to attendance.SessionStatus,
	endTime string,
) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	session, ok := repo.db.table[id]
	if !ok {
		return attendance.Session{}, attendance.ErrNotFound
	}
	// check-and-set under the table lock
	if session.Status != from {
		return attendance.Session{}, attendance.ErrInvalidTransition
	}
	session.Status = to
	if endTime != "" {
		session.EndTime = endTime
	}
	session.Version++
	session.UpdatedAt = time.Now().UTC()
	return clone(session), nil
}

func (repo *sessionRepository) UpsertRecord(_ context.Context, sessionID string, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	session, ok := repo.db.table[sessionID]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	if existing, ok := session.Attendance[rec.StudentID]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = uuid.New().String()
	}
	session.Attendance[rec.StudentID] = rec
	session.UpdatedAt = time.Now().UTC()
	return rec, nil
}

func (repo *sessionRepository) InsertRecordIfAbsent(_ context.Context, sessionID string, rec attendance.Record) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	session, ok := repo.db.table[sessionID]
	if !ok {
		return false, attendance.ErrNotFound
	}
	if _, ok := session.Attendance[rec.StudentID]; ok {
		return false, nil
	}
	rec.ID = uuid.New().String()
	session.Attendance[rec.StudentID] = rec
	session.UpdatedAt = time.Now().UTC()
	return true, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
