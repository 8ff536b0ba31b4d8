package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sql.DB) *sessionRepository {
	return &sessionRepository{db: sqlx.NewDb(db, "postgres")}
}

type sessionRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	Date      time.Time `db:"date"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
	Status    string    `db:"status"`
	Notes     string    `db:"notes"`
	CreatedBy string    `db:"created_by"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type recordRow struct {
	ID         string     `db:"id"`
	SessionID  string     `db:"session_id"`
	StudentID  string     `db:"student_id"`
	Status     string     `db:"status"`
	Method     string     `db:"method"`
	RecordedAt time.Time  `db:"recorded_at"`
	JoinedAt   *time.Time `db:"joined_at"`
	LeftAt     *time.Time `db:"left_at"`
}

func (row sessionRow) domain() attendance.Session {
	return attendance.Session{
		ID:         row.ID,
		ClassID:    row.ClassID,
		Date:       row.Date,
		StartTime:  row.StartTime,
		EndTime:    row.EndTime,
		Status:     attendance.SessionStatus(row.Status),
		Attendance: make(map[string]attendance.Record),
		Notes:      row.Notes,
		CreatedBy:  row.CreatedBy,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func (row recordRow) domain() attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		Status:     attendance.Status(row.Status),
		Method:     attendance.Method(row.Method),
		RecordedAt: row.RecordedAt,
		JoinedAt:   row.JoinedAt,
		LeftAt:     row.LeftAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateSession(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	session.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO session (id, class_id, date, start_time, end_time, status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, session.ClassID, session.Date, session.StartTime, session.EndTime,
		session.Status, session.Notes, session.CreatedBy, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting session")
	}
	if session.Attendance == nil {
		session.Attendance = make(map[string]attendance.Record)
	}
	return session, nil
}

func (repo sessionRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id); err != nil {
		return attendance.Session{}, trapNoRowsErr(err, "getting session")
	}
	session := row.domain()
	if err := repo.loadRecords(ctx, map[string]*attendance.Session{session.ID: &session}); err != nil {
		return attendance.Session{}, err
	}
	return session, nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	query := `SELECT * FROM session`
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, "status = ?")
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conds = append(conds, "class_id = ?")
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		conds = append(conds, "date = ?")
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY date DESC, start_time DESC"
	query = repo.db.Rebind(query)

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	sessions := make([]attendance.Session, 0, len(rows))
	byID := make(map[string]*attendance.Session, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.domain())
		byID[row.ID] = &sessions[len(sessions)-1]
	}
	if err := repo.loadRecords(ctx, byID); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (repo sessionRepository) QueryOngoingSessions(ctx context.Context) ([]attendance.Session, error) {
	return repo.QuerySessions(ctx, attendance.QueryFilter{Status: attendance.Ongoing})
}

func (repo sessionRepository) TransitionSession(
	ctx context.Context,
	id string,
	from, to attendance.SessionStatus,
	endTime string,
) (attendance.Session, error) {
	// single guarded UPDATE: the WHERE on current status is the check-and-set
	// that lets at most one of two racing callers perform the transition
	res, err := repo.db.ExecContext(ctx, `
		UPDATE session
		SET status     = $1,
		    end_time   = COALESCE(NULLIF($2, ''), end_time),
		    version    = version + 1,
		    updated_at = $3
		WHERE id = $4 AND status = $5`,
		to, endTime, time.Now().UTC(), id, from,
	)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "transitioning session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "transitioning session")
	}
	if n == 0 {
		// current status did not match; distinguish a missing session
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT true FROM session WHERE id = $1`, id); err != nil {
			return attendance.Session{}, trapNoRowsErr(err, "checking session")
		}
		return attendance.Session{}, attendance.ErrInvalidTransition
	}
	return repo.GetSessionByID(ctx, id)
}

func (repo sessionRepository) UpsertRecord(ctx context.Context, sessionID string, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	// later writes win over earlier ones; the unique pair serializes writers
	if err := repo.db.QueryRowContext(ctx, `
		INSERT INTO attendance_record (id, session_id, student_id, status, method, recorded_at, joined_at, left_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, student_id) DO UPDATE
		SET status = EXCLUDED.status,
		    method = EXCLUDED.method,
		    recorded_at = EXCLUDED.recorded_at,
		    joined_at = EXCLUDED.joined_at,
		    left_at = EXCLUDED.left_at
		RETURNING id`,
		rec.ID, sessionID, rec.StudentID, rec.Status, rec.Method, rec.RecordedAt, rec.JoinedAt, rec.LeftAt,
	).Scan(&rec.ID); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return rec, nil
}

func (repo sessionRepository) InsertRecordIfAbsent(ctx context.Context, sessionID string, rec attendance.Record) (bool, error) {
	rec.ID = uuid.New().String()
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_record (id, session_id, student_id, status, method, recorded_at, joined_at, left_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, student_id) DO NOTHING`,
		rec.ID, sessionID, rec.StudentID, rec.Status, rec.Method, rec.RecordedAt, rec.JoinedAt, rec.LeftAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "appending attendance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "appending attendance record")
	}
	return n > 0, nil
}

func (repo sessionRepository) loadRecords(ctx context.Context, sessions map[string]*attendance.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}

	query, args, err := sqlx.In(`SELECT * FROM attendance_record WHERE session_id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "loading attendance records")
	}
	var rows []recordRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "loading attendance records")
	}

	for _, row := range rows {
		if session, ok := sessions[row.SessionID]; ok {
			session.Attendance[row.StudentID] = row.domain()
		}
	}
	return nil
}
