package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type rosterProvider struct {
	db *sqlx.DB
}

var _ attendance.RosterProvider = (*rosterProvider)(nil)

func NewRosterProvider(db *sql.DB) *rosterProvider {
	return &rosterProvider{db: sqlx.NewDb(db, "postgres")}
}

// Roster returns current enrollment for the class, never a snapshot from
// scheduling time.
func (rp rosterProvider) Roster(ctx context.Context, classID string) ([]string, error) {
	var studentIDs []string
	err := rp.db.SelectContext(ctx, &studentIDs,
		`SELECT student_id FROM enrollment WHERE class_id = $1 ORDER BY student_id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching class roster")
	}
	return studentIDs, nil
}
