package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type cardRegistry struct {
	db *sqlx.DB
}

var _ attendance.CardRegistry = (*cardRegistry)(nil)

func NewCardRegistry(db *sql.DB) *cardRegistry {
	return &cardRegistry{db: sqlx.NewDb(db, "postgres")}
}

// Lookup resolves a canonical card UID to its student. The card table stays
// keyed by the legacy short UID form.
func (reg cardRegistry) Lookup(ctx context.Context, canonicalUID string) (attendance.Student, error) {
	var row struct {
		StudentID   string `db:"student_id"`
		StudentName string `db:"student_name"`
		Contact     string `db:"contact"`
	}
	err := reg.db.GetContext(ctx, &row, `SELECT student_id, student_name, contact FROM card WHERE uid = $1`, canonicalUID)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Student{}, attendance.ErrCardNotRegistered
		}
		return attendance.Student{}, errors.Wrap(err, "looking up card")
	}
	return attendance.Student{
		ID:      row.StudentID,
		Name:    row.StudentName,
		Contact: row.Contact,
	}, nil
}
