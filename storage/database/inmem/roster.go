package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type rosterProvider struct {
	db *enrollmentTable
}

var _ attendance.RosterProvider = (*rosterProvider)(nil)

func NewRosterProvider(db *DB) *rosterProvider {
	return &rosterProvider{db: db.enrollment}
}

func (rp *rosterProvider) Roster(_ context.Context, classID string) ([]string, error) {
	rp.db.mutex.RLock()
	defer rp.db.mutex.RUnlock()
	return append([]string(nil), rp.db.table[classID]...), nil
}
