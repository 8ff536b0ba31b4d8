package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type cardRegistry struct {
	db *cardTable
}

var _ attendance.CardRegistry = (*cardRegistry)(nil)

func NewCardRegistry(db *DB) *cardRegistry {
	return &cardRegistry{db: db.card}
}

func (reg *cardRegistry) Lookup(_ context.Context, canonicalUID string) (attendance.Student, error) {
	reg.db.mutex.RLock()
	defer reg.db.mutex.RUnlock()

	if student, ok := reg.db.table[canonicalUID]; ok {
		return student, nil
	}
	return attendance.Student{}, attendance.ErrCardNotRegistered
}
