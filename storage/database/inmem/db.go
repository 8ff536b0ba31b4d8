package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
)

// An in-memory stand-in for the Postgres storage, used by tests and local dev.
// It guards the same per-session serialization semantics with a mutex.

type (
	DB struct {
		session    *sessionTable
		card       *cardTable
		enrollment *enrollmentTable
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*attendance.Session
	}

	cardTable struct {
		mutex sync.RWMutex
		table map[string]attendance.Student // uid -> student
	}

	enrollmentTable struct {
		mutex sync.RWMutex
		table map[string][]string // classID -> studentIDs
	}
)

func Open() (*DB, error) {
	db := &DB{
		session:    &sessionTable{table: make(map[string]*attendance.Session)},
		card:       &cardTable{table: make(map[string]attendance.Student)},
		enrollment: &enrollmentTable{table: make(map[string][]string)},
	}
	return db, nil
}

// SeedCard registers a card for a student.
func (db *DB) SeedCard(uid string, student attendance.Student) {
	db.card.mutex.Lock()
	defer db.card.mutex.Unlock()
	db.card.table[uid] = student
}

// SeedEnrollment sets the current roster of a class.
func (db *DB) SeedEnrollment(classID string, studentIDs ...string) {
	db.enrollment.mutex.Lock()
	defer db.enrollment.mutex.Unlock()
	db.enrollment.table[classID] = append([]string(nil), studentIDs...)
}
