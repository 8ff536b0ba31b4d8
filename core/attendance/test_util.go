package attendance

import (
	"context"
	"sync"

	"github.com/trezcool/mahudhurio/core"
)

// Collaborator mocks shared by this package's tests and the API tests.

// RosterProviderMock serves rosters from a static map, classID -> studentIDs.
type RosterProviderMock map[string][]string

var _ RosterProvider = (RosterProviderMock)(nil)

func (m RosterProviderMock) Roster(_ context.Context, classID string) ([]string, error) {
	return m[classID], nil
}

// CardRegistryMock resolves cards from a static map, canonical UID -> Student.
type CardRegistryMock map[string]Student

var _ CardRegistry = (CardRegistryMock)(nil)

func (m CardRegistryMock) Lookup(_ context.Context, canonicalUID string) (Student, error) {
	student, ok := m[canonicalUID]
	if !ok {
		return Student{}, ErrCardNotRegistered
	}
	return student, nil
}

// LoggerMock drops all output.
type LoggerMock struct{}

var _ core.Logger = LoggerMock{}

func (LoggerMock) Enable(bool)                  {}
func (LoggerMock) Debug(string, ...interface{}) {}
func (LoggerMock) Info(string, ...interface{})  {}
func (LoggerMock) Warn(string, ...interface{})  {}
func (LoggerMock) Error(string, ...interface{}) {}
func (LoggerMock) Fatal(string, ...interface{}) {}

// NotificationServiceMock records notifications synchronously instead of
// delivering them.
type NotificationServiceMock struct {
	mutex sync.Mutex
	sent  []core.Notification
}

var _ core.NotificationService = (*NotificationServiceMock)(nil)

func (m *NotificationServiceMock) Send(notifications ...core.Notification) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, notifications...)
}

func (m *NotificationServiceMock) Sent() []core.Notification {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]core.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}
