package notifsvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/trezcool/mahudhurio/core"
)

var (
	SentNotifications = make([]core.Notification, 0)
	mu                sync.Mutex
)

// consoleService writes notifications to the process log instead of
// delivering them; used in Debug mode and by tests.
type consoleService struct {
	subjPrefix    string
	disableOutput bool
}

var _ core.NotificationService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.NotificationService {
	return &consoleService{
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) Send(notifications ...core.Notification) {
	for _, n := range notifications {
		n := n
		go svc.sendOne(n)
	}
}

func (svc consoleService) sendOne(n core.Notification) {
	if !svc.disableOutput {
		log.Println(svc.subjPrefix + Render(n))
	}
	mu.Lock()
	SentNotifications = append(SentNotifications, n)
	mu.Unlock()
}

// Render formats the human-readable notification body.
func Render(n core.Notification) string {
	who := n.StudentName
	if who == "" {
		who = n.StudentID
	}
	switch n.Status {
	case "absent":
		return fmt.Sprintf("%s was marked absent from class %s (session %s)", who, n.ClassID, n.SessionID)
	case "late":
		return fmt.Sprintf("%s arrived late to class %s at %s", who, n.ClassID, n.Timestamp.Format("15:04"))
	default:
		return fmt.Sprintf("%s attended class %s at %s", who, n.ClassID, n.Timestamp.Format("15:04"))
	}
}

type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock() core.NotificationService {
	return &consoleServiceMock{
		consoleService: consoleService{disableOutput: true},
	}
}

func (svc *consoleServiceMock) Send(notifications ...core.Notification) {
	for _, n := range notifications {
		// run synchronously
		svc.sendOne(n)
	}
}

// ResetSent clears the sent log between tests.
func ResetSent() {
	mu.Lock()
	SentNotifications = SentNotifications[:0]
	mu.Unlock()
}
