package notifsvc

import (
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/mahudhurio/core"
)

func diff(t *testing.T, want, got string) string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  1,
	})
	if err != nil {
		t.Fatalf("diff(): %v", err)
	}
	return out
}

func TestRender(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		notif core.Notification
		want  string
	}{
		{
			name:  "absent",
			notif: core.Notification{StudentName: "Asha", ClassID: "math-101", SessionID: "s-1", Status: "absent", Timestamp: at},
			want:  "Asha was marked absent from class math-101 (session s-1)",
		},
		{
			name:  "late",
			notif: core.Notification{StudentName: "Asha", ClassID: "math-101", Status: "late", Timestamp: at},
			want:  "Asha arrived late to class math-101 at 10:45",
		},
		{
			name:  "present",
			notif: core.Notification{StudentName: "Asha", ClassID: "math-101", Status: "present", Timestamp: at},
			want:  "Asha attended class math-101 at 10:45",
		},
		{
			name:  "falls back to student id",
			notif: core.Notification{StudentID: "std-a", ClassID: "math-101", Status: "present", Timestamp: at},
			want:  "std-a attended class math-101 at 10:45",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.notif); got != tt.want {
				t.Errorf("Render() mismatch:\n%s", diff(t, tt.want, got))
			}
		})
	}
}

func TestConsoleServiceMockSendIsSynchronous(t *testing.T) {
	ResetSent()
	svc := NewConsoleServiceMock()

	svc.Send(
		core.Notification{StudentID: "std-a", Status: "present"},
		core.Notification{StudentID: "std-b", Status: "absent"},
	)

	if len(SentNotifications) != 2 {
		t.Fatalf("SentNotifications has %d entries, want 2", len(SentNotifications))
	}
	var ids []string
	for _, n := range SentNotifications {
		ids = append(ids, n.StudentID)
	}
	if joined := strings.Join(ids, ","); joined != "std-a,std-b" {
		t.Errorf("sent order = %s, want std-a,std-b", joined)
	}
}
