package core

import "time"

type (
	// Notification is a best-effort message to a student's registered contact
	// about an attendance event. Delivery carries no confirmation; a failed
	// notification must never fail the attendance write that produced it.
	Notification struct {
		StudentID   string
		StudentName string
		SessionID   string
		ClassID     string
		Status      string // present | late | absent
		Timestamp   time.Time

		// Contact is the registered contact address (guardian email); empty
		// means the student has no registered channel and nothing is sent.
		Contact string
	}

	// NotificationService is any service that can deliver attendance notifications.
	NotificationService interface {
		// Send delivers notifications concurrently; it never blocks the caller
		// on delivery and never reports delivery failures back.
		Send(notifications ...Notification)
	}
)
