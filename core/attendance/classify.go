package attendance

import "time"

// DefaultLateThreshold is how long after a session's start a scan still counts
// as Present.
const DefaultLateThreshold = 30 * time.Minute

// Classify decides Present vs Late for a scan against the session's scheduled
// start. Both instants are compared as minutes-of-day only; sessions crossing
// midnight are out of scope.
func Classify(session *Session, scanTime time.Time, lateThreshold time.Duration) Status {
	if lateThreshold <= 0 {
		lateThreshold = DefaultLateThreshold
	}
	startMins, err := ParseTimeOfDay(session.StartTime)
	if err != nil {
		// unparseable start time: never punish the student for it
		return Present
	}
	if MinutesOfDay(scanTime) > startMins+int(lateThreshold.Minutes()) {
		return Late
	}
	return Present
}
