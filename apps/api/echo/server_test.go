package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core/attendance"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
	testutil "github.com/trezcool/mahudhurio/tests"
)

func setup(t *testing.T) (Server, attendance.Service, *inmemdb.DB) {
	svc, db, _ := testutil.NewService(t)
	app := NewServer(ServerDeps{
		Conf:          testutil.NewConfig(),
		Logger:        attendance.LoggerMock{},
		AttendanceSvc: svc,
	})
	return app, svc, db
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) attendance.Session {
	var session attendance.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decodeSession(): %v; body %s", err, rec.Body.String())
	}
	return session
}

func scheduleSession(t *testing.T, app Server, classID, startTime, endTime string) attendance.Session {
	body := marchallObj(t, attendance.NewSession{
		ClassID:   classID,
		Date:      time.Now().UTC().Truncate(24 * time.Hour),
		StartTime: startTime,
		EndTime:   endTime,
	})
	req, rec := newRequest(http.MethodPost, "/v1/sessions", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("scheduleSession(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	return decodeSession(t, rec)
}

func Test_sessionApi_lifecycle(t *testing.T) {
	app, _, db := setup(t)
	db.SeedEnrollment("math-101", "std-a", "std-b")

	session := scheduleSession(t, app, "math-101", "10:00", "11:30")
	if session.Status != attendance.Scheduled {
		t.Errorf("status = %v, want %v", session.Status, attendance.Scheduled)
	}

	// start
	req, rec := newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/start")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: code = %v; body %s", rec.Code, rec.Body.String())
	}
	if got := decodeSession(t, rec); got.Status != attendance.Ongoing {
		t.Errorf("status = %v, want %v", got.Status, attendance.Ongoing)
	}

	// a second start must conflict
	req, rec = newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/start")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second start: code = %v, want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// manual attendance
	body := marchallObj(t, attendance.NewRecord{StudentID: "std-a", Status: attendance.Present, Method: attendance.Manual})
	req, rec = newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/attendance", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("attendance: code = %v; body %s", rec.Code, rec.Body.String())
	}

	// end completes and reconciles the absentee
	req, rec = newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/end")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("end: code = %v; body %s", rec.Code, rec.Body.String())
	}
	got := decodeSession(t, rec)
	if got.Status != attendance.Completed {
		t.Errorf("status = %v, want %v", got.Status, attendance.Completed)
	}
	if r, ok := got.Attendance["std-b"]; !ok || r.Status != attendance.Absent {
		t.Errorf("std-b record = %+v, want appended absence", got.Attendance)
	}
}

func Test_sessionApi_validation(t *testing.T) {
	app, _, _ := setup(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     []byte
		wantCode int
	}{
		{
			name: "bad start time", method: http.MethodPost, path: "/v1/sessions",
			body:     []byte(`{"class_id":"math-101","date":"2026-03-02T00:00:00Z","start_time":"25:00"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing class", method: http.MethodPost, path: "/v1/sessions",
			body:     []byte(`{"date":"2026-03-02T00:00:00Z","start_time":"10:00"}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "unknown session", method: http.MethodGet, path: "/v1/sessions/nope", wantCode: http.StatusNotFound},
		{name: "unknown status filter", method: http.MethodGet, path: "/v1/sessions?status=lost", wantCode: http.StatusBadRequest},
		{name: "bad date filter", method: http.MethodGet, path: "/v1/sessions?date=tomorrow", wantCode: http.StatusBadRequest},
		{
			name: "cancel completed conflicts", method: http.MethodPost, path: "/v1/sessions/%s/cancel",
			wantCode: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if tt.name == "cancel completed conflicts" {
				session := scheduleSession(t, app, "math-101", "10:00", "11:00")
				req, rec := newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/start")
				app.ServeHTTP(rec, req)
				req, rec = newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/end")
				app.ServeHTTP(rec, req)
				path = fmt.Sprintf(tt.path, session.ID)
			}
			req, rec := newRequest(tt.method, path, tt.body)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %v, want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func Test_sessionApi_query(t *testing.T) {
	app, _, _ := setup(t)

	math := scheduleSession(t, app, "math-101", "10:00", "11:00")
	bio := scheduleSession(t, app, "bio-201", "12:00", "13:00")

	req, rec := newRequest(http.MethodGet, "/v1/sessions?class=math-101")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var sessions []attendance.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != math.ID {
		t.Errorf("sessions = %+v, want just %s", sessions, math.ID)
	}

	req, rec = newRequest(http.MethodGet, "/v1/sessions?status=scheduled")
	app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2 (%s, %s)", len(sessions), math.ID, bio.ID)
	}
}

func Test_scanApi(t *testing.T) {
	app, _, db := setup(t)
	db.SeedEnrollment("math-101", "std-a")
	db.SeedCard("5328709", attendance.Student{ID: "std-a", Name: "Asha"})

	session := scheduleSession(t, app, "math-101", "10:00", "11:30")
	req, rec := newRequest(http.MethodPost, "/v1/sessions/"+session.ID+"/start")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: code = %v; body %s", rec.Code, rec.Body.String())
	}

	at := time.Now().UTC()
	sendKey := func(t *testing.T, surface, key string, at time.Time) (*httptest.ResponseRecorder, ScanResponse) {
		body := marchallObj(t, KeyInput{Surface: surface, Key: key, At: at})
		req, rec := newRequest(http.MethodPost, "/v1/scans", body)
		app.ServeHTTP(rec, req)
		var resp ScanResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil && rec.Code < http.StatusBadRequest {
			t.Fatalf("unmarshalling: %v; body %s", err, rec.Body.String())
		}
		return rec, resp
	}

	// digits only buffer
	for i, key := range []string{"5", "3", "2", "8", "7", "0", "9"} {
		rec, resp := sendKey(t, "kiosk", key, at.Add(time.Duration(i)*10*time.Millisecond))
		if rec.Code != http.StatusAccepted || !resp.Buffered {
			t.Fatalf("key %q: code = %v, buffered = %v; want buffering", key, rec.Code, resp.Buffered)
		}
	}

	// Enter resolves into an attendance record
	rec2, resp := sendKey(t, "kiosk", "Enter", at.Add(80*time.Millisecond))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Enter: code = %v; body %s", rec2.Code, rec2.Body.String())
	}
	if resp.Session == nil || resp.Session.ID != session.ID {
		t.Errorf("resolved session = %+v, want %s", resp.Session, session.ID)
	}
	if resp.Record == nil || resp.Record.StudentID != "std-a" || resp.Record.Method != attendance.Rfid {
		t.Errorf("resolved record = %+v, mismatch", resp.Record)
	}

	t.Run("unregistered card", func(t *testing.T) {
		for i, key := range []string{"9", "9", "9"} {
			sendKey(t, "gate", key, at.Add(time.Duration(i)*10*time.Millisecond))
		}
		rec, _ := sendKey(t, "gate", "Enter", at.Add(40*time.Millisecond))
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusNotFound, rec.Body.String())
		}
	})

	t.Run("missing surface", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/scans", []byte(`{"key":"5"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}
