package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/class-timetable/internal/scheduler"
	"github.com/example/class-timetable/internal/testfixtures"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testServer struct {
	timetable *testfixtures.Timetable
	handler   http.Handler
}

func newTestServer(t *testing.T, seed ...scheduler.Entry) *testServer {
	t.Helper()

	tt := testfixtures.NewServiceFactory().NewTimetable(testfixtures.TimetableDeps{
		Seed:   seed,
		Logger: discardLogger,
	})
	handler := NewRouter(RouterConfig{
		Entries: NewEntryHandler(tt.Store, tt.Relocation, discardLogger),
		Exports: NewExportHandler(tt.Store, testfixtures.ReferenceTime, discardLogger),
		Middleware: []func(http.Handler) http.Handler{
			Recoverer(discardLogger),
			RequestLogger(discardLogger),
		},
	})
	return &testServer{timetable: tt, handler: handler}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var payload T
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func seededLecture() scheduler.Entry {
	return testfixtures.NewEntry(
		testfixtures.WithEntryID("seed-math"),
		testfixtures.WithSpan(testfixtures.At(9, 0), testfixtures.At(10, 30)),
	)
}

func TestEntryHandler_CreateAndList(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededLecture())

	rec := srv.do(t, http.MethodPost, "/classes/10A/entries",
		`{"subject":"Physics","room":"201","courseId":"PHY-10","date":"2024-03-04","start":"11:00","end":"12:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[entryDTO](t, rec)
	if created.ID == "" || created.ClassName != "10A" {
		t.Fatalf("unexpected entry: %+v", created)
	}
	if !created.StartAt.Equal(testfixtures.At(11, 0)) || created.Start != "11:00" || created.End != "12:00" {
		t.Fatalf("unexpected times: %+v", created)
	}

	rec = srv.do(t, http.MethodGet, "/classes/10A/entries", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decodeBody[listEntriesResponse](t, rec)
	if len(list.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list.Entries))
	}
	if list.Entries[0].ID != "seed-math" || list.Entries[1].ID != created.ID {
		t.Fatalf("expected entries ordered by start, got %+v", list.Entries)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestEntryHandler_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("overlap reports the conflicting entry", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, seededLecture())
		rec := srv.do(t, http.MethodPost, "/classes/10A/entries",
			`{"subject":"Physics","room":"201","date":"2024-03-04","start":"10:00","end":"11:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		payload := decodeBody[errorResponse](t, rec)
		found := false
		for _, fe := range payload.Errors {
			if fe.Code == string(scheduler.ViolationOverlap) && fe.EntryID == "seed-math" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected overlap with seed-math, got %+v", payload.Errors)
		}
		if got := len(srv.timetable.Gateway.Entries("10A")); got != 1 {
			t.Fatalf("expected nothing persisted, got %d entries", got)
		}
	})

	t.Run("every malformed field is reported", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		rec := srv.do(t, http.MethodPost, "/classes/10A/entries",
			`{"subject":"Physics","room":"201","date":"2024-02-30","end":"25:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		payload := decodeBody[errorResponse](t, rec)
		fields := map[string]string{}
		for _, fe := range payload.Errors {
			fields[fe.Field] = fe.Code
		}
		if fields["date"] != "invalid_input" || fields["start"] != "required" || fields["end"] != "invalid_input" {
			t.Fatalf("unexpected field errors: %+v", payload.Errors)
		}
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		rec := srv.do(t, http.MethodPost, "/classes/10A/entries", `{"subject":`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown entry is not found", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, seededLecture())
		rec := srv.do(t, http.MethodPatch, "/classes/10A/entries/missing", `{"room":"301"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("gateway failure is retryable", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		srv.timetable.Gateway.Fail(testfixtures.OpCreate, errors.New("disk unplugged"))
		rec := srv.do(t, http.MethodPost, "/classes/10A/entries",
			`{"subject":"Physics","room":"201","date":"2024-03-04","start":"11:00","end":"12:00"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After header")
		}
	})

	t.Run("corrupt stored data", func(t *testing.T) {
		t.Parallel()

		broken := testfixtures.NewEntry(testfixtures.WithSpan(testfixtures.At(10, 0), testfixtures.At(9, 0)))
		srv := newTestServer(t, broken)
		rec := srv.do(t, http.MethodGet, "/classes/10A/entries?refresh=true", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if payload := decodeBody[errorResponse](t, rec); payload.ErrorCode != "DATA_CORRUPTION" {
			t.Fatalf("expected DATA_CORRUPTION, got %+v", payload)
		}
	})
}

func TestEntryHandler_UpdateRelocateDelete(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededLecture())

	rec := srv.do(t, http.MethodPatch, "/classes/10A/entries/seed-math", `{"room":"305","start":"08:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[entryDTO](t, rec)
	if updated.Room != "305" || updated.Start != "08:00" || updated.End != "10:30" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = srv.do(t, http.MethodPost, "/classes/10A/entries/seed-math/relocate", `{"date":"2024-03-05","hour":13}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	moved := decodeBody[entryDTO](t, rec)
	if moved.Date != "2024-03-05" || moved.Start != "13:00" || moved.End != "15:30" {
		t.Fatalf("expected duration preserved, got %+v", moved)
	}

	rec = srv.do(t, http.MethodPost, "/classes/10A/entries/seed-math/relocate", `{"date":"2024-03-05","hour":24}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for hour 24, got %d", rec.Code)
	}
	rec = srv.do(t, http.MethodPost, "/classes/10A/entries/seed-math/relocate", `{"date":"2024-03-05"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without hour, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec = srv.do(t, http.MethodDelete, "/classes/10A/entries/seed-math", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete %d: expected 204, got %d", i, rec.Code)
		}
	}
	if got := len(srv.timetable.Gateway.Entries("10A")); got != 0 {
		t.Fatalf("expected entry removed, %d left", got)
	}
}

func TestEntryHandler_CreateSeries(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/classes/10A/entries/series",
		`{"subject":"Chemistry","room":"Lab","start":"14:00","end":"15:00","frequency":"weekly","weekdays":["monday","Wednesday"],"startsOn":"2024-03-04","endsOn":"2024-03-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[listEntriesResponse](t, rec)
	if len(list.Entries) != 2 || list.Entries[0].Date != "2024-03-04" || list.Entries[1].Date != "2024-03-06" {
		t.Fatalf("unexpected series: %+v", list.Entries)
	}

	rec = srv.do(t, http.MethodPost, "/classes/10A/entries/series",
		`{"subject":"Chemistry","room":"Lab","start":"14:00","end":"15:00","frequency":"monthly","weekdays":["funday"],"startsOn":"2024-03-04","endsOn":"2024-03-10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestExportHandler(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededLecture())

	rec := srv.do(t, http.MethodGet, "/classes/10A/export.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "seed-math") {
		t.Fatalf("unexpected calendar: %s", body)
	}

	rec = srv.do(t, http.MethodGet, "/classes/10A/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "seed-math,10A,") {
		t.Fatalf("unexpected csv: %q", rec.Body.String())
	}
}

func TestParticipantHandler(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	handler := NewRouter(RouterConfig{
		Participants: NewParticipantHandler(harness.Participants, discardLogger),
		Health:       NewHealthHandler(harness.Storage, discardLogger),
	})
	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	if rec := do(http.MethodPost, "/classes/10A/participants", `{"participantId":"student-1","displayName":"Aiko"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/classes/10A/participants", `{"participantId":"student-1"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/classes/10A/participants", `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without participant id, got %d", rec.Code)
	}

	rec := do(http.MethodGet, "/classes/10A/participants", "")
	list := decodeBody[listParticipantsResponse](t, rec)
	if len(list.Participants) != 1 || list.Participants[0].DisplayName != "Aiko" {
		t.Fatalf("unexpected participants: %+v", list)
	}

	for i := 0; i < 2; i++ {
		if rec := do(http.MethodDelete, "/classes/10A/participants/student-1", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("delete %d: expected 204, got %d", i, rec.Code)
		}
	}

	if rec := do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthy storage, got %d", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is closed") }

func TestHealthHandler_Unavailable(t *testing.T) {
	t.Parallel()

	handler := NewRouter(RouterConfig{Health: NewHealthHandler(failingPinger{}, discardLogger)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("request id is propagated", func(t *testing.T) {
		t.Parallel()

		var seen string
		handler := RequestLogger(discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = RequestIDFromContext(r.Context())
			if LoggerFromContext(r.Context()) == nil {
				t.Errorf("expected request logger in context")
			}
			w.WriteHeader(http.StatusAccepted)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client-7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != "client-7" || rec.Header().Get(RequestIDHeader) != "client-7" {
			t.Fatalf("expected client id to be reused, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
		}
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status passthrough, got %d", rec.Code)
		}
	})

	t.Run("panics become 500", func(t *testing.T) {
		t.Parallel()

		handler := Recoverer(discardLogger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
