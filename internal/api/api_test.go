package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

var nineAM = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupServer(t *testing.T) (*Server, *clock.Manual) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "daylog.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	settings, _ := store.GetSettings()
	settings.Timezone = "UTC"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewManual(nineAM)
	eng, err := engine.New(store, "ada", engine.WithClock(clk))
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(eng), clk
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSessionLifecycle(t *testing.T) {
	srv, clk := setupServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/session/start", `{"project":"daylog"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	clk.Advance(30 * time.Minute)
	if rec := do(t, h, http.MethodPost, "/session/pause", ""); rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}
	// pausing twice is a no-op, not an error
	rec = do(t, h, http.MethodPost, "/session/pause", "")
	if rec.Code != http.StatusOK {
		t.Errorf("second pause status = %d", rec.Code)
	}
	if st := decode[engine.Status](t, rec); st.State != "paused" {
		t.Errorf("state = %s", st.State)
	}

	clk.Advance(5 * time.Minute)
	do(t, h, http.MethodPost, "/session/resume", "")
	clk.Advance(10 * time.Minute)

	st := decode[engine.Status](t, do(t, h, http.MethodGet, "/session", ""))
	if st.ElapsedSeconds != 40*60 || st.Entry == nil || st.Entry.Project != "daylog" {
		t.Errorf("GET /session = %+v", st)
	}

	rec = do(t, h, http.MethodPost, "/session/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d body = %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/session/stop", ""); rec.Code != http.StatusConflict {
		t.Errorf("stop from idle status = %d, want 409", rec.Code)
	}
}

func TestBreakRoutes(t *testing.T) {
	srv, clk := setupServer(t)
	h := srv.Router()

	if rec := do(t, h, http.MethodPost, "/breaks", `{"minutes":15}`); rec.Code != http.StatusConflict {
		t.Errorf("break while idle status = %d, want 409", rec.Code)
	}
	do(t, h, http.MethodPost, "/session/start", "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"out of range", `{"minutes":500}`, http.StatusUnprocessableEntity},
		{"bad clock time", `{"until":"25:99"}`, http.StatusUnprocessableEntity},
		{"both given", `{"minutes":5,"until":"10:00"}`, http.StatusBadRequest},
		{"unknown field", `{"mins":5}`, http.StatusBadRequest},
		{"ok", `{"minutes":15}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/breaks", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	clk.Advance(16 * time.Minute)
	srv.Tick()
	st := decode[engine.Status](t, do(t, h, http.MethodGet, "/session", ""))
	if st.State != "active" || st.BreakEndAt != nil {
		t.Errorf("after expiry = %+v", st)
	}

	if rec := do(t, h, http.MethodDelete, "/breaks", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel without break status = %d", rec.Code)
	}
	do(t, h, http.MethodPost, "/breaks", `{"until":"12:00"}`)
	if rec := do(t, h, http.MethodDelete, "/breaks", ""); rec.Code != http.StatusNoContent {
		t.Errorf("cancel status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/breaks/resume", "")
	if st := decode[engine.Status](t, rec); rec.Code != http.StatusOK || st.State != "active" {
		t.Errorf("resume early = %d %+v", rec.Code, st)
	}
}

func TestReports(t *testing.T) {
	srv, clk := setupServer(t)
	h := srv.Router()

	do(t, h, http.MethodPost, "/session/start", `{"project":"daylog"}`)
	clk.Set(nineAM.Add(3 * time.Hour))
	do(t, h, http.MethodPost, "/session/stop", "")

	rec := do(t, h, http.MethodGet, "/days/2026-03-02", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("day status = %d", rec.Code)
	}
	day := decode[dayResponse](t, rec)
	if day.WorkedSeconds != 3*3600 || day.Worked != "3:00" {
		t.Errorf("day = %+v", day)
	}

	week := decode[weekResponse](t, do(t, h, http.MethodGet, "/weeks/today", ""))
	if week.WorkedSeconds != 3*3600 || week.Overtime != "-37:00" {
		t.Errorf("week = %+v", week)
	}

	tl := decode[timelineResponse](t, do(t, h, http.MethodGet, "/timeline/2026-03-02", ""))
	if len(tl.Segments) != 1 || tl.Segments[0].Left != 70 || tl.Segments[0].Width != 210 {
		t.Errorf("timeline = %+v", tl)
	}
	rec = do(t, h, http.MethodGet, "/timeline/2026-03-02?format=svg", "")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "image/svg+xml") || !strings.Contains(rec.Body.String(), "<svg") {
		t.Errorf("svg timeline = %s", rec.Body)
	}

	if rec := do(t, h, http.MethodGet, "/days/02.03.2026", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}

	sum := decode[map[string]any](t, do(t, h, http.MethodGet, "/summary", ""))
	if sum["projects"] != float64(1) {
		t.Errorf("summary = %v", sum)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"idle"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestRequestLoggerTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Logger
	logger.Logger = log.New(&buf)
	t.Cleanup(func() { logger.Logger = prev })

	srv, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{"id=req-42", "method=GET", "path=/health", "status=200"} {
		if !strings.Contains(out, want) {
			t.Errorf("request log %q is missing %q", out, want)
		}
	}
}
