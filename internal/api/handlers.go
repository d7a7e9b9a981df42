package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/timeline"
)

type startRequest struct {
	Project    string `json:"project"`
	Location   string `json:"location"`
	Note       string `json:"note"`
	CostCenter string `json:"cost_center"`
}

type breakRequest struct {
	Minutes int    `json:"minutes,omitempty"`
	Until   string `json:"until,omitempty"`
}

type breakResponse struct {
	EndAt            time.Time `json:"end_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type timelineResponse struct {
	Date       string             `json:"date"`
	TotalWidth float64            `json:"total_width"`
	StartHour  int                `json:"start_hour"`
	EndHour    int                `json:"end_hour"`
	Segments   []timeline.Segment `json:"segments"`
}

type dayResponse struct {
	aggregate.Day
	Worked string `json:"worked"`
	Break  string `json:"break"`
}

type weekResponse struct {
	aggregate.Week
	Worked   string `json:"worked"`
	Overtime string `json:"overtime"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var state string
	s.with(func(eng *engine.Engine) { state = eng.State().String() })
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": state})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	var st engine.Status
	s.with(func(eng *engine.Engine) { st = eng.Status() })
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	var (
		st  engine.Status
		err error
	)
	s.with(func(eng *engine.Engine) {
		_, err = eng.Start(models.EntryDraft{
			Project:    req.Project,
			Location:   req.Location,
			Note:       req.Note,
			CostCenter: req.CostCenter,
		})
		st = eng.Status()
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// transition runs op and answers with the session. Idempotent no-ops such
// as a second pause succeed with the unchanged session.
func (s *Server) transition(w http.ResponseWriter, op func(*engine.Engine) error) {
	var (
		st  engine.Status
		err error
	)
	s.with(func(eng *engine.Engine) {
		err = op(eng)
		st = eng.Status()
	})
	if err != nil && !engine.IsBenign(err) {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, (*engine.Engine).Pause)
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, (*engine.Engine).Resume)
}

func (s *Server) resumeEarly(w http.ResponseWriter, r *http.Request) {
	s.transition(w, (*engine.Engine).ResumeEarly)
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	var (
		entry models.TimeEntry
		err   error
	)
	s.with(func(eng *engine.Engine) { entry, err = eng.Stop() })
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) scheduleBreak(w http.ResponseWriter, r *http.Request) {
	var req breakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if (req.Minutes == 0) == (req.Until == "") {
		writeError(w, http.StatusBadRequest, "exactly one of minutes or until is required")
		return
	}

	var (
		resp breakResponse
		err  error
	)
	s.with(func(eng *engine.Engine) {
		if req.Until != "" {
			resp.EndAt, err = eng.ScheduleUntil(req.Until)
		} else {
			resp.EndAt, err = eng.ScheduleFor(req.Minutes)
		}
		resp.RemainingSeconds = eng.RemainingBreakSeconds()
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) cancelBreak(w http.ResponseWriter, r *http.Request) {
	var (
		cancelled bool
		err       error
	)
	s.with(func(eng *engine.Engine) { cancelled, err = eng.CancelBreak() })
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !cancelled {
		writeError(w, http.StatusNotFound, "no break scheduled")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseDate accepts YYYY-MM-DD or "today", read in the engine's time zone
func parseDate(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if strings.EqualFold(raw, "today") {
		return aggregate.DateOf(now, loc), nil
	}
	return time.ParseInLocation(constants.DateFormat, raw, loc)
}

func (s *Server) dateParam(w http.ResponseWriter, r *http.Request, eng *engine.Engine) (time.Time, bool) {
	date, err := parseDate(chi.URLParam(r, "date"), eng.Location(), eng.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or today")
		return time.Time{}, false
	}
	return date, true
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, ok := s.dateParam(w, r, s.eng)
	if !ok {
		return
	}
	day, err := s.eng.DayAggregate(date)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Day:    day,
		Worked: aggregate.FormatDuration(day.WorkedSeconds),
		Break:  aggregate.FormatDuration(day.BreakSeconds),
	})
}

func (s *Server) getWeek(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, ok := s.dateParam(w, r, s.eng)
	if !ok {
		return
	}
	week, err := s.eng.WeekAggregate(s.eng.WeekStartFor(date))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{
		Week:     week,
		Worked:   aggregate.FormatDuration(week.WorkedSeconds),
		Overtime: aggregate.FormatSigned(week.OvertimeSeconds),
	})
}

// getTimeline answers JSON, or the rendered strip with ?format=svg
func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, ok := s.dateParam(w, r, s.eng)
	if !ok {
		return
	}
	cfg, err := s.eng.TimelineConfig()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	segs, err := s.eng.TimelineSegments(date)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "svg" {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(timeline.RenderSVG(segs, cfg)))
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{
		Date:       date.Format(constants.DateFormat),
		TotalWidth: cfg.TotalWidth(),
		StartHour:  cfg.StartHour,
		EndHour:    cfg.EndHour,
		Segments:   segs,
	})
}

// getSummary covers the current week unless from/to are given
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := s.eng.Location()
	from := s.eng.WeekStartFor(s.eng.Now())
	to := from.AddDate(0, 0, 7)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		d, err := parseDate(v, loc, s.eng.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := parseDate(v, loc, s.eng.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = d.AddDate(0, 0, 1)
	}
	sum, err := s.eng.Summary(from, to)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
