package aggregate

import (
	"sort"
	"time"

	"github.com/julianstephens/daylog/internal/models"
)

// ProjectTotal is the worked time booked on one project
type ProjectTotal struct {
	Project       string `json:"project" yaml:"project"`
	WorkedSeconds int64  `json:"worked_seconds" yaml:"worked_seconds"`
}

// Summary feeds the dashboard widgets for a window of entries.
type Summary struct {
	From      time.Time      `json:"from" yaml:"from"`
	To        time.Time      `json:"to" yaml:"to"`
	Projects  int            `json:"projects" yaml:"projects"`
	Locations int            `json:"locations" yaml:"locations"`
	ByProject []ProjectTotal `json:"by_project" yaml:"by_project"`
}

// Summarize counts distinct projects and locations among entries starting in
// [from, to). Blank values are not counted. ByProject is ordered by worked
// time, then name.
func Summarize(entries []models.TimeEntry, from, to time.Time, opts Options) Summary {
	sum := Summary{From: from, To: to}
	projects := make(map[string]int64)
	locations := make(map[string]struct{})

	for _, e := range entries {
		if !Counted(e) || e.Start.Before(from) || !e.Start.Before(to) {
			continue
		}
		if e.Location != "" {
			locations[e.Location] = struct{}{}
		}
		if e.Project == "" {
			continue
		}
		worked, _ := EntrySeconds(e, opts)
		projects[e.Project] += worked
	}

	sum.Projects = len(projects)
	sum.Locations = len(locations)
	sum.ByProject = make([]ProjectTotal, 0, len(projects))
	for name, worked := range projects {
		sum.ByProject = append(sum.ByProject, ProjectTotal{Project: name, WorkedSeconds: worked})
	}
	sort.Slice(sum.ByProject, func(i, j int) bool {
		a, b := sum.ByProject[i], sum.ByProject[j]
		if a.WorkedSeconds != b.WorkedSeconds {
			return a.WorkedSeconds > b.WorkedSeconds
		}
		return a.Project < b.Project
	})
	return sum
}
