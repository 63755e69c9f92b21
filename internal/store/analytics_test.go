package store

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
)

func addSession(t *testing.T, c *Cache, project, id, created string, minutes int) {
	t.Helper()
	if p, _ := c.GetProject(project); p == nil {
		if err := c.UpsertProject(model.Project{Path: project, Name: project[1:]}); err != nil {
			t.Fatal(err)
		}
	}
	start := ts(created)
	dur := int64(minutes) * 60000
	err := c.UpsertSessions([]model.Session{{
		ID:          id,
		ProjectPath: project,
		Created:     start,
		Modified:    start.Add(time.Duration(minutes) * time.Minute),
		DurationMs:  dur,
	}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMonthlySummaryEmpty(t *testing.T) {
	c := newTestCache(t)
	s, err := c.MonthlySummary("2026-06")
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if s.Month != "2026-06" || s.TotalSessions != 0 || s.TotalDurationMs != 0 || s.EstimatedCostUSD != 0 {
		t.Errorf("summary = %+v, want zero totals", s)
	}
	if s.Days == nil || len(s.Days) != 0 || s.TopProjects == nil || len(s.TopProjects) != 0 {
		t.Errorf("Days = %v, TopProjects = %v, want empty lists", s.Days, s.TopProjects)
	}
}

func TestMonthlySummaryMalformedMonth(t *testing.T) {
	c := newTestCache(t)
	for _, m := range []string{"", "2026", "2026-13", "June 2026"} {
		if _, err := c.MonthlySummary(m); err == nil {
			t.Errorf("MonthlySummary(%q) succeeded, want error", m)
		}
	}
}

func TestMonthlySummary(t *testing.T) {
	c := newTestCache(t)
	addSession(t, c, "/a", "a1", "2026-06-03T09:00:00Z", 30)
	addSession(t, c, "/a", "a2", "2026-06-03T15:00:00Z", 30)
	addSession(t, c, "/b", "b1", "2026-06-01T08:00:00Z", 90)
	addSession(t, c, "/c", "c1", "2026-06-20T08:00:00Z", 10)
	addSession(t, c, "/c-fork", "f1", "2026-06-21T08:00:00Z", 50)
	addSession(t, c, "/d", "d1", "2026-06-22T08:00:00Z", 5)
	addSession(t, c, "/e", "e1", "2026-06-23T08:00:00Z", 5)
	addSession(t, c, "/f", "f2", "2026-06-24T08:00:00Z", 1)
	addSession(t, c, "/a", "may", "2026-05-31T23:59:59Z", 600)
	addSession(t, c, "/a", "jul", "2026-07-01T00:00:00Z", 600)
	if err := c.Merge([]string{"/c-fork"}, "/c"); err != nil {
		t.Fatal(err)
	}

	s, err := c.MonthlySummary("2026-06")
	if err != nil {
		t.Fatal(err)
	}

	if s.TotalSessions != 8 {
		t.Errorf("TotalSessions = %d, want 8", s.TotalSessions)
	}
	if want := int64(221 * 60000); s.TotalDurationMs != want {
		t.Errorf("TotalDurationMs = %d, want %d", s.TotalDurationMs, want)
	}
	if want := 221 * DefaultCostPerMinuteUSD; math.Abs(s.EstimatedCostUSD-want) > 1e-9 {
		t.Errorf("EstimatedCostUSD = %f, want %f", s.EstimatedCostUSD, want)
	}

	wantDays := []model.DayStats{
		{Date: "2026-06-01", Sessions: 1, DurationMs: 90 * 60000},
		{Date: "2026-06-03", Sessions: 2, DurationMs: 60 * 60000},
		{Date: "2026-06-20", Sessions: 1, DurationMs: 10 * 60000},
		{Date: "2026-06-21", Sessions: 1, DurationMs: 50 * 60000},
		{Date: "2026-06-22", Sessions: 1, DurationMs: 5 * 60000},
		{Date: "2026-06-23", Sessions: 1, DurationMs: 5 * 60000},
		{Date: "2026-06-24", Sessions: 1, DurationMs: 1 * 60000},
	}
	if len(s.Days) != len(wantDays) {
		t.Fatalf("Days = %+v, want %d entries", s.Days, len(wantDays))
	}
	for i := range wantDays {
		if s.Days[i] != wantDays[i] {
			t.Errorf("Days[%d] = %+v, want %+v", i, s.Days[i], wantDays[i])
		}
	}

	// /c absorbs /c-fork; /d and /e tie and keep first-seen order; /f falls off.
	wantTop := []model.ProjectDuration{
		{Path: "/b", Name: "b", Sessions: 1, DurationMs: 90 * 60000},
		{Path: "/a", Name: "a", Sessions: 2, DurationMs: 60 * 60000},
		{Path: "/c", Name: "c", Sessions: 2, DurationMs: 60 * 60000},
		{Path: "/d", Name: "d", Sessions: 1, DurationMs: 5 * 60000},
		{Path: "/e", Name: "e", Sessions: 1, DurationMs: 5 * 60000},
	}
	if len(s.TopProjects) != len(wantTop) {
		t.Fatalf("TopProjects = %+v, want %d entries", s.TopProjects, len(wantTop))
	}
	for i := range wantTop {
		if s.TopProjects[i] != wantTop[i] {
			t.Errorf("TopProjects[%d] = %+v, want %+v", i, s.TopProjects[i], wantTop[i])
		}
	}
}
