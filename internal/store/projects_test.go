package store

import (
	"errors"
	"sort"
	"testing"

	"github.com/theirongolddev/ccproj/internal/model"
)

func TestUpsertProjectIdempotent(t *testing.T) {
	c := newTestCache(t)
	p := model.Project{
		Path:            "/work/app",
		Name:            "app",
		FirstActivity:   ts("2026-01-01T10:00:00Z"),
		LastActivity:    ts("2026-01-03T10:00:00Z"),
		SessionCount:    3,
		MessageCount:    12,
		TotalDurationMs: 5000,
	}
	for i := 0; i < 2; i++ {
		if err := c.UpsertProject(p); err != nil {
			t.Fatalf("UpsertProject #%d: %v", i+1, err)
		}
	}

	all, err := c.ListProjects(true)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows = %d, want 1", len(all))
	}
	got := all[0]
	if got.Name != "app" || got.SessionCount != 3 || got.MessageCount != 12 || got.TotalDurationMs != 5000 {
		t.Errorf("project = %+v", got)
	}
	if !got.FirstActivity.Equal(p.FirstActivity) || !got.LastActivity.Equal(p.LastActivity) {
		t.Errorf("activity = %v..%v, want %v..%v", got.FirstActivity, got.LastActivity, p.FirstActivity, p.LastActivity)
	}
}

func TestUpsertProjectWidensActivity(t *testing.T) {
	c := newTestCache(t)
	base := model.Project{
		Path:          "/work/app",
		Name:          "app",
		FirstActivity: ts("2026-01-05T00:00:00Z"),
		LastActivity:  ts("2026-01-10T00:00:00Z"),
	}
	if err := c.UpsertProject(base); err != nil {
		t.Fatal(err)
	}

	narrower := base
	narrower.FirstActivity = ts("2026-01-06T00:00:00Z")
	narrower.LastActivity = ts("2026-01-08T00:00:00Z")
	if err := c.UpsertProject(narrower); err != nil {
		t.Fatal(err)
	}
	got := mustProject(t, c, base.Path)
	if !got.FirstActivity.Equal(base.FirstActivity) || !got.LastActivity.Equal(base.LastActivity) {
		t.Errorf("after narrower upsert activity = %v..%v, want unchanged", got.FirstActivity, got.LastActivity)
	}

	wider := base
	wider.FirstActivity = ts("2026-01-01T00:00:00Z")
	wider.LastActivity = ts("2026-01-20T00:00:00Z")
	if err := c.UpsertProject(wider); err != nil {
		t.Fatal(err)
	}
	got = mustProject(t, c, base.Path)
	if !got.FirstActivity.Equal(wider.FirstActivity) || !got.LastActivity.Equal(wider.LastActivity) {
		t.Errorf("after wider upsert activity = %v..%v, want %v..%v",
			got.FirstActivity, got.LastActivity, wider.FirstActivity, wider.LastActivity)
	}
}

func TestUpsertPreservesUserMetadata(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/work/app", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/work/lib", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	g, err := c.CreateGroup("clients", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.SetHidden("/work/app", true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetGroup("/work/app", &g.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDefault("/work/app"); err != nil {
		t.Fatal(err)
	}
	if err := c.Merge([]string{"/work/app"}, "/work/lib"); err != nil {
		t.Fatal(err)
	}

	// A later sync of the same project must not reset any of it.
	seedProject(t, c, "/work/app", "2026-02-01T10:00:00Z", "2026-02-01T12:00:00Z")

	p := mustProject(t, c, "/work/app")
	if !p.Hidden {
		t.Error("Hidden reset by upsert")
	}
	if p.GroupID == nil || *p.GroupID != g.ID {
		t.Errorf("GroupID = %v, want %s", p.GroupID, g.ID)
	}
	if !p.IsDefault {
		t.Error("IsDefault reset by upsert")
	}
	if p.MergedInto == nil || *p.MergedInto != "/work/lib" {
		t.Errorf("MergedInto = %v, want /work/lib", p.MergedInto)
	}
	if sessions, _ := c.ListSessions("/work/app"); len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1 (same ID upserted)", len(sessions))
	}
}

func TestListProjectsOrderAndVisibility(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/old", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/new", "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z")
	seedProject(t, c, "/mid", "2026-02-01T10:00:00Z", "2026-02-01T11:00:00Z")
	if err := c.SetHidden("/mid", true); err != nil {
		t.Fatal(err)
	}

	visible, err := c.ListProjects(false)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := paths(visible), []string{"/new", "/old"}; !equalStrings(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}

	all, err := c.ListProjects(true)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := paths(all), []string{"/new", "/mid", "/old"}; !equalStrings(got, want) {
		t.Errorf("all = %v, want %v", got, want)
	}
}

func TestGetProjectAbsent(t *testing.T) {
	c := newTestCache(t)
	p, err := c.GetProject("/nope")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p != nil {
		t.Errorf("GetProject = %+v, want nil", p)
	}
}

func TestMutationsOnUnknownProject(t *testing.T) {
	c := newTestCache(t)
	if err := c.SetHidden("/nope", true); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("SetHidden err = %v, want ErrProjectNotFound", err)
	}
	if err := c.SetGroup("/nope", nil); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("SetGroup err = %v, want ErrProjectNotFound", err)
	}
	if err := c.SetDefault("/nope"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("SetDefault err = %v, want ErrProjectNotFound", err)
	}
}

func TestSetGroupUnknownGroup(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/a", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	if err := c.SetGroup("/a", strPtr("missing")); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("err = %v, want ErrGroupNotFound", err)
	}

	g, err := c.CreateGroup("Work", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetGroup("/a", &g.ID); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	if err := c.SetGroup("/nope", &g.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("unknown project err = %v, want ErrProjectNotFound", err)
	}

	// A group deleted between lookup and assignment surfaces as
	// ErrGroupNotFound, never as a raw constraint error.
	if err := c.DeleteGroup(g.ID); err != nil {
		t.Fatal(err)
	}
	err = c.SetGroup("/a", &g.ID)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("deleted group err = %v, want ErrGroupNotFound", err)
	}
	if p := mustProject(t, c, "/a"); p.GroupID != nil {
		t.Errorf("GroupID = %v after failed SetGroup, want nil", *p.GroupID)
	}
}

func TestSetDefaultSwap(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/a", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/b", "2026-01-02T10:00:00Z", "2026-01-02T11:00:00Z")

	if d, _ := c.DefaultProject(); d != nil {
		t.Fatalf("DefaultProject on fresh cache = %s, want nil", d.Path)
	}
	if err := c.SetDefault("/a"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDefault("/b"); err != nil {
		t.Fatal(err)
	}

	all, _ := c.ListProjects(true)
	var defaults []string
	for _, p := range all {
		if p.IsDefault {
			defaults = append(defaults, p.Path)
		}
	}
	if !equalStrings(defaults, []string{"/b"}) {
		t.Errorf("defaults = %v, want [/b]", defaults)
	}

	if err := c.SetDefault("/b"); err != nil {
		t.Errorf("SetDefault on current default: %v", err)
	}
	if err := c.ClearDefault(); err != nil {
		t.Fatal(err)
	}
	if d, _ := c.DefaultProject(); d != nil {
		t.Errorf("DefaultProject after clear = %s, want nil", d.Path)
	}
}

func TestDeleteOrphaned(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/keep", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/gone", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/hidden-gone", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	if err := c.SetHidden("/hidden-gone", true); err != nil {
		t.Fatal(err)
	}
	if err := c.Merge([]string{"/keep"}, "/gone"); err != nil {
		t.Fatal(err)
	}

	valid := []string{"/keep", "/never-cached"}
	n, err := c.DeleteOrphaned(valid)
	if err != nil {
		t.Fatalf("DeleteOrphaned: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	all, _ := c.ListProjects(true)
	got := paths(all)
	sort.Strings(got)
	if !equalStrings(got, []string{"/keep"}) {
		t.Errorf("remaining = %v, want [/keep]", got)
	}
	if p := mustProject(t, c, "/keep"); p.MergedInto != nil {
		t.Errorf("MergedInto = %s, want nil after target deleted", *p.MergedInto)
	}

	sessions, err := c.ListSessions("/gone", "/hidden-gone")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("orphan sessions = %d, want 0", len(sessions))
	}
}

func TestListSessionsAcrossProjects(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/a", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/b", "2026-01-02T10:00:00Z", "2026-01-02T11:30:00Z")
	summary := "fix the build"
	if err := c.UpsertSessions([]model.Session{{
		ID:          "extra",
		ProjectPath: "/a",
		Created:     ts("2026-01-03T09:00:00Z"),
		Modified:    ts("2026-01-03T09:10:00Z"),
		DurationMs:  600000,
		Summary:     &summary,
	}}); err != nil {
		t.Fatal(err)
	}

	got, err := c.ListSessions("/a", "/b")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	if want := []string{"extra", "/b#1", "/a#1"}; !equalStrings(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if got[0].Summary == nil || *got[0].Summary != summary {
		t.Errorf("Summary = %v, want %q", got[0].Summary, summary)
	}
	if got[0].FirstPrompt != nil || got[0].GitBranch != nil {
		t.Error("unset text fields should stay nil")
	}

	if none, _ := c.ListSessions(); none != nil {
		t.Errorf("ListSessions() = %v, want nil", none)
	}
}

func TestUpsertSessionsUnknownProject(t *testing.T) {
	c := newTestCache(t)
	err := c.UpsertSessions([]model.Session{{
		ID:          "s",
		ProjectPath: "/nope",
		Created:     ts("2026-01-01T10:00:00Z"),
		Modified:    ts("2026-01-01T10:00:00Z"),
	}})
	if err == nil {
		t.Error("UpsertSessions for unknown project succeeded, want foreign key error")
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	seedProject(t, c, "/a", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/b", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	seedProject(t, c, "/c", "2026-01-01T10:00:00Z", "2026-01-01T11:00:00Z")
	_ = c.SetHidden("/a", true)
	_ = c.Merge([]string{"/b"}, "/c")
	if _, err := c.CreateGroup("g", nil); err != nil {
		t.Fatal(err)
	}

	s, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	want := model.CacheStats{Projects: 3, HiddenProjects: 1, MergedProjects: 1, Sessions: 3, Groups: 1}
	if s != want {
		t.Errorf("Stats = %+v, want %+v", s, want)
	}
}
