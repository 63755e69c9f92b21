package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
)

// TopProjectsLimit caps MonthlySummary.TopProjects.
const TopProjectsLimit = 5

// MonthlySummary aggregates sessions created during month ("2006-01") in
// the cache's location. Sessions of merged projects count toward their
// merge target.
func (c *Cache) MonthlySummary(month string) (*model.MonthlySummary, error) {
	start, err := time.ParseInLocation("2006-01", month, c.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}
	end := start.AddDate(0, 1, 0)

	rows, err := c.db.Query(`
		SELECT COALESCE(t.path, p.path), COALESCE(t.name, p.name), s.created_ms, s.duration_ms
		FROM sessions s
		JOIN projects p ON p.path = s.project_path
		LEFT JOIN projects t ON t.path = p.merged_into
		WHERE s.created_ms >= ? AND s.created_ms < ?
		ORDER BY s.created_ms, s.session_id`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying month %s: %w", month, err)
	}
	defer func() { _ = rows.Close() }()

	summary := &model.MonthlySummary{
		Month:       start.Format("2006-01"),
		Days:        []model.DayStats{},
		TopProjects: []model.ProjectDuration{},
	}
	days := make(map[string]*model.DayStats)
	projects := make(map[string]*model.ProjectDuration)
	var order []string

	for rows.Next() {
		var (
			path, name string
			createdMs  int64
			durationMs int64
		)
		if err := rows.Scan(&path, &name, &createdMs, &durationMs); err != nil {
			return nil, err
		}
		summary.TotalSessions++
		summary.TotalDurationMs += durationMs

		day := time.UnixMilli(createdMs).In(c.loc).Format("2006-01-02")
		d, ok := days[day]
		if !ok {
			d = &model.DayStats{Date: day}
			days[day] = d
		}
		d.Sessions++
		d.DurationMs += durationMs

		pd, ok := projects[path]
		if !ok {
			pd = &model.ProjectDuration{Path: path, Name: name}
			projects[path] = pd
			order = append(order, path)
		}
		pd.Sessions++
		pd.DurationMs += durationMs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range days {
		summary.Days = append(summary.Days, *d)
	}
	sort.Slice(summary.Days, func(i, j int) bool {
		return summary.Days[i].Date < summary.Days[j].Date
	})

	for _, path := range order {
		summary.TopProjects = append(summary.TopProjects, *projects[path])
	}
	sort.SliceStable(summary.TopProjects, func(i, j int) bool {
		return summary.TopProjects[i].DurationMs > summary.TopProjects[j].DurationMs
	})
	if len(summary.TopProjects) > TopProjectsLimit {
		summary.TopProjects = summary.TopProjects[:TopProjectsLimit]
	}

	summary.EstimatedCostUSD = float64(summary.TotalDurationMs) / 60000 * c.costPerMinute
	return summary, nil
}
