package model

// MonthlySummary holds the analytics rollup for one calendar month.
type MonthlySummary struct {
	Month            string // "2006-01"
	TotalSessions    int
	TotalDurationMs  int64
	Days             []DayStats
	TopProjects      []ProjectDuration
	EstimatedCostUSD float64
}

// DayStats holds session activity for a single calendar day.
type DayStats struct {
	Date       string // "2006-01-02"
	Sessions   int
	DurationMs int64
}

// ProjectDuration is one entry of the top-projects ranking.
type ProjectDuration struct {
	Path       string
	Name       string
	Sessions   int
	DurationMs int64
}

// CacheStats holds row counts for the cache.
type CacheStats struct {
	Projects       int
	HiddenProjects int
	MergedProjects int
	Sessions       int
	Groups         int
}
