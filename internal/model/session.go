// Package model defines domain types for ccproj projects, sessions and analytics.
package model

import "time"

// Session is one recorded unit of Claude Code activity, as listed in a
// project's sessions index.
type Session struct {
	ID           string
	ProjectPath  string
	Created      time.Time
	Modified     time.Time
	DurationMs   int64 // Modified - Created; negative when the source is inconsistent
	MessageCount int
	Summary      *string
	FirstPrompt  *string
	GitBranch    *string
}

// Duration returns the session duration as a time.Duration.
func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}
