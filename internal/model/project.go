package model

import "time"

// UnknownProjectName is the display name used for the root or an empty path.
const UnknownProjectName = "Unknown"

// Project is a cached Claude Code project keyed by its decoded filesystem path.
//
// Name, FirstActivity, LastActivity, SessionCount, MessageCount and
// TotalDurationMs are owned by sync. The remaining fields are user metadata
// and are only changed through explicit store calls.
type Project struct {
	Path            string
	Name            string
	FirstActivity   time.Time
	LastActivity    time.Time
	SessionCount    int
	MessageCount    int
	TotalDurationMs int64

	Hidden     bool
	GroupID    *string
	IsDefault  bool
	MergedInto *string
}

// IsMerged reports whether the project has been merged into another one.
func (p Project) IsMerged() bool {
	return p.MergedInto != nil
}

// Group is a user-defined collection of projects.
type Group struct {
	ID        string
	Name      string
	Color     *string
	CreatedAt time.Time
	SortOrder int
}

// GroupUpdate is a partial patch for a group. Nil fields are left unchanged;
// a Color pointing at "" clears the color.
type GroupUpdate struct {
	Name  *string
	Color *string
}

// IsZero reports whether the patch changes nothing.
func (u GroupUpdate) IsZero() bool {
	return u.Name == nil && u.Color == nil
}
