package store

// schemaSQL is the base schema. Columns added after the first release live
// in migrations so existing databases pick them up.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS project_groups (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    color             TEXT,
    created_at_ms     INTEGER NOT NULL,
    sort_order        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    path              TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    first_activity_ms INTEGER,
    last_activity_ms  INTEGER,
    session_count     INTEGER NOT NULL DEFAULT 0,
    message_count     INTEGER NOT NULL DEFAULT 0,
    total_duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id        TEXT PRIMARY KEY,
    project_path      TEXT NOT NULL REFERENCES projects(path) ON DELETE CASCADE,
    created_ms        INTEGER NOT NULL,
    modified_ms       INTEGER NOT NULL,
    duration_ms       INTEGER NOT NULL,
    message_count     INTEGER NOT NULL DEFAULT 0,
    summary           TEXT,
    first_prompt      TEXT
);

CREATE TABLE IF NOT EXISTS settings (
    key               TEXT PRIMARY KEY,
    value             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_ms);
CREATE INDEX IF NOT EXISTS idx_projects_last_activity ON projects(last_activity_ms DESC);
CREATE INDEX IF NOT EXISTS idx_groups_sort ON project_groups(sort_order);
`

// migration adds one column when it is missing. after runs on every open
// once the column exists, so it must be idempotent.
type migration struct {
	table      string
	column     string
	definition string
	after      []string
}

// migrations run in order.
var migrations = []migration{
	{
		table:      "projects",
		column:     "hidden",
		definition: "INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:      "projects",
		column:     "group_id",
		definition: "TEXT REFERENCES project_groups(id) ON DELETE SET NULL",
		after: []string{
			`CREATE INDEX IF NOT EXISTS idx_projects_group ON projects(group_id)`,
		},
	},
	{
		table:      "projects",
		column:     "is_default",
		definition: "INTEGER NOT NULL DEFAULT 0",
		after: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_default ON projects(is_default) WHERE is_default = 1`,
		},
	},
	{
		table:      "projects",
		column:     "merged_into",
		definition: "TEXT REFERENCES projects(path) ON DELETE SET NULL",
		after: []string{
			`CREATE INDEX IF NOT EXISTS idx_projects_merged_into ON projects(merged_into)`,
		},
	},
	{
		table:      "sessions",
		column:     "git_branch",
		definition: "TEXT",
	},
}
