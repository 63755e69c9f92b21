package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/theirongolddev/ccproj/internal/model"
)

const upsertSessionSQL = `
INSERT INTO sessions (session_id, project_path, created_ms, modified_ms, duration_ms,
	message_count, summary, first_prompt, git_branch)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	project_path = excluded.project_path,
	created_ms = excluded.created_ms,
	modified_ms = excluded.modified_ms,
	duration_ms = excluded.duration_ms,
	message_count = excluded.message_count,
	summary = excluded.summary,
	first_prompt = excluded.first_prompt,
	git_branch = excluded.git_branch`

func upsertSessions(tx *sql.Tx, sessions []model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(upsertSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing session upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range sessions {
		_, err := stmt.Exec(s.ID, s.ProjectPath, s.Created.UnixMilli(), s.Modified.UnixMilli(),
			s.DurationMs, s.MessageCount, nullString(s.Summary), nullString(s.FirstPrompt),
			nullString(s.GitBranch))
		if err != nil {
			return fmt.Errorf("upserting session %s: %w", s.ID, err)
		}
	}
	return nil
}

// UpsertSessions inserts or replaces sessions by ID. Each session's project
// must already exist.
func (c *Cache) UpsertSessions(sessions []model.Session) error {
	return c.withTx(func(tx *sql.Tx) error {
		return upsertSessions(tx, sessions)
	})
}

// ListSessions returns the sessions of the given projects, most recently
// modified first.
func (c *Cache) ListSessions(paths ...string) ([]model.Session, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	rows, err := c.db.Query(`
		SELECT session_id, project_path, created_ms, modified_ms, duration_ms,
			message_count, summary, first_prompt, git_branch
		FROM sessions
		WHERE project_path IN (`+placeholders+`)
		ORDER BY modified_ms DESC, session_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Session
	for rows.Next() {
		var (
			s                               model.Session
			created, modified               int64
			summary, firstPrompt, gitBranch sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.ProjectPath, &created, &modified, &s.DurationMs,
			&s.MessageCount, &summary, &firstPrompt, &gitBranch); err != nil {
			return nil, err
		}
		s.Created = fromMs(sql.NullInt64{Int64: created, Valid: true})
		s.Modified = fromMs(sql.NullInt64{Int64: modified, Valid: true})
		s.Summary = stringPtr(summary)
		s.FirstPrompt = stringPtr(firstPrompt)
		s.GitBranch = stringPtr(gitBranch)
		out = append(out, s)
	}
	return out, rows.Err()
}
