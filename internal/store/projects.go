package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/ccproj/internal/model"
)

const projectColumns = `path, name, first_activity_ms, last_activity_ms, session_count,
	message_count, total_duration_ms, hidden, group_id, is_default, merged_into`

// Sync-owned fields only. Activity bounds widen, never shrink.
const upsertProjectSQL = `
INSERT INTO projects (path, name, first_activity_ms, last_activity_ms,
	session_count, message_count, total_duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	name = excluded.name,
	first_activity_ms = CASE
		WHEN projects.first_activity_ms IS NULL
		  OR excluded.first_activity_ms < projects.first_activity_ms
		THEN excluded.first_activity_ms
		ELSE projects.first_activity_ms END,
	last_activity_ms = CASE
		WHEN projects.last_activity_ms IS NULL
		  OR excluded.last_activity_ms > projects.last_activity_ms
		THEN excluded.last_activity_ms
		ELSE projects.last_activity_ms END,
	session_count = excluded.session_count,
	message_count = excluded.message_count,
	total_duration_ms = excluded.total_duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (model.Project, error) {
	var (
		p                   model.Project
		first, last         sql.NullInt64
		hidden, isDefault   int
		groupID, mergedInto sql.NullString
	)
	err := r.Scan(&p.Path, &p.Name, &first, &last, &p.SessionCount,
		&p.MessageCount, &p.TotalDurationMs, &hidden, &groupID, &isDefault, &mergedInto)
	if err != nil {
		return p, err
	}
	p.FirstActivity = fromMs(first)
	p.LastActivity = fromMs(last)
	p.Hidden = hidden != 0
	p.IsDefault = isDefault != 0
	p.GroupID = stringPtr(groupID)
	p.MergedInto = stringPtr(mergedInto)
	return p, nil
}

func queryProjects(q queryer, query string, args ...any) ([]model.Project, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func upsertProject(q queryer, p model.Project) error {
	_, err := q.Exec(upsertProjectSQL, p.Path, p.Name, toMs(p.FirstActivity), toMs(p.LastActivity),
		p.SessionCount, p.MessageCount, p.TotalDurationMs)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.Path, err)
	}
	return nil
}

// UpsertProject inserts or refreshes the sync-owned fields of a project.
// Hidden, group, default and merge metadata are left untouched.
func (c *Cache) UpsertProject(p model.Project) error {
	return upsertProject(c.db, p)
}

// SaveProject upserts a project and its sessions in one transaction.
func (c *Cache) SaveProject(p model.Project, sessions []model.Session) error {
	return c.withTx(func(tx *sql.Tx) error {
		if err := upsertProject(tx, p); err != nil {
			return err
		}
		for i := range sessions {
			sessions[i].ProjectPath = p.Path
		}
		return upsertSessions(tx, sessions)
	})
}

// GetProject returns the project stored under path, or nil if none.
func (c *Cache) GetProject(path string) (*model.Project, error) {
	p, err := scanProject(c.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", path, err)
	}
	return &p, nil
}

// ListProjects returns projects ordered by last activity, newest first.
func (c *Cache) ListProjects(includeHidden bool) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeHidden {
		query += ` WHERE hidden = 0`
	}
	query += ` ORDER BY last_activity_ms DESC, path`
	return queryProjects(c.db, query)
}

// GroupMembers returns the projects assigned to a group.
func (c *Cache) GroupMembers(groupID string) ([]model.Project, error) {
	return queryProjects(c.db, `SELECT `+projectColumns+` FROM projects
		WHERE group_id = ? ORDER BY last_activity_ms DESC, path`, groupID)
}

func updateProject(q queryer, path, query string, args ...any) error {
	res, err := q.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrProjectNotFound)
	}
	return nil
}

// SetHidden sets the visibility flag of a project.
func (c *Cache) SetHidden(path string, hidden bool) error {
	return updateProject(c.db, path, `UPDATE projects SET hidden = ? WHERE path = ?`, boolInt(hidden), path)
}

// SetGroup assigns a project to a group. A nil groupID removes it from its group.
func (c *Cache) SetGroup(path string, groupID *string) error {
	return c.withTx(func(tx *sql.Tx) error {
		if groupID != nil {
			var one int
			err := tx.QueryRow(`SELECT 1 FROM project_groups WHERE id = ?`, *groupID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s: %w", *groupID, ErrGroupNotFound)
			}
			if err != nil {
				return fmt.Errorf("checking group %s: %w", *groupID, err)
			}
		}
		return updateProject(tx, path, `UPDATE projects SET group_id = ? WHERE path = ?`, nullString(groupID), path)
	})
}

// SetDefault makes path the single default project.
func (c *Cache) SetDefault(path string) error {
	return c.withTx(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM projects WHERE path = ?`, path).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", path, ErrProjectNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE projects SET is_default = 0 WHERE is_default = 1 AND path <> ?`, path); err != nil {
			return fmt.Errorf("clearing default: %w", err)
		}
		if _, err := tx.Exec(`UPDATE projects SET is_default = 1 WHERE path = ?`, path); err != nil {
			return fmt.Errorf("setting default: %w", err)
		}
		return nil
	})
}

// ClearDefault removes the default flag from every project.
func (c *Cache) ClearDefault() error {
	_, err := c.db.Exec(`UPDATE projects SET is_default = 0 WHERE is_default = 1`)
	return err
}

// DefaultProject returns the default project, or nil if none is set.
func (c *Cache) DefaultProject() (*model.Project, error) {
	p, err := scanProject(c.db.QueryRow(`SELECT ` + projectColumns + ` FROM projects WHERE is_default = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading default project: %w", err)
	}
	return &p, nil
}

// DeleteOrphaned removes every project whose path is not in validPaths,
// hidden projects included. Their sessions go with them.
func (c *Cache) DeleteOrphaned(validPaths []string) (int, error) {
	valid := make(map[string]struct{}, len(validPaths))
	for _, p := range validPaths {
		valid[p] = struct{}{}
	}

	deleted := 0
	err := c.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT path FROM projects`)
		if err != nil {
			return err
		}
		var orphans []string
		for rows.Next() {
			var path string
			if err := rows.Scan(&path); err != nil {
				_ = rows.Close()
				return err
			}
			if _, ok := valid[path]; !ok {
				orphans = append(orphans, path)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, path := range orphans {
			if _, err := tx.Exec(`DELETE FROM projects WHERE path = ?`, path); err != nil {
				return fmt.Errorf("deleting %s: %w", path, err)
			}
		}
		deleted = len(orphans)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting orphaned projects: %w", err)
	}
	if deleted > 0 {
		c.log.Info("orphaned projects deleted", "count", deleted)
	}
	return deleted, nil
}

// Stats returns row counts for the cache.
func (c *Cache) Stats() (model.CacheStats, error) {
	var s model.CacheStats
	err := c.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM projects WHERE hidden = 1),
			(SELECT COUNT(*) FROM projects WHERE merged_into IS NOT NULL),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM project_groups)`).
		Scan(&s.Projects, &s.HiddenProjects, &s.MergedProjects, &s.Sessions, &s.Groups)
	if err != nil {
		return s, fmt.Errorf("counting cache rows: %w", err)
	}
	return s, nil
}
