package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/ccproj/internal/model"
)

// Merge folds sources into target. The target must exist and must not be
// merged itself; on either failure nothing changes. A source equal to the
// target is skipped. Projects previously merged into a source are moved to
// the target so the graph stays one level deep.
func (c *Cache) Merge(sources []string, target string) error {
	return c.withTx(func(tx *sql.Tx) error {
		var mergedInto sql.NullString
		err := tx.QueryRow(`SELECT merged_into FROM projects WHERE path = ?`, target).Scan(&mergedInto)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", target, ErrMergeTargetNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading merge target: %w", err)
		}
		if mergedInto.Valid {
			return fmt.Errorf("%s is merged into %s: %w", target, mergedInto.String, ErrMergeTargetIsMerged)
		}

		for _, src := range sources {
			if src == target {
				continue
			}
			if _, err := tx.Exec(`UPDATE projects SET merged_into = ? WHERE merged_into = ?`, target, src); err != nil {
				return fmt.Errorf("re-pointing projects merged into %s: %w", src, err)
			}
			if _, err := tx.Exec(`UPDATE projects SET merged_into = ? WHERE path = ?`, target, src); err != nil {
				return fmt.Errorf("merging %s: %w", src, err)
			}
		}
		return nil
	})
}

// Unmerge clears the merge target of a project. Unknown or unmerged paths
// are not an error.
func (c *Cache) Unmerge(path string) error {
	if _, err := c.db.Exec(`UPDATE projects SET merged_into = NULL WHERE path = ?`, path); err != nil {
		return fmt.Errorf("unmerging %s: %w", path, err)
	}
	return nil
}

// ListMerged returns the projects merged into primary, most recently active first.
func (c *Cache) ListMerged(primary string) ([]model.Project, error) {
	out, err := queryProjects(c.db, `SELECT `+projectColumns+` FROM projects
		WHERE merged_into = ? ORDER BY last_activity_ms DESC, path`, primary)
	if err != nil {
		return nil, fmt.Errorf("listing projects merged into %s: %w", primary, err)
	}
	return out, nil
}
