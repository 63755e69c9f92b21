package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/ccproj/internal/model"
)

const groupColumns = `id, name, color, created_at_ms, sort_order`

func scanGroup(r rowScanner) (model.Group, error) {
	var (
		g       model.Group
		color   sql.NullString
		created int64
	)
	if err := r.Scan(&g.ID, &g.Name, &color, &created, &g.SortOrder); err != nil {
		return g, err
	}
	g.Color = stringPtr(color)
	g.CreatedAt = time.UnixMilli(created).UTC()
	return g, nil
}

// CreateGroup adds a group at the end of the current ordering.
func (c *Cache) CreateGroup(name string, color *string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("group name is empty")
	}

	g := model.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	err := c.withTx(func(tx *sql.Tx) error {
		if err := tx.QueryRow(`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM project_groups`).Scan(&g.SortOrder); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO project_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?)`,
			g.ID, g.Name, nullString(g.Color), g.CreatedAt.UnixMilli(), g.SortOrder)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating group %q: %w", name, err)
	}
	return &g, nil
}

// GetGroup returns the group with the given ID, or nil if none.
func (c *Cache) GetGroup(id string) (*model.Group, error) {
	g, err := scanGroup(c.db.QueryRow(`SELECT `+groupColumns+` FROM project_groups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading group %s: %w", id, err)
	}
	return &g, nil
}

// ListGroups returns all groups in display order.
func (c *Cache) ListGroups() ([]model.Group, error) {
	rows, err := c.db.Query(`SELECT ` + groupColumns + ` FROM project_groups
		ORDER BY sort_order, created_at_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateGroup applies a partial patch. It returns nil when the group does
// not exist and the unchanged record when the patch is empty.
func (c *Cache) UpdateGroup(id string, patch model.GroupUpdate) (*model.Group, error) {
	g, err := c.GetGroup(id)
	if err != nil || g == nil || patch.IsZero() {
		return g, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errors.New("group name is empty")
		}
		g.Name = name
	}
	if patch.Color != nil {
		if *patch.Color == "" {
			g.Color = nil
		} else {
			color := *patch.Color
			g.Color = &color
		}
	}

	if _, err := c.db.Exec(`UPDATE project_groups SET name = ?, color = ? WHERE id = ?`,
		g.Name, nullString(g.Color), id); err != nil {
		return nil, fmt.Errorf("updating group %s: %w", id, err)
	}
	return g, nil
}

// DeleteGroup removes a group. Member projects become ungrouped; nothing
// else about them changes.
func (c *Cache) DeleteGroup(id string) error {
	err := c.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE projects SET group_id = NULL WHERE group_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM project_groups WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	return nil
}

// ReorderGroups assigns sort orders following the given ID order. Groups
// not listed keep their previous position value.
func (c *Cache) ReorderGroups(ids []string) error {
	return c.withTx(func(tx *sql.Tx) error {
		for i, id := range ids {
			res, err := tx.Exec(`UPDATE project_groups SET sort_order = ? WHERE id = ?`, i, id)
			if err != nil {
				return fmt.Errorf("reordering group %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reordering group %s: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("%s: %w", id, ErrGroupNotFound)
			}
		}
		return nil
	})
}
