package store

import (
	"fmt"
)

func (c *Cache) migrate() error {
	if _, err := c.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for _, m := range migrations {
		has, err := c.hasColumn(m.table, m.column)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", m.table, err)
		}
		if !has {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
			if _, err := c.db.Exec(stmt); err != nil {
				return fmt.Errorf("adding %s.%s: %w", m.table, m.column, err)
			}
			c.log.Info("cache migration applied", "table", m.table, "column", m.column)
		}
		for _, stmt := range m.after {
			if _, err := c.db.Exec(stmt); err != nil {
				return fmt.Errorf("migrating %s.%s: %w", m.table, m.column, err)
			}
		}
	}
	return nil
}

func (c *Cache) hasColumn(table, column string) (bool, error) {
	rows, err := c.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
