package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/ccproj/internal/model"
	"github.com/theirongolddev/ccproj/internal/store"
)

// resolveProject finds a cached project by exact path, by path relative to
// the working directory, or by a unique project name.
func resolveProject(cache *store.Cache, arg string) (*model.Project, error) {
	if p, err := cache.GetProject(arg); err != nil || p != nil {
		return p, err
	}
	if abs, err := filepath.Abs(arg); err == nil {
		if p, err := cache.GetProject(abs); err != nil || p != nil {
			return p, err
		}
	}

	all, err := cache.ListProjects(true)
	if err != nil {
		return nil, err
	}
	var matches []model.Project
	for _, p := range all {
		if strings.EqualFold(p.Name, arg) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", arg, store.ErrProjectNotFound)
	case 1:
		return &matches[0], nil
	default:
		paths := make([]string, len(matches))
		for i, p := range matches {
			paths[i] = p.Path
		}
		return nil, fmt.Errorf("%q matches %d projects, use a full path: %s",
			arg, len(matches), strings.Join(paths, ", "))
	}
}

// resolveGroup finds a group by ID or by case-insensitive name.
func resolveGroup(cache *store.Cache, arg string) (*model.Group, error) {
	if g, err := cache.GetGroup(arg); err != nil || g != nil {
		return g, err
	}
	groups, err := cache.ListGroups()
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, arg) {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", arg, store.ErrGroupNotFound)
}

func groupNames(cache *store.Cache) (map[string]string, error) {
	groups, err := cache.ListGroups()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names, nil
}
