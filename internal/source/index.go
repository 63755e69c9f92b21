// Package source discovers Claude Code project directories and parses their
// session index files.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"

	"github.com/tidwall/gjson"
)

// IndexFileName is the per-project session index written by Claude Code.
const IndexFileName = "sessions-index.json"

// IndexResult holds the validated sessions of one index file plus a
// human-readable diagnostic for every entry (or file) that was skipped.
type IndexResult struct {
	Sessions    []model.Session
	Diagnostics []string
}

// ReadIndex reads <baseDir>/<token>/sessions-index.json and validates its
// entries. A missing file yields an empty result with no diagnostics.
// ProjectPath is left empty on returned sessions; the caller owns the
// decoded project path.
func ReadIndex(baseDir, token string) IndexResult {
	path := filepath.Join(baseDir, token, IndexFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the scanned projects dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return IndexResult{}
		}
		return IndexResult{Diagnostics: []string{fmt.Sprintf("%s: read index: %v", token, err)}}
	}
	return ParseIndex(token, data)
}

// ParseIndex validates raw index bytes. label prefixes every diagnostic.
//
// The document is either an array of entries or the object form
// {"version":N,"entries":[...]}. Each entry accepts camelCase and snake_case
// field names. Entries missing a session id, either timestamp, or carrying
// an unparsable timestamp are skipped with one diagnostic each.
func ParseIndex(label string, data []byte) IndexResult {
	if !gjson.ValidBytes(data) {
		return IndexResult{Diagnostics: []string{fmt.Sprintf("%s: index is not valid JSON", label)}}
	}

	entries, ok := indexEntries(gjson.ParseBytes(data))
	if !ok {
		return IndexResult{Diagnostics: []string{fmt.Sprintf("%s: index is not a list of sessions", label)}}
	}

	var res IndexResult
	for i, e := range entries {
		s, problem := parseEntry(e)
		if problem != "" {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: entry %d: %s", label, i, problem))
			continue
		}
		res.Sessions = append(res.Sessions, s)
	}
	return res
}

func indexEntries(root gjson.Result) ([]gjson.Result, bool) {
	if root.IsArray() {
		return root.Array(), true
	}
	if root.IsObject() {
		if entries := root.Get("entries"); entries.IsArray() {
			return entries.Array(), true
		}
	}
	return nil, false
}

func parseEntry(e gjson.Result) (model.Session, string) {
	if !e.IsObject() {
		return model.Session{}, "not an object"
	}

	id := textField(e, "sessionId", "session_id")
	if id == nil {
		return model.Session{}, "missing session id"
	}

	createdRaw := field(e, "created")
	modifiedRaw := field(e, "modified")
	if !createdRaw.Exists() || !modifiedRaw.Exists() {
		return model.Session{}, fmt.Sprintf("session %s: missing created or modified timestamp", *id)
	}
	created, err := parseTimestamp(createdRaw)
	if err != nil {
		return model.Session{}, fmt.Sprintf("session %s: created: %v", *id, err)
	}
	modified, err := parseTimestamp(modifiedRaw)
	if err != nil {
		return model.Session{}, fmt.Sprintf("session %s: modified: %v", *id, err)
	}

	s := model.Session{
		ID:          *id,
		Created:     created,
		Modified:    modified,
		DurationMs:  modified.Sub(created).Milliseconds(),
		Summary:     textField(e, "summary"),
		FirstPrompt: textField(e, "firstPrompt", "first_prompt"),
		GitBranch:   textField(e, "gitBranch", "git_branch"),
	}
	if mc := field(e, "messageCount", "message_count"); mc.Type == gjson.Number {
		s.MessageCount = int(mc.Int())
	} else if mc.Type == gjson.String {
		s.MessageCount = int(gjson.Parse(strings.TrimSpace(mc.Str)).Int())
	}
	return s, ""
}

// field returns the first of names present and non-null on e.
func field(e gjson.Result, names ...string) gjson.Result {
	for _, n := range names {
		if r := e.Get(n); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// textField returns a non-empty string field, or nil.
func textField(e gjson.Result, names ...string) *string {
	r := field(e, names...)
	if r.Type != gjson.String || r.Str == "" {
		return nil
	}
	s := r.Str
	return &s
}

// parseTimestamp accepts RFC 3339 strings (fractional seconds optional) and
// numeric epoch milliseconds.
func parseTimestamp(r gjson.Result) (time.Time, error) {
	switch r.Type {
	case gjson.String:
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.Str))
		if err != nil {
			return time.Time{}, fmt.Errorf("unparsable timestamp %q", r.Str)
		}
		return ts.UTC(), nil
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unparsable timestamp %s", r.Raw)
	}
}
