// Package pathcodec converts between Claude Code's encoded project directory
// names and real filesystem paths.
//
// Claude Code stores each project under a directory whose name is the
// project's absolute path with every "/" and "." replaced by "-". The
// encoding is lossy, so decoding walks the filesystem, matching directory
// entries by their encoded names, to find which separators were slashes,
// which were dots, and which were literal hyphens.
// When the original tree no longer exists the decoder falls back to treating
// every separator as "/", which is wrong for names containing dots or
// hyphens. That limitation is inherent to the encoding.
package pathcodec

import (
	"os"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/theirongolddev/ccproj/internal/model"
)

// Separator is the character that replaces "/" and "." in encoded names.
const Separator = '-'

// Encode maps an absolute path to its encoded directory name.
func Encode(p string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '.' {
			return Separator
		}
		return r
	}, p)
}

// IsEncoded reports whether name follows the encoded-path convention.
func IsEncoded(name string) bool {
	return len(name) > 0 && name[0] == Separator
}

// Decode resolves an encoded directory name against the live filesystem.
// It is shorthand for NewDecoder(nil).Decode(token).
func Decode(token string) string {
	return NewDecoder(nil).Decode(token)
}

// ProjectName returns the last non-empty segment of p, or
// model.UnknownProjectName for the root or an empty path.
func ProjectName(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return model.UnknownProjectName
}

// Entry is one directory entry as seen by a Lister.
type Entry struct {
	Name  string
	IsDir bool // true for directories and symlinks to directories
}

// Lister returns the entries of dir, or nil when dir cannot be read.
type Lister func(dir string) []Entry

// ReadDirLister lists dir on the real filesystem, following symlinks when
// reporting IsDir.
func ReadDirLister(dir string) []Entry {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			fi, err := os.Stat(path.Join(dir, de.Name()))
			isDir = err == nil && fi.IsDir()
		}
		entries = append(entries, Entry{Name: de.Name(), IsDir: isDir})
	}
	return entries
}

// Decoder decodes encoded directory names, memoizing directory listings.
// A Decoder assumes the filesystem does not change while it is in use, so
// create one per sync pass. It is safe for concurrent use.
type Decoder struct {
	list Lister

	mu    sync.Mutex
	cache map[string][]Entry
}

// NewDecoder returns a Decoder using list, or ReadDirLister when list is nil.
func NewDecoder(list Lister) *Decoder {
	if list == nil {
		list = ReadDirLister
	}
	return &Decoder{
		list:  list,
		cache: make(map[string][]Entry),
	}
}

// Decode returns the filesystem path encoded by token.
func (d *Decoder) Decode(token string) string {
	body := strings.TrimPrefix(token, string(Separator))
	if body == "" {
		return "/"
	}
	segs := strings.Split(body, string(Separator))

	dead := make(map[string]struct{})
	if p, ok := d.resolve("/", segs, 0, dead); ok {
		return p
	}
	return path.Clean("/" + strings.Join(segs, "/"))
}

type match struct {
	entry Entry
	span  int // encoded segments covered
}

// resolve finds a path under dir matching segs[pos:]. An entry matches when
// its encoded name equals the next run of segments. Longer runs are tried
// first, and among equal runs dots win over literal separators.
// Intermediate components must be directories; the final component may be
// anything that exists. dead records (dir, pos) states already known to
// have no match.
func (d *Decoder) resolve(dir string, segs []string, pos int, dead map[string]struct{}) (string, bool) {
	key := dir + "\x00" + strconv.Itoa(pos)
	if _, ok := dead[key]; ok {
		return "", false
	}

	for _, m := range matches(d.entries(dir), segs[pos:]) {
		candidate := path.Join(dir, m.entry.Name)
		if pos+m.span == len(segs) {
			return candidate, true
		}
		if !m.entry.IsDir {
			continue
		}
		if p, ok := d.resolve(candidate, segs, pos+m.span, dead); ok {
			return p, true
		}
	}

	dead[key] = struct{}{}
	return "", false
}

func (d *Decoder) entries(dir string) []Entry {
	d.mu.Lock()
	e, ok := d.cache[dir]
	d.mu.Unlock()
	if ok {
		return e
	}

	e = d.list(dir)

	d.mu.Lock()
	d.cache[dir] = e
	d.mu.Unlock()
	return e
}

// matches returns the entries whose encoded name is a prefix run of segs,
// ordered by span (longest first) and then by name with "." ahead of "-".
func matches(entries []Entry, segs []string) []match {
	var out []match
	for _, e := range entries {
		parts := strings.Split(Encode(e.Name), string(Separator))
		if len(parts) > len(segs) || !slices.Equal(parts, segs[:len(parts)]) {
			continue
		}
		out = append(out, match{entry: e, span: len(parts)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].span != out[j].span {
			return out[i].span > out[j].span
		}
		return out[i].entry.Name > out[j].entry.Name
	})
	return out
}
