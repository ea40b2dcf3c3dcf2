package tags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/notecore/internal/apperr"
)

// Registry owns the single Tag instance for every normalized name.
// Internal tags (system tags and properties) are kept apart from user tags.
type Registry struct {
	user     map[string]*Tag
	internal map[string]*Tag
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		user:     make(map[string]*Tag),
		internal: make(map[string]*Tag),
	}
}

func isInternal(normalized string) bool {
	return strings.HasPrefix(normalized, SystemTagPrefix) || len(strings.Split(normalized, ":")) > 2
}

func (r *Registry) table(normalized string) map[string]*Tag {
	if isInternal(normalized) {
		return r.internal
	}
	return r.user
}

// GetTag looks up a tag by name. Blank names never match.
func (r *Registry) GetTag(name string) (*Tag, bool) {
	key := Normalize(name)
	if key == "" {
		return nil, false
	}
	t, ok := r.table(key)[key]
	return t, ok
}

// GetOrCreateTag returns the tag for name, creating it on first use.
func (r *Registry) GetOrCreateTag(name string) (*Tag, error) {
	key := Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("tags: get or create %q: %w", name, apperr.ErrInvalidTag)
	}
	tbl := r.table(key)
	if t, ok := tbl[key]; ok {
		return t, nil
	}
	t := newTag(name)
	tbl[key] = t
	return t, nil
}

// GetSystemTag looks up system:<name>.
func (r *Registry) GetSystemTag(name string) (*Tag, bool) {
	return r.GetTag(SystemTagPrefix + name)
}

// GetOrCreateSystemTag returns system:<name>, creating it on first use.
func (r *Registry) GetOrCreateSystemTag(name string) (*Tag, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("tags: get or create system tag: %w", apperr.ErrInvalidTag)
	}
	return r.GetOrCreateTag(SystemTagPrefix + name)
}

// RemoveTag drops tag from the registry. Notes still carrying it are left
// untouched; callers untag them first.
func (r *Registry) RemoveTag(t *Tag) {
	if t == nil {
		return
	}
	tbl := r.table(t.normalized)
	if cur, ok := tbl[t.normalized]; ok && cur == t {
		delete(tbl, t.normalized)
	}
}

// AllTags returns every registered tag, user and internal, ordered by normalized name.
func (r *Registry) AllTags() []*Tag {
	out := make([]*Tag, 0, len(r.user)+len(r.internal))
	for _, t := range r.user {
		out = append(out, t)
	}
	for _, t := range r.internal {
		out = append(out, t)
	}
	sortTags(out)
	return out
}

// UserTags returns the tags a user applied directly.
func (r *Registry) UserTags() []*Tag {
	out := make([]*Tag, 0, len(r.user))
	for _, t := range r.user {
		out = append(out, t)
	}
	sortTags(out)
	return out
}

func sortTags(ts []*Tag) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].normalized < ts[j].normalized })
}
