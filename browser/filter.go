package browser

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fioncat/vbrowse/types"
)

// FilterEntries keeps the entries whose name matches the glob pattern,
// preserving listing order. An empty pattern keeps everything.
func FilterEntries(ents []*types.Entry, pattern string) ([]*types.Entry, error) {
	if pattern == "" {
		return ents, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern %q", pattern)
	}

	filtered := make([]*types.Entry, 0, len(ents))
	for _, ent := range ents {
		ok, err := doublestar.Match(pattern, ent.Name)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", ent.Name, err)
		}
		if ok {
			filtered = append(filtered, ent)
		}
	}
	return filtered, nil
}
