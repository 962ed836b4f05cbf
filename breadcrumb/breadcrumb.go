package breadcrumb

import "strings"

const RootLabel = "home"

// Item is one navigable step of the trail.
type Item struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Build derives the trail for a path. The root item always comes first,
// empty segments are skipped.
func Build(path string) []Item {
	items := []Item{{Label: RootLabel, Path: "/"}}

	var prefix strings.Builder
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		prefix.WriteString("/")
		prefix.WriteString(segment)
		items = append(items, Item{
			Label: segment,
			Path:  prefix.String(),
		})
	}

	return items
}
