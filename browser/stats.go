package browser

import "github.com/fioncat/vbrowse/types"

type Stats struct {
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
	Bytes   int64 `json:"bytes"`
}

func ComputeStats(ents []*types.Entry) Stats {
	var stats Stats
	for _, ent := range ents {
		if ent.IsFolder() {
			stats.Folders++
			continue
		}
		stats.Files++
		stats.Bytes += ent.Size
	}
	return stats
}
