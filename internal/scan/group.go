package scan

import (
	"sort"
	"time"
)

// GroupWindow is how close to a group's first file a later file must have
// been created to count as another page of the same document. The window is
// anchored at the group start and does not slide, so a long run of files each
// a few seconds apart still breaks into bounded groups.
const GroupWindow = 60 * time.Second

// Group is an ordered set of scan files believed to be pages of one logical
// document. Index is the authoritative per-pass key; Label is a human-readable
// timestamp tag for logs and carries no uniqueness guarantee.
type Group struct {
	Index int
	Label string
	Files []ScanFile
}

// Anchor returns the group's first file.
func (g Group) Anchor() ScanFile {
	return g.Files[0]
}

// BuildGroups partitions files into document groups by creation-time
// proximity. Files are sorted ascending by creation time, then walked once:
// a file within GroupWindow of the current group's anchor joins that group,
// otherwise it starts a new one. Zero files yield nil; a size-1 group is a
// legitimate single-page document.
func BuildGroups(files []ScanFile) []Group {
	if len(files) == 0 {
		return nil
	}

	sorted := make([]ScanFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	groups := []Group{newGroup(1, sorted[0])}
	for _, f := range sorted[1:] {
		current := &groups[len(groups)-1]
		if f.CreatedAt.Sub(current.Anchor().CreatedAt) <= GroupWindow {
			current.Files = append(current.Files, f)
			continue
		}
		groups = append(groups, newGroup(len(groups)+1, f))
	}
	return groups
}

func newGroup(index int, anchor ScanFile) Group {
	return Group{
		Index: index,
		Label: anchor.CreatedAt.Format("20060102_150405"),
		Files: []ScanFile{anchor},
	}
}
