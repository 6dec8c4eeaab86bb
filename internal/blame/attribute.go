package blame

import (
	"github.com/scan-io-git/crnow/internal/findings"
)

// Attribute assigns each finding to the first developer in tags whose lines contain the finding line.
// The input is not modified. Findings no developer claims keep findings.UnknownDeveloper.
func Attribute(fs []findings.Finding, tags TagMap) []findings.Finding {
	owners := make([]map[int]struct{}, len(tags))
	for i, entry := range tags {
		owners[i] = make(map[int]struct{}, len(entry.Lines))
		for _, line := range entry.Lines {
			owners[i][line] = struct{}{}
		}
	}

	attributed := make([]findings.Finding, len(fs))
	for i, f := range fs {
		f.Developer = findings.UnknownDeveloper
		for j, entry := range tags {
			if entry.Developer == findings.UnknownDeveloper || entry.Developer == "" {
				continue
			}
			if _, ok := owners[j][f.Line]; ok {
				f.Developer = entry.Developer
				break
			}
		}
		attributed[i] = f
	}
	return attributed
}

// FilterByOwnership drops findings nobody owns unless includeUnknown is set.
func FilterByOwnership(fs []findings.Finding, includeUnknown bool) []findings.Finding {
	filtered := make([]findings.Finding, 0, len(fs))
	for _, f := range fs {
		if includeUnknown || f.IsOwned() {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
