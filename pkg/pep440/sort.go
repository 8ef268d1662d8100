package pep440

import "sort"

// SortDescending sorts versions in place from newest to oldest. Unknown
// versions sink to the end in descending string order, keeping output
// deterministic.
func SortDescending(versions []*Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].GreaterThan(versions[j])
	})
}

// SortStrings parses and sorts version strings in descending order,
// dropping strings that do not parse.
func SortStrings(raw []string) []*Version {
	parsed := make([]*Version, 0, len(raw))
	for _, s := range raw {
		v := Parse(s)
		if v.Unknown {
			continue
		}
		parsed = append(parsed, v)
	}
	SortDescending(parsed)
	return parsed
}
