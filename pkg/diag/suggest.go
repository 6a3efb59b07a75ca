package diag

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns the candidate closest to target, or "" when nothing is close.
// Ties go to the alphabetically first candidate, so the answer does not depend
// on the order candidates were collected in.
func Suggest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	ranks := fuzzy.RankFindFold(target, sorted)
	if len(ranks) == 0 {
		return ""
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})

	if ranks[0].Target == target {
		return ""
	}
	return ranks[0].Target
}
