package rankings

import (
	"sort"

	"talentranker/internal/scoring"
)

// SortResults orders relevant resumes first, then by confidence descending.
// Ties keep their input order.
func SortResults(results []ResumeScore) {
	sort.SliceStable(results, func(i, j int) bool {
		ri := results[i].Label == scoring.LabelRelevant
		rj := results[j].Label == scoring.LabelRelevant
		if ri != rj {
			return ri
		}
		return results[i].Confidence > results[j].Confidence
	})
}
