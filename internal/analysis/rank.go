package analysis

import (
	"sort"

	"hpp-sizer/internal/search"
)

type RankedDesign struct {
	Rank int `json:"rank"`
	search.Candidate
	// AboveBest is the score difference to the cheapest design.
	AboveBest float64 `json:"above_best"`
}

// RankFeasible sorts feasible designs by ascending score, keeping input order
// among equal scores, and returns at most top of them (all when top <= 0).
func RankFeasible(points []search.Candidate, top int) []RankedDesign {
	sorted := make([]search.Candidate, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score < sorted[j].Score
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}

	out := make([]RankedDesign, 0, len(sorted))
	for i, c := range sorted {
		out = append(out, RankedDesign{
			Rank:      i + 1,
			Candidate: c,
			AboveBest: c.Score - sorted[0].Score,
		})
	}
	return out
}
