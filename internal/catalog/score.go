// file: internal/catalog/score.go
// version: 1.0.0
// guid: 1f6c8a3d-4b9e-47d2-a8f5-0c3e7d1b6a84

package catalog

import (
	"log"
	"math"
	"sort"
	"strings"

	"github.com/rodaddy/audiobook-pipeline/internal/matcher"
)

// Score annotates each candidate with a similarity score against the hints
// and returns them sorted descending. Weights: title 60%, author 30%,
// search-rank bonus up to 10. Ties keep the original search order.
func Score(candidates []Candidate, titleHint, authorHint string) []Candidate {
	scored := make([]Candidate, len(candidates))
	copy(scored, candidates)

	for i := range scored {
		titleScore := matcher.TokenSortRatio(
			strings.ToLower(titleHint), strings.ToLower(scored[i].Title)) * 0.6

		authorScore := 0.0
		if authorHint != "" {
			for _, a := range scored[i].Authors {
				s := matcher.PartialRatio(strings.ToLower(authorHint), strings.ToLower(a))
				if s > authorScore {
					authorScore = s
				}
			}
			authorScore *= 0.3
		}

		rankBonus := math.Max(float64(10-i*2), 0)

		total := titleScore + authorScore + rankBonus
		scored[i].Score = math.Round(total*10) / 10
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > 0 {
		log.Printf("[DEBUG] catalog: best match %q score=%.0f", scored[0].Title, scored[0].Score)
	}
	return scored
}
