// file: internal/catalog/candidate.go
// version: 1.0.0
// guid: 5e2a8c4d-9f1b-4730-86e5-a3d7c0b94f12

package catalog

import (
	"strconv"
	"strings"
)

// SeriesRef is one series membership of a catalog listing.
type SeriesRef struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

// Candidate is one catalog search result. Score is zero until the result
// has been through the scorer.
type Candidate struct {
	ASIN             string      `json:"asin"`
	Title            string      `json:"title"`
	Subtitle         string      `json:"subtitle,omitempty"`
	Authors          []string    `json:"authors"`
	AuthorStr        string      `json:"author_str"`
	Series           string      `json:"series,omitempty"`
	Position         string      `json:"position,omitempty"`
	AllSeries        []SeriesRef `json:"all_series,omitempty"`
	NarratorStr      string      `json:"narrator_str,omitempty"`
	Year             string      `json:"year,omitempty"`
	CoverURL         string      `json:"cover_url,omitempty"`
	PublisherSummary string      `json:"publisher_summary,omitempty"`
	PublisherName    string      `json:"publisher_name,omitempty"`
	Copyright        string      `json:"copyright,omitempty"`
	Language         string      `json:"language,omitempty"`
	Genre            string      `json:"genre,omitempty"`
	Score            float64     `json:"score,omitempty"`
}

// primarySeries picks the series to file under when a listing belongs to
// several. The lowest numeric position wins: a book is "#2" in its
// sub-series and "#14" in the umbrella series, and the sub-series is the
// one readers shelve by.
func primarySeries(all []SeriesRef) SeriesRef {
	if len(all) == 0 {
		return SeriesRef{}
	}
	best := all[0]
	bestPos, bestOK := parsePosition(best.Position)
	for _, s := range all[1:] {
		pos, ok := parsePosition(s.Position)
		if !ok {
			continue
		}
		if !bestOK || pos < bestPos {
			best, bestPos, bestOK = s, pos, true
		}
	}
	return best
}

func parsePosition(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
