// Package analytics computes the dashboard views over bestseller entries.
// Every function here is pure: it never modifies its input and returns
// freshly allocated slices.
package analytics

import (
	"sort"

	"bestsellers/internal/types"
)

const (
	// RankWindow is the "top 5" cut-off used by every aggregation.
	RankWindow = 5
	// TopPublishersLimit is how many publishers the leaderboard shows.
	TopPublishersLimit = 5
)

type PublisherCount struct {
	Publisher string `json:"publisher"`
	Count     int    `json:"count"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Trend is the yearly top-window count for one publisher together with the
// axis hints the chart needs.
type Trend struct {
	Publisher string      `json:"publisher"`
	Years     []YearCount `json:"years"`
	Max       int         `json:"max"`
	Step      int         `json:"step"`
	AxisMax   float64     `json:"axis_max"`
}

// TopPublishers counts entries ranked within windowSize per publisher and
// returns the topN publishers by count. Ties keep the order in which the
// publishers first appear in entries.
func TopPublishers(entries []types.Entry, windowSize, topN int) []PublisherCount {
	if windowSize < 1 || topN < 1 {
		return []PublisherCount{}
	}

	counts := make([]PublisherCount, 0)
	index := make(map[string]int)

	for _, e := range entries {
		if !inWindow(e, windowSize) {
			continue
		}

		ix, ok := index[e.Publisher]
		if !ok {
			ix = len(counts)
			index[e.Publisher] = ix
			counts = append(counts, PublisherCount{Publisher: e.Publisher})
		}

		counts[ix].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > topN {
		counts = counts[:topN]
	}

	return counts
}

// DateSlice returns the entries published on date ordered by rank. A date
// absent from entries gives an empty slice.
func DateSlice(entries []types.Entry, date types.Date) []types.Entry {
	ret := make([]types.Entry, 0)
	if date.IsZero() {
		return ret
	}

	for _, e := range entries {
		if e.PublishedDate == date {
			ret = append(ret, e)
		}
	}

	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Rank < ret[j].Rank
	})

	return ret
}

// PublisherYearlyTrend counts, per calendar year, the entries of publisher
// ranked within windowSize. Years without such entries are left out. The
// second return value is false when no publisher is selected.
func PublisherYearlyTrend(entries []types.Entry, publisher string, windowSize int) (Trend, bool) {
	if publisher == "" {
		return Trend{Years: []YearCount{}}, false
	}

	byYear := make(map[int]int)
	for _, e := range entries {
		if e.Publisher == publisher && inWindow(e, windowSize) {
			byYear[e.PublishedDate.Year()]++
		}
	}

	years := make([]YearCount, 0, len(byYear))
	maxCount := 0
	for year, count := range byYear {
		years = append(years, YearCount{Year: year, Count: count})
		if count > maxCount {
			maxCount = count
		}
	}

	sort.Slice(years, func(i, j int) bool {
		return years[i].Year < years[j].Year
	})

	step := TickStep(maxCount)

	return Trend{
		Publisher: publisher,
		Years:     years,
		Max:       maxCount,
		Step:      step,
		AxisMax:   float64(maxCount) + float64(step)/2,
	}, true
}

// TickStep picks the y-axis tick spacing for a chart whose tallest bar is
// maxCount.
func TickStep(maxCount int) int {
	switch {
	case maxCount <= 5:
		return 1
	case maxCount <= 10:
		return 2
	default:
		return 5
	}
}

func inWindow(e types.Entry, windowSize int) bool {
	return e.Rank >= 1 && e.Rank <= windowSize
}
