package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"

	"bestsellers/internal/types"
)

var fuzzPublishers = []string{"Knopf", "Penguin", "Scribner", "Doubleday", "Putnam", "Harper"}

func entry(rank int, publisher, date string) types.Entry {
	return types.Entry{
		Title:         fmt.Sprintf("%s #%d", publisher, rank),
		Author:        "Author of " + publisher,
		Publisher:     publisher,
		Rank:          rank,
		PublishedDate: types.MustParseDate(date),
	}
}

func randomEntries(seed int64) []types.Entry {
	f := fuzz.NewWithSeed(seed).NilChance(0).NumElements(0, 80).Funcs(
		func(e *types.Entry, c fuzz.Continue) {
			e.Title = c.RandString()
			e.Author = c.RandString()
			e.Publisher = fuzzPublishers[c.Intn(len(fuzzPublishers))]
			e.Rank = c.Intn(15) + 1
			e.PublishedDate = types.DateOf(time.Date(2015+c.Intn(6), time.Month(1+c.Intn(12)), 1+c.Intn(28),
				0, 0, 0, 0, time.UTC))
		},
	)

	var entries []types.Entry
	f.Fuzz(&entries)
	return entries
}

func TestTopPublishers(t *testing.T) {
	t.Run("orders by count and truncates", func(t *testing.T) {
		entries := []types.Entry{
			entry(1, "A", "2020-01-01"),
			entry(2, "A", "2020-01-01"),
			entry(3, "A", "2020-01-01"),
			entry(1, "B", "2020-01-08"),
			entry(2, "B", "2020-01-08"),
			entry(3, "B", "2020-01-08"),
			entry(4, "B", "2020-01-08"),
			entry(5, "B", "2020-01-08"),
			entry(6, "C", "2020-01-08"),
		}

		got := TopPublishers(entries, RankWindow, TopPublishersLimit)
		want := []PublisherCount{{"B", 5}, {"A", 3}}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("TopPublishers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ties keep first-encountered order", func(t *testing.T) {
		entries := []types.Entry{
			entry(1, "Z", "2020-01-01"),
			entry(2, "Y", "2020-01-01"),
			entry(3, "X", "2020-01-01"),
			entry(4, "Y", "2020-01-01"),
			entry(5, "Z", "2020-01-01"),
		}

		got := TopPublishers(entries, RankWindow, 2)
		want := []PublisherCount{{"Z", 2}, {"Y", 2}}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("TopPublishers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid window or limit gives empty result", func(t *testing.T) {
		entries := []types.Entry{entry(1, "A", "2020-01-01")}

		if got := TopPublishers(entries, 0, 5); len(got) != 0 {
			t.Errorf("got %v for window 0; expected empty", got)
		}
		if got := TopPublishers(entries, 5, 0); len(got) != 0 {
			t.Errorf("got %v for limit 0; expected empty", got)
		}
	})

	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("random dataset %d", seed), func(t *testing.T) {
			entries := randomEntries(seed)
			topN := int(seed%6) + 1

			got := TopPublishers(entries, RankWindow, topN)
			if len(got) > topN {
				t.Fatalf("got %d publishers; expected at most %d", len(got), topN)
			}

			for i, pc := range got {
				want := 0
				for _, e := range entries {
					if e.Publisher == pc.Publisher && e.Rank <= RankWindow {
						want++
					}
				}

				if pc.Count != want {
					t.Errorf("publisher %s counted %d; expected %d", pc.Publisher, pc.Count, want)
				}

				if i > 0 && got[i-1].Count < pc.Count {
					t.Errorf("publishers not sorted by count at index %d: %v", i, got)
				}
			}
		})
	}
}

func TestDateSlice(t *testing.T) {
	t.Run("filters by date and sorts by rank", func(t *testing.T) {
		entries := []types.Entry{
			entry(3, "A", "2020-01-01"),
			entry(1, "B", "2020-01-08"),
			entry(1, "C", "2020-01-01"),
			entry(2, "D", "2020-01-01"),
		}

		got := DateSlice(entries, types.MustParseDate("2020-01-01"))
		want := []types.Entry{entries[2], entries[3], entries[0]}

		if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b types.Date) bool { return a == b })); diff != "" {
			t.Errorf("DateSlice mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("absent date gives empty slice", func(t *testing.T) {
		entries := []types.Entry{entry(1, "A", "2020-01-01")}

		got := DateSlice(entries, types.MustParseDate("1999-12-31"))
		if got == nil || len(got) != 0 {
			t.Errorf("got %v; expected empty non-nil slice", got)
		}

		got = DateSlice(entries, types.Date{})
		if got == nil || len(got) != 0 {
			t.Errorf("got %v for zero date; expected empty non-nil slice", got)
		}
	})

	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("random dataset %d", seed), func(t *testing.T) {
			entries := randomEntries(seed)
			if len(entries) == 0 {
				return
			}

			date := entries[len(entries)/2].PublishedDate
			got := DateSlice(entries, date)

			want := 0
			for _, e := range entries {
				if e.PublishedDate == date {
					want++
				}
			}

			if len(got) != want {
				t.Fatalf("got %d entries; expected %d", len(got), want)
			}

			for i, e := range got {
				if e.PublishedDate != date {
					t.Errorf("entry %d has date %s; expected %s", i, e.PublishedDate, date)
				}
				if i > 0 && got[i-1].Rank > e.Rank {
					t.Errorf("entries not sorted by rank at index %d", i)
				}
			}
		})
	}
}

func TestPublisherYearlyTrend(t *testing.T) {
	t.Run("groups by year", func(t *testing.T) {
		entries := []types.Entry{
			entry(1, "P", "2020-01-01"),
			entry(2, "P", "2020-06-01"),
			entry(1, "P", "2021-01-01"),
			entry(9, "P", "2022-01-01"),
			entry(1, "Q", "2022-01-01"),
		}

		got, ok := PublisherYearlyTrend(entries, "P", RankWindow)
		if !ok {
			t.Fatalf("got no selection; expected a trend")
		}

		want := Trend{
			Publisher: "P",
			Years:     []YearCount{{2020, 2}, {2021, 1}},
			Max:       2,
			Step:      1,
			AxisMax:   2.5,
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("PublisherYearlyTrend mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("omits years without matches", func(t *testing.T) {
		entries := []types.Entry{
			entry(1, "P", "2018-03-01"),
			entry(1, "P", "2021-03-01"),
		}

		got, _ := PublisherYearlyTrend(entries, "P", RankWindow)
		want := []YearCount{{2018, 1}, {2021, 1}}

		if diff := cmp.Diff(want, got.Years); diff != "" {
			t.Errorf("years mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no selection", func(t *testing.T) {
		got, ok := PublisherYearlyTrend([]types.Entry{entry(1, "P", "2020-01-01")}, "", RankWindow)
		if ok {
			t.Errorf("got selection for empty publisher")
		}
		if len(got.Years) != 0 {
			t.Errorf("got %v; expected no years", got.Years)
		}
	})

	t.Run("unknown publisher is empty but selected", func(t *testing.T) {
		got, ok := PublisherYearlyTrend([]types.Entry{entry(1, "P", "2020-01-01")}, "Nobody", RankWindow)
		if !ok {
			t.Errorf("got no selection; expected selection")
		}
		if got.Years == nil || len(got.Years) != 0 {
			t.Errorf("got %v; expected empty non-nil years", got.Years)
		}
	})

	t.Run("step follows the tallest year", func(t *testing.T) {
		var entries []types.Entry
		for i := 0; i < 23; i++ {
			entries = append(entries, entry(i%5+1, "P", "2019-05-05"))
		}

		got, _ := PublisherYearlyTrend(entries, "P", RankWindow)
		if got.Step != 5 {
			t.Errorf("got step %d; expected 5", got.Step)
		}
		if got.AxisMax != 25.5 {
			t.Errorf("got axis max %v; expected 25.5", got.AxisMax)
		}
	})
}

func TestTickStep(t *testing.T) {
	testCases := []struct {
		max  int
		step int
	}{
		{0, 1},
		{3, 1},
		{5, 1},
		{6, 2},
		{10, 2},
		{11, 5},
		{23, 5},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("max %d", tc.max), func(t *testing.T) {
			if got := TickStep(tc.max); got != tc.step {
				t.Errorf("got step %d; expected %d", got, tc.step)
			}
		})
	}
}
