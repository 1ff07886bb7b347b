// Package dataset holds the bestseller entries loaded at startup.
//
// A Dataset is built once and never modified afterwards, so it can be shared
// by any number of goroutines without locking.
package dataset

import (
	"slices"
	"sort"

	"bestsellers/internal/analytics"
	"bestsellers/internal/types"
)

type Dataset struct {
	entries    []types.Entry
	byId       map[int64]int
	books      []types.Book
	dates      []types.Date
	publishers []string
	totals     types.Totals
}

// New copies entries into a Dataset. Entries with a zero Id get their
// 1-based position as Id.
func New(entries []types.Entry) *Dataset {
	d := &Dataset{
		entries: make([]types.Entry, len(entries)),
		byId:    make(map[int64]int, len(entries)),
	}
	copy(d.entries, entries)

	seenDate := make(map[types.Date]struct{})
	seenPublisher := make(map[string]struct{})
	seenTitle := make(map[string]struct{})
	seenAuthor := make(map[string]struct{})
	seenBook := make(map[[2]string]struct{})

	for ix := range d.entries {
		e := &d.entries[ix]
		if e.Id == 0 {
			e.Id = int64(ix + 1)
		}
		d.byId[e.Id] = ix

		if _, ok := seenDate[e.PublishedDate]; !ok {
			seenDate[e.PublishedDate] = struct{}{}
			d.dates = append(d.dates, e.PublishedDate)
		}

		if _, ok := seenPublisher[e.Publisher]; !ok {
			seenPublisher[e.Publisher] = struct{}{}
			d.publishers = append(d.publishers, e.Publisher)
		}

		seenTitle[e.Title] = struct{}{}
		seenAuthor[e.Author] = struct{}{}

		key := [2]string{e.Title, e.Author}
		if _, ok := seenBook[key]; !ok {
			seenBook[key] = struct{}{}
			d.books = append(d.books, types.Book{
				Id:     len(d.books) + 1,
				Title:  e.Title,
				Author: e.Author,
			})
		}
	}

	sort.Slice(d.dates, func(i, j int) bool {
		return d.dates[j].Before(d.dates[i])
	})
	sort.Strings(d.publishers)

	d.totals = types.Totals{
		Publishers: len(seenPublisher),
		Books:      len(seenTitle),
		Authors:    len(seenAuthor),
	}

	return d
}

func (d *Dataset) Len() int {
	return len(d.entries)
}

// Entries returns a copy of all entries in load order.
func (d *Dataset) Entries() []types.Entry {
	return slices.Clone(d.entries)
}

func (d *Dataset) Entry(id int64) (types.Entry, bool) {
	ix, ok := d.byId[id]
	if !ok {
		return types.Entry{}, false
	}

	return d.entries[ix], true
}

// Dates returns the distinct publication dates, most recent first.
func (d *Dataset) Dates() []types.Date {
	return nonNil(slices.Clone(d.dates))
}

func (d *Dataset) Publishers() []string {
	return nonNil(slices.Clone(d.publishers))
}

// Books returns the distinct title and author pairs in order of first
// appearance.
func (d *Dataset) Books() []types.Book {
	return nonNil(slices.Clone(d.books))
}

func (d *Dataset) Book(id int) (types.Book, bool) {
	if id < 1 || id > len(d.books) {
		return types.Book{}, false
	}

	return d.books[id-1], true
}

func (d *Dataset) Totals() types.Totals {
	return d.totals
}

func (d *Dataset) TopPublishers(windowSize, topN int) []analytics.PublisherCount {
	return analytics.TopPublishers(d.entries, windowSize, topN)
}

func (d *Dataset) DateSlice(date types.Date) []types.Entry {
	return analytics.DateSlice(d.entries, date)
}

func (d *Dataset) PublisherYearlyTrend(publisher string, windowSize int) (analytics.Trend, bool) {
	return analytics.PublisherYearlyTrend(d.entries, publisher, windowSize)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}

	return s
}
