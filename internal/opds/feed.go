// Package opds renders bestseller lists as OPDS 1 catalogs for e-reader
// clients.
package opds

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/opds-community/libopds2-go/opds1"

	"bestsellers/internal/types"
)

const (
	NavigationType  = "application/atom+xml;profile=opds-catalog;kind=navigation"
	AcquisitionType = "application/atom+xml;profile=opds-catalog;kind=acquisition"

	atomNamespace = "http://www.w3.org/2005/Atom"

	linkTypeJson   = "application/json"
	linkRelSelf    = "self"
	linkRelStart   = "start"
	linkRelSummary = "related"
	linkRelSection = "subsection"

	idPrefix = "tag:bestsellers:"
)

func entryId(id int64) string {
	return idPrefix + "entry:" + strconv.FormatInt(id, 10)
}

func dateId(date types.Date) string {
	return idPrefix + "date:" + date.String()
}

// DateFeed builds the acquisition catalog of one list publication. entries
// are expected in rank order, as returned by analytics.DateSlice.
func DateFeed(siteName string, date types.Date, entries []types.Entry) *opds1.Feed {
	updated := date.Time()

	feed := &opds1.Feed{
		ID:      dateId(date),
		Title:   siteName + ": " + date.String(),
		Updated: updated,
		Links: []opds1.Link{
			{Rel: linkRelSelf, Href: "/opds/dates/" + date.String(), TypeLink: AcquisitionType},
			{Rel: linkRelStart, Href: "/opds/dates", TypeLink: NavigationType},
		},
	}

	for _, e := range entries {
		feed.Entries = append(feed.Entries, opds1.Entry{
			ID:       entryId(e.Id),
			Title:    e.Title,
			Updated:  &updated,
			Author:   []opds1.Author{{Name: e.Author}},
			Category: []opds1.Category{{Term: e.Publisher}},
			Content: opds1.Content{
				Content:     "#" + strconv.Itoa(e.Rank) + " on the " + date.String() + " list, published by " + e.Publisher,
				ContentType: "text",
			},
			Links: []opds1.Link{{
				Rel:      linkRelSummary,
				Href:     "/api/entries/" + strconv.FormatInt(e.Id, 10) + "/summary",
				TypeLink: linkTypeJson,
			}},
		})
	}

	return feed
}

// IndexFeed lists every publication date as a navigation entry. dates are
// expected newest first; the newest one dates the feed.
func IndexFeed(siteName string, dates []types.Date) *opds1.Feed {
	feed := &opds1.Feed{
		ID:    idPrefix + "dates",
		Title: siteName,
		Links: []opds1.Link{
			{Rel: linkRelSelf, Href: "/opds/dates", TypeLink: NavigationType},
			{Rel: linkRelStart, Href: "/opds/dates", TypeLink: NavigationType},
		},
	}

	if len(dates) > 0 {
		feed.Updated = dates[0].Time()
	}

	for _, date := range dates {
		updated := date.Time()
		feed.Entries = append(feed.Entries, opds1.Entry{
			ID:      dateId(date),
			Title:   date.String(),
			Updated: &updated,
			Links: []opds1.Link{{
				Rel:      linkRelSection,
				Href:     "/opds/dates/" + date.String(),
				TypeLink: AcquisitionType,
			}},
		})
	}

	return feed
}

// opds1 types describe every element a catalog may carry and none of them
// are optional, so feeds are written through these Atom shapes instead.
type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Updated string      `xml:"updated"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID       string         `xml:"id"`
	Title    string         `xml:"title"`
	Updated  string         `xml:"updated"`
	Authors  []atomAuthor   `xml:"author,omitempty"`
	Category []atomCategory `xml:"category,omitempty"`
	Content  *atomContent   `xml:"content,omitempty"`
	Links    []atomLink     `xml:"link,omitempty"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomContent struct {
	Type string `xml:"type,attr,omitempty"`
	Text string `xml:",chardata"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr,omitempty"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr,omitempty"`
}

func atomTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func atomLinks(links []opds1.Link) []atomLink {
	ret := make([]atomLink, 0, len(links))
	for _, l := range links {
		ret = append(ret, atomLink{Rel: l.Rel, Href: l.Href, Type: l.TypeLink})
	}

	return ret
}

func toAtom(feed *opds1.Feed) atomFeed {
	ret := atomFeed{
		XMLName: xml.Name{Space: atomNamespace, Local: "feed"},
		ID:      feed.ID,
		Title:   feed.Title,
		Updated: atomTime(feed.Updated),
		Links:   atomLinks(feed.Links),
	}

	for _, e := range feed.Entries {
		updated := feed.Updated
		if e.Updated != nil {
			updated = *e.Updated
		}

		ae := atomEntry{
			ID:      e.ID,
			Title:   e.Title,
			Updated: atomTime(updated),
			Links:   atomLinks(e.Links),
		}

		for _, a := range e.Author {
			ae.Authors = append(ae.Authors, atomAuthor{Name: a.Name})
		}
		for _, c := range e.Category {
			ae.Category = append(ae.Category, atomCategory{Term: c.Term})
		}
		if e.Content.Content != "" {
			ae.Content = &atomContent{Type: e.Content.ContentType, Text: e.Content.Content}
		}

		ret.Entries = append(ret.Entries, ae)
	}

	return ret
}

func Render(feed *opds1.Feed) ([]byte, error) {
	bs, err := xml.MarshalIndent(toAtom(feed), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling feed: %w", err)
	}

	return append([]byte(xml.Header), bs...), nil
}
