package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"bestsellers/internal/dataset"
	"bestsellers/internal/opds"
	"bestsellers/internal/response"
	"bestsellers/internal/summary"
	"bestsellers/internal/types"
)

const testCSV = `title,author,publisher,rank,published_date
THE WOMEN,Kristin Hannah,St. Martin's,1,2024-02-25
FOURTH WING,Rebecca Yarros,Red Tower,2,2024-02-25
IRON FLAME,Rebecca Yarros,Red Tower,3,2024-02-25
THE WOMEN,Kristin Hannah,St. Martin's,2,2024-03-03
FOURTH WING,Rebecca Yarros,Red Tower,1,2024-03-03
IRON FLAME,Rebecca Yarros,Red Tower,6,2024-03-03
LESSONS IN CHEMISTRY,Bonnie Garmus,Doubleday,4,2023-03-05
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(ctx context.Context, title, author string) (string, error) {
	return "", &summary.RemoteError{Provider: "test", Err: errors.New("network is unreachable")}
}

type echoSummarizer struct{}

func (echoSummarizer) Summarize(ctx context.Context, title, author string) (string, error) {
	return "About " + title + " by " + author, nil
}

func newTestServer(t *testing.T, s summary.Summarizer) *httptest.Server {
	t.Helper()

	entries, err := dataset.LoadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)

	ds := dataset.New(entries)
	rr := &response.Responder{}
	svc := summary.NewService(s, "test", 0, discardLogger())

	r := chi.NewRouter()
	r.Mount("/api", Handler(ds, svc, rr))
	r.Mount("/opds", OPDS(ds, "Bestsellers", rr))

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func doJson(t *testing.T, method, url string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}

	return res.StatusCode
}

func TestHandler(t *testing.T) {
	ts := newTestServer(t, echoSummarizer{})

	t.Run("stats", func(t *testing.T) {
		var got types.Totals
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/stats", &got))
		require.Equal(t, types.Totals{Publishers: 3, Books: 4, Authors: 3}, got)
	})

	t.Run("top publishers", func(t *testing.T) {
		var got struct {
			Window     int `json:"window"`
			Publishers []struct {
				Publisher string `json:"publisher"`
				Count     int    `json:"count"`
			} `json:"publishers"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/publishers/top?limit=2", &got))
		require.Equal(t, 5, got.Window)
		require.Len(t, got.Publishers, 2)
		require.Equal(t, "Red Tower", got.Publishers[0].Publisher)
		require.Equal(t, 3, got.Publishers[0].Count)
		require.Equal(t, "St. Martin's", got.Publishers[1].Publisher)
		require.Equal(t, 2, got.Publishers[1].Count)
	})

	t.Run("top publishers rejects bad params", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=x", "window=-1"} {
			var got map[string]any
			require.Equal(t, http.StatusBadRequest,
				doJson(t, http.MethodGet, ts.URL+"/api/publishers/top?"+q, &got), q)
			require.NotEmpty(t, got["error_id"])
		}
	})

	t.Run("dates newest first", func(t *testing.T) {
		var got struct {
			Dates []string `json:"dates"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/dates", &got))
		if diff := cmp.Diff([]string{"2024-03-03", "2024-02-25", "2023-03-05"}, got.Dates); diff != "" {
			t.Errorf("dates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("date table", func(t *testing.T) {
		var got struct {
			Date    string `json:"date"`
			Entries []struct {
				Id         int64  `json:"id"`
				Title      string `json:"title"`
				Rank       int    `json:"rank"`
				SummaryUrl string `json:"summary_url"`
			} `json:"entries"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/dates/2024-03-03/entries", &got))
		require.Equal(t, "2024-03-03", got.Date)
		require.Len(t, got.Entries, 3)
		require.Equal(t, "FOURTH WING", got.Entries[0].Title)
		require.Equal(t, 1, got.Entries[0].Rank)
		require.Equal(t, "/api/entries/5/summary", got.Entries[0].SummaryUrl)
		require.Equal(t, 6, got.Entries[2].Rank)
	})

	t.Run("absent date is empty", func(t *testing.T) {
		var got struct {
			Entries []any `json:"entries"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/dates/1999-01-01/entries", &got))
		require.NotNil(t, got.Entries)
		require.Empty(t, got.Entries)
	})

	t.Run("malformed date", func(t *testing.T) {
		var got map[string]any
		require.Equal(t, http.StatusBadRequest, doJson(t, http.MethodGet, ts.URL+"/api/dates/yesterday/entries", &got))
		require.Contains(t, got["error"], "Date must look like")
	})

	t.Run("trend", func(t *testing.T) {
		var got struct {
			Selected bool `json:"selected"`
			Years    []struct {
				Year  int `json:"year"`
				Count int `json:"count"`
			} `json:"years"`
			Step    int     `json:"step"`
			AxisMax float64 `json:"axis_max"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/trend?publisher=Red+Tower", &got))
		require.True(t, got.Selected)
		require.Len(t, got.Years, 1)
		require.Equal(t, 2024, got.Years[0].Year)
		require.Equal(t, 3, got.Years[0].Count)
		require.Equal(t, 1, got.Step)
		require.Equal(t, 3.5, got.AxisMax)
	})

	t.Run("trend without publisher", func(t *testing.T) {
		var got struct {
			Selected bool  `json:"selected"`
			Years    []any `json:"years"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/trend", &got))
		require.False(t, got.Selected)
		require.Empty(t, got.Years)
	})

	t.Run("books", func(t *testing.T) {
		var got struct {
			Books []struct {
				Id         int    `json:"id"`
				Label      string `json:"label"`
				SummaryUrl string `json:"summary_url"`
			} `json:"books"`
		}
		require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/books", &got))
		require.Len(t, got.Books, 4)
		require.Equal(t, "THE WOMEN by Kristin Hannah", got.Books[0].Label)
		require.Equal(t, "/api/books/1/summary", got.Books[0].SummaryUrl)
	})

	t.Run("entry summary", func(t *testing.T) {
		var got types.Summary
		require.Equal(t, http.StatusOK, doJson(t, http.MethodPost, ts.URL+"/api/entries/5/summary", &got))
		require.Equal(t, types.Summary{
			Title:  "FOURTH WING",
			Author: "Rebecca Yarros",
			Text:   "About FOURTH WING by Rebecca Yarros",
		}, got)
	})

	t.Run("book summary", func(t *testing.T) {
		var got types.Summary
		require.Equal(t, http.StatusOK, doJson(t, http.MethodPost, ts.URL+"/api/books/4/summary", &got))
		require.Equal(t, "LESSONS IN CHEMISTRY", got.Title)
		require.False(t, got.Failed)
	})

	t.Run("summary of unknown ids", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, doJson(t, http.MethodPost, ts.URL+"/api/entries/99/summary", nil))
		require.Equal(t, http.StatusNotFound, doJson(t, http.MethodPost, ts.URL+"/api/books/0/summary", nil))
		require.Equal(t, http.StatusBadRequest, doJson(t, http.MethodPost, ts.URL+"/api/books/abc/summary", nil))
	})

	t.Run("summary needs POST", func(t *testing.T) {
		require.Equal(t, http.StatusMethodNotAllowed, doJson(t, http.MethodGet, ts.URL+"/api/entries/5/summary", nil))
	})

	t.Run("opds feed", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/opds/dates/2024-02-25")
		require.NoError(t, err)
		defer res.Body.Close()

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, opds.AcquisitionType, res.Header.Get("Content-Type"))
	})
}

func TestHandlerSummaryFailure(t *testing.T) {
	ts := newTestServer(t, failingSummarizer{})

	var got types.Summary
	require.Equal(t, http.StatusOK, doJson(t, http.MethodPost, ts.URL+"/api/entries/1/summary", &got))
	require.True(t, got.Failed)
	require.Equal(t, "THE WOMEN", got.Title)
	require.Equal(t, "Error getting summary: test: network is unreachable", got.Text)

	// the session keeps working after a failed summary
	var stats types.Totals
	require.Equal(t, http.StatusOK, doJson(t, http.MethodGet, ts.URL+"/api/stats", &stats))
}
