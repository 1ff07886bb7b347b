package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bestsellers/internal/analytics"
	"bestsellers/internal/dataset"
	"bestsellers/internal/opds"
	"bestsellers/internal/response"
	"bestsellers/internal/types"
)

// Describer produces a summary for a book. Implementations report failures
// inside the returned summary.
type Describer interface {
	Describe(ctx context.Context, book types.Book) types.Summary
}

// tableRow is one row of the per-date table. SummaryUrl is the action the UI
// posts to when the row's summary is requested.
type tableRow struct {
	types.Entry
	SummaryUrl string `json:"summary_url"`
}

type bookOption struct {
	types.Book
	Label      string `json:"label"`
	SummaryUrl string `json:"summary_url"`
}

func Handler(ds *dataset.Dataset, sd Describer, rr *response.Responder) http.Handler {
	r := chi.NewRouter()

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		rr.SendJson(w, r.Context(), ds.Totals())
	})

	r.Get("/publishers", func(w http.ResponseWriter, r *http.Request) {
		rr.SendJson(w, r.Context(), struct {
			Publishers []string `json:"publishers"`
		}{Publishers: ds.Publishers()})
	})

	r.Get("/publishers/top", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		window, err := getPositiveInt("window", q, analytics.RankWindow)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		limit, err := getPositiveInt("limit", q, analytics.TopPublishersLimit)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), struct {
			Window     int                        `json:"window"`
			Publishers []analytics.PublisherCount `json:"publishers"`
		}{
			Window:     window,
			Publishers: ds.TopPublishers(window, limit),
		})
	})

	r.Get("/dates", func(w http.ResponseWriter, r *http.Request) {
		rr.SendJson(w, r.Context(), struct {
			Dates []types.Date `json:"dates"`
		}{Dates: ds.Dates()})
	})

	r.Get("/dates/{date}/entries", func(w http.ResponseWriter, r *http.Request) {
		date, err := getDate(chi.URLParam(r, "date"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		entries := ds.DateSlice(date)
		rows := make([]tableRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, tableRow{
				Entry:      e,
				SummaryUrl: "/api/entries/" + strconv.FormatInt(e.Id, 10) + "/summary",
			})
		}

		rr.SendJson(w, r.Context(), struct {
			Date    types.Date `json:"date"`
			Entries []tableRow `json:"entries"`
		}{Date: date, Entries: rows})
	})

	r.Get("/trend", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		window, err := getPositiveInt("window", q, analytics.RankWindow)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		trend, selected := ds.PublisherYearlyTrend(strings.TrimSpace(q.Get("publisher")), window)

		rr.SendJson(w, r.Context(), struct {
			Selected bool `json:"selected"`
			analytics.Trend
		}{Selected: selected, Trend: trend})
	})

	r.Get("/books", func(w http.ResponseWriter, r *http.Request) {
		books := ds.Books()
		options := make([]bookOption, 0, len(books))
		for _, b := range books {
			options = append(options, bookOption{
				Book:       b,
				Label:      b.Title + " by " + b.Author,
				SummaryUrl: "/api/books/" + strconv.Itoa(b.Id) + "/summary",
			})
		}

		rr.SendJson(w, r.Context(), struct {
			Books []bookOption `json:"books"`
		}{Books: options})
	})

	r.Post("/entries/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), response.BadRequest("entry id must be an integer"))
			return
		}

		e, ok := ds.Entry(id)
		if !ok {
			rr.RespondAndLogError(w, r.Context(), response.NotFound("no entry with id "+strconv.FormatInt(id, 10)))
			return
		}

		rr.SendJson(w, r.Context(), sd.Describe(r.Context(), types.Book{Title: e.Title, Author: e.Author}))
	})

	r.Post("/books/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), response.BadRequest("book id must be an integer"))
			return
		}

		b, ok := ds.Book(id)
		if !ok {
			rr.RespondAndLogError(w, r.Context(), response.NotFound("no book with id "+strconv.Itoa(id)))
			return
		}

		rr.SendJson(w, r.Context(), sd.Describe(r.Context(), b))
	})

	return r
}

// OPDS serves the dataset as OPDS catalogs, one per publication date.
func OPDS(ds *dataset.Dataset, siteName string, rr *response.Responder) http.Handler {
	r := chi.NewRouter()

	r.Get("/dates", func(w http.ResponseWriter, r *http.Request) {
		bs, err := opds.Render(opds.IndexFeed(siteName, ds.Dates()))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendRaw(w, opds.NavigationType, bs)
	})

	r.Get("/dates/{date}", func(w http.ResponseWriter, r *http.Request) {
		date, err := getDate(chi.URLParam(r, "date"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		bs, err := opds.Render(opds.DateFeed(siteName, date, ds.DateSlice(date)))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendRaw(w, opds.AcquisitionType, bs)
	})

	return r
}

func Static(r chi.Router, openApiYaml string) {
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openApiYaml)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

func getDate(raw string) (types.Date, error) {
	date, err := types.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return types.Date{}, response.BadRequest("date must look like " + types.DateLayout + ", got " + strconv.Quote(raw))
	}

	return date, nil
}

func getPositiveInt(key string, q url.Values, default_ int) (int, error) {
	ls := strings.TrimSpace(q.Get(key))
	if ls == "" {
		return default_, nil
	}

	v, err := strconv.Atoi(ls)
	if err != nil || v < 1 {
		return 0, response.BadRequest(key + " must be a positive integer")
	}

	return v, nil
}
