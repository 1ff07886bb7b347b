package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bestsellers/internal/types"
)

const (
	colTitle         = "title"
	colAuthor        = "author"
	colPublisher     = "publisher"
	colRank          = "rank"
	colPublishedDate = "published_date"
)

var requiredColumns = []string{colTitle, colAuthor, colPublisher, colRank, colPublishedDate}

var ErrMissingColumn = errors.New("missing required column")

// LoadCSVFile reads the dataset from the CSV file at path.
func LoadCSVFile(path string) ([]types.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	entries, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return entries, nil
}

// LoadCSV parses bestseller entries from CSV with a header row. Columns are
// matched by name, extra columns are ignored. Any malformed row fails the
// whole load.
func LoadCSV(r io.Reader) ([]types.Entry, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header: empty input")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for ix, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := index[key]; !ok {
			index[key] = ix
		}
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var entries []types.Entry
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)

		rankStr := strings.TrimSpace(row[index[colRank]])
		rank, err := strconv.Atoi(rankStr)
		if err != nil || rank < 1 {
			return nil, fmt.Errorf("line %d: invalid rank %q", line, rankStr)
		}

		dateStr := strings.TrimSpace(row[index[colPublishedDate]])
		date, err := types.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid published_date %q: %w", line, dateStr, err)
		}

		entries = append(entries, types.Entry{
			Id:            int64(len(entries) + 1),
			Title:         clean(row[index[colTitle]]),
			Author:        clean(row[index[colAuthor]]),
			Publisher:     clean(row[index[colPublisher]]),
			Rank:          rank,
			PublishedDate: date,
		})
	}

	return entries, nil
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
