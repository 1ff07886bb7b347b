package types

// Entry is one row of a bestseller list. Id is unique within a dataset.
type Entry struct {
	Id            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher"`
	Rank          int    `json:"rank"`
	PublishedDate Date   `json:"published_date"`
}

// Book is a distinct title and author pair found in the dataset.
type Book struct {
	Id     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type Totals struct {
	Publishers int `json:"publishers"`
	Books      int `json:"books"`
	Authors    int `json:"authors"`
}

// Summary is what the UI shows in place of the book summary. When Failed is
// set, Text holds a human-readable error message instead.
type Summary struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
}
