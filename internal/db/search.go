package db

// TagClause is a tag-equality pre-filter clause. With multiple values the
// clause matches any of them; Negate inverts the match.
type TagClause struct {
	Field  string
	Values []string
	Negate bool
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagClause
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Field        string // TEXT field to search
	Query        string
	Filters      []TagClause
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for a plain FT.SEARCH with optional sorting, used
// to list passages of a document in chunk order.
type ListQuery struct {
	IndexName    string
	Query        string
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string // numeric field name, "" = score order
	SortAsc      bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
