package solr

import "encoding/json"

// StartCursor is the cursorMark that begins a fresh walk of the collection
const StartCursor = "*"

// Page is one slice of the collection returned by a cursor request
type Page struct {
	Records    []json.RawMessage
	NextCursor string
	Total      int64
}

// Empty reports whether the page carried no records
func (p *Page) Empty() bool {
	return len(p.Records) == 0
}

// Exhausted reports whether the cursor did not advance past cursor
func (p *Page) Exhausted(cursor string) bool {
	return p.NextCursor == cursor
}

// FacetResult holds the term counts of one facet field for a filter query
type FacetResult struct {
	Terms    map[string]int64
	NumFound int64
}

// selectResponse is the subset of the select handler's JSON body we read
type selectResponse struct {
	ResponseHeader struct {
		Status int `json:"status"`
		QTime  int `json:"QTime"`
	} `json:"responseHeader"`
	Response       *resultSet   `json:"response"`
	NextCursorMark string       `json:"nextCursorMark"`
	FacetCounts    *facetCounts `json:"facet_counts"`
	Error          *solrError   `json:"error"`
}

type resultSet struct {
	NumFound int64             `json:"numFound"`
	Start    int64             `json:"start"`
	Docs     []json.RawMessage `json:"docs"`
}

// facetCounts keeps facet_fields in Solr's flat [term, count, term, count] form
type facetCounts struct {
	FacetFields map[string][]json.RawMessage `json:"facet_fields"`
}

type solrError struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}
