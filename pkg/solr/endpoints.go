package solr

import (
	"net/url"
	"strconv"
)

const (
	// MatchAllQuery selects every document in the collection
	MatchAllQuery = "*:*"

	// ResponseWriter is the wt parameter every request uses
	ResponseWriter = "json"
)

// selectPath returns the request path of the collection's query handler
func selectPath(collection, handler string) string {
	return "/" + url.PathEscape(collection) + "/" + handler
}

// CursorParams builds the query of a cursorMark page request
func CursorParams(cursor string, rows int, sortField string) url.Values {
	params := url.Values{}
	params.Set("q", MatchAllQuery)
	params.Set("rows", strconv.Itoa(rows))
	params.Set("sort", sortField+" asc")
	params.Set("cursorMark", cursor)
	params.Set("wt", ResponseWriter)
	return params
}

// CountParams builds a zero-row match-all query
func CountParams() url.Values {
	params := url.Values{}
	params.Set("q", MatchAllQuery)
	params.Set("rows", "0")
	params.Set("wt", ResponseWriter)
	return params
}

// FacetParams builds a zero-row faceting request restricted by filterQuery
func FacetParams(filterQuery, field string, limit int) url.Values {
	params := url.Values{}
	params.Set("q", MatchAllQuery)
	params.Set("fq", filterQuery)
	params.Set("facet", "true")
	params.Set("facet.field", field)
	params.Set("facet.sort", "count")
	params.Set("facet.limit", strconv.Itoa(limit))
	params.Set("facet.mincount", "1")
	params.Set("rows", "0")
	params.Set("wt", ResponseWriter)
	return params
}

// IDParams builds a request for the first rows values of idField
func IDParams(idField string, rows int) url.Values {
	params := url.Values{}
	params.Set("q", MatchAllQuery)
	params.Set("rows", strconv.Itoa(rows))
	params.Set("fl", idField)
	params.Set("sort", idField+" asc")
	params.Set("wt", ResponseWriter)
	return params
}

// TermQuery returns a filter query matching field exactly against value
func TermQuery(field, value string) string {
	return field + ":" + strconv.Quote(value)
}
