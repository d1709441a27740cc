// Package solrtest runs an in-process Solr stand-in that serves cursorMark
// pagination and facet queries over a fixed document set.
package solrtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Server is an httptest server speaking the subset of the select handler
// the exporter uses. Cursors are "c:<offset>".
type Server struct {
	*httptest.Server

	Collection string

	mu       sync.Mutex
	docs     []map[string]interface{}
	facets   map[string]map[string]int64
	failures []int
	requests []http.Request
	username string
	password string
}

// New starts a server holding n documents with ids doc-00000, doc-00001, ...
func New(collection string, n int) *Server {
	s := &Server{
		Collection: collection,
		facets:     map[string]map[string]int64{},
	}
	for i := 0; i < n; i++ {
		s.docs = append(s.docs, map[string]interface{}{
			"id":        fmt.Sprintf("doc-%05d", i),
			"title":     fmt.Sprintf("document %d", i),
			"_version_": int64(1700000000000000000 + i),
		})
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RequireBasicAuth makes every request without these credentials fail with 401
func (s *Server) RequireBasicAuth(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// FailNext queues HTTP statuses returned by the next requests, in order
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// SetFacets sets the facet terms returned for filter queries on id
func (s *Server) SetFacets(id string, terms map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facets[id] = terms
}

// Requests returns copies of the requests received so far
func (s *Server) Requests() []http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Request(nil), s.requests...)
}

// CursorRequests counts requests that carried a cursorMark and asked for rows
func (s *Server) CursorRequests() int {
	n := 0
	for _, r := range s.Requests() {
		q := r.URL.Query()
		if q.Get("cursorMark") != "" && q.Get("rows") != "0" {
			n++
		}
	}
	return n
}

// Cursor returns the cursor that starts at offset
func Cursor(offset int) string {
	return "c:" + strconv.Itoa(offset)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, *r.Clone(r.Context()))
	var status int
	if len(s.failures) > 0 {
		status, s.failures = s.failures[0], s.failures[1:]
	}
	username, password := s.username, s.password
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "injected failure")
		return
	}
	if username != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != username || p != password {
			writeError(w, http.StatusUnauthorized, "require authentication")
			return
		}
	}
	if r.URL.Path != "/"+s.Collection+"/select" {
		writeError(w, http.StatusNotFound, "no such collection")
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("facet") == "true":
		s.serveFacets(w, q.Get("fq"), q.Get("facet.field"))
	case q.Get("cursorMark") != "":
		s.serveCursor(w, q.Get("cursorMark"), q.Get("rows"))
	default:
		s.serveRows(w, q.Get("rows"), q.Get("fl"))
	}
}

func (s *Server) serveCursor(w http.ResponseWriter, cursor, rowsParam string) {
	rows, err := strconv.Atoi(rowsParam)
	if err != nil || rows < 0 {
		writeError(w, http.StatusBadRequest, "bad rows")
		return
	}

	offset := 0
	if cursor != "*" {
		offset, err = strconv.Atoi(strings.TrimPrefix(cursor, "c:"))
		if err != nil || !strings.HasPrefix(cursor, "c:") {
			writeError(w, http.StatusBadRequest, "unable to parse cursorMark")
			return
		}
	}

	s.mu.Lock()
	total := len(s.docs)
	end := offset + rows
	if end > total {
		end = total
	}
	if offset > total {
		offset = total
	}
	docs := append([]map[string]interface{}(nil), s.docs[offset:end]...)
	s.mu.Unlock()

	// An exhausted cursor echoes the mark it was given.
	next := cursor
	if len(docs) > 0 {
		next = Cursor(end)
	} else if cursor == "*" {
		next = Cursor(0)
	}

	writeJSON(w, map[string]interface{}{
		"responseHeader": map[string]interface{}{"status": 0, "QTime": 1},
		"response":       map[string]interface{}{"numFound": total, "start": 0, "docs": docs},
		"nextCursorMark": next,
	})
}

func (s *Server) serveRows(w http.ResponseWriter, rowsParam, fl string) {
	rows, _ := strconv.Atoi(rowsParam)

	s.mu.Lock()
	total := len(s.docs)
	if rows > total {
		rows = total
	}
	docs := make([]map[string]interface{}, 0, rows)
	for _, d := range s.docs[:rows] {
		if fl == "" {
			docs = append(docs, d)
			continue
		}
		docs = append(docs, map[string]interface{}{fl: d[fl]})
	}
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"responseHeader": map[string]interface{}{"status": 0},
		"response":       map[string]interface{}{"numFound": total, "start": 0, "docs": docs},
	})
}

func (s *Server) serveFacets(w http.ResponseWriter, fq, field string) {
	id := fq
	if i := strings.Index(fq, ":"); i >= 0 {
		id = fq[i+1:]
	}
	if unquoted, err := strconv.Unquote(id); err == nil {
		id = unquoted
	}

	s.mu.Lock()
	terms := s.facets[id]
	s.mu.Unlock()

	flat := make([]interface{}, 0, len(terms)*2)
	for term, count := range terms {
		flat = append(flat, term, count)
	}
	numFound := 0
	if terms != nil {
		numFound = 1
	}

	writeJSON(w, map[string]interface{}{
		"responseHeader": map[string]interface{}{"status": 0},
		"response":       map[string]interface{}{"numFound": numFound, "start": 0, "docs": []interface{}{}},
		"facet_counts": map[string]interface{}{
			"facet_fields": map[string]interface{}{field: flat},
		},
	})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"responseHeader": map[string]interface{}{"status": status},
		"error":          map[string]interface{}{"msg": msg, "code": status},
	})
}
