package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"solrexport/pkg/config"
	"solrexport/pkg/errors"
	"solrexport/pkg/logger"
)

// Client issues cursor, count and facet requests against one Solr collection.
// It never retries; callers own the retry policy.
type Client struct {
	http       *resty.Client
	collection string
	handler    string
	sortField  string
	logger     logger.Logger
}

// NewClient creates a client for the collection described by cfg
func NewClient(cfg *config.SolrConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	handler := cfg.Handler
	if handler == "" {
		handler = "select"
	}
	sortField := cfg.SortField
	if sortField == "" {
		sortField = "id"
	}

	return &Client{
		http:       client,
		collection: cfg.Collection,
		handler:    strings.Trim(handler, "/"),
		sortField:  sortField,
		logger:     log.WithField("collection", cfg.Collection),
	}
}

// Collection returns the collection name the client targets
func (c *Client) Collection() string {
	return c.collection
}

// Fetch requests the page that starts at cursor
func (c *Client) Fetch(ctx context.Context, cursor string, rows int) (*Page, error) {
	if rows <= 0 {
		return nil, errors.New(errors.ErrorTypeUnknown, 0, nil, "page size must be positive, got %d", rows)
	}

	var body selectResponse
	if err := c.get(ctx, CursorParams(cursor, rows, c.sortField), &body); err != nil {
		return nil, err
	}
	if body.Response == nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "response body has no result set")
	}
	if body.NextCursorMark == "" {
		return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "cursor response has no nextCursorMark")
	}

	page := &Page{
		Records:    body.Response.Docs,
		NextCursor: body.NextCursorMark,
		Total:      body.Response.NumFound,
	}

	c.logger.DebugWithFields("fetched page", map[string]interface{}{
		"cursor":      cursor,
		"next_cursor": page.NextCursor,
		"records":     len(page.Records),
		"total":       page.Total,
	})

	return page, nil
}

// Prime issues the zero-row request that opens a cursor walk. The returned page
// carries the collection size and the cursor to start from.
func (c *Client) Prime(ctx context.Context) (*Page, error) {
	var body selectResponse
	if err := c.get(ctx, CursorParams(StartCursor, 0, c.sortField), &body); err != nil {
		return nil, err
	}
	if body.Response == nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "priming response has no result set")
	}

	next := body.NextCursorMark
	if next == "" {
		return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "priming response has no nextCursorMark")
	}

	c.logger.InfoWithFields("opened cursor", map[string]interface{}{
		"total":  body.Response.NumFound,
		"cursor": next,
	})

	return &Page{NextCursor: next, Total: body.Response.NumFound}, nil
}

// Count returns numFound for a match-all query
func (c *Client) Count(ctx context.Context) (int64, error) {
	var body selectResponse
	if err := c.get(ctx, CountParams(), &body); err != nil {
		return 0, err
	}
	if body.Response == nil {
		return 0, errors.New(errors.ErrorTypeParsing, 0, nil, "count response has no result set")
	}
	return body.Response.NumFound, nil
}

// Facets returns the term counts of field over the documents matching filterQuery
func (c *Client) Facets(ctx context.Context, filterQuery, field string, limit int) (*FacetResult, error) {
	var body selectResponse
	if err := c.get(ctx, FacetParams(filterQuery, field, limit), &body); err != nil {
		return nil, err
	}

	result := &FacetResult{Terms: map[string]int64{}}
	if body.Response != nil {
		result.NumFound = body.Response.NumFound
	}
	if body.FacetCounts == nil {
		return result, nil
	}

	terms, err := decodeFacetList(body.FacetCounts.FacetFields[field])
	if err != nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, err, "facet field %s", field)
	}
	result.Terms = terms
	return result, nil
}

// IDs returns the first n values of the sort field in ascending order
func (c *Client) IDs(ctx context.Context, n int) ([]string, error) {
	var body selectResponse
	if err := c.get(ctx, IDParams(c.sortField, n), &body); err != nil {
		return nil, err
	}
	if body.Response == nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "id response has no result set")
	}

	ids := make([]string, 0, len(body.Response.Docs))
	for _, raw := range body.Response.Docs {
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.New(errors.ErrorTypeParsing, 0, err, "decode document")
		}
		v, ok := doc[c.sortField]
		if !ok {
			continue
		}
		ids = append(ids, fmt.Sprint(v))
	}
	return ids, nil
}

// get performs one GET against the query handler and decodes the body into out
func (c *Client) get(ctx context.Context, params url.Values, out *selectResponse) error {
	path := selectPath(c.collection, c.handler)

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"path":     path,
			"error":    err.Error(),
			"duration": duration,
		})
		return errors.New(errors.ErrorTypeNetwork, 0, err, "request %s: %v", path, err)
	}

	logger.LogRequest(c.logger, http.MethodGet, resp.Request.URL, resp.StatusCode(), duration.Milliseconds())

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		preview := string(resp.Body())
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         path,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.New(errors.ErrorTypeParsing, resp.StatusCode(), err, "decode response: %v", err)
	}

	return nil
}

// checkResponseStatus maps a non-2xx response onto a typed error
func (c *Client) checkResponseStatus(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	message := http.StatusText(status)
	var body selectResponse
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != nil && body.Error.Msg != "" {
		message = body.Error.Msg
	}

	errType := errors.TypeForStatus(status)
	return errors.New(errType, status, nil, "%s", message)
}

// decodeFacetList turns Solr's flat [term, count, ...] list into a map
func decodeFacetList(flat []json.RawMessage) (map[string]int64, error) {
	terms := make(map[string]int64, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		var term string
		if err := json.Unmarshal(flat[i], &term); err != nil {
			return nil, fmt.Errorf("term at position %d: %w", i, err)
		}
		var count int64
		if err := json.Unmarshal(flat[i+1], &count); err != nil {
			return nil, fmt.Errorf("count for %q: %w", term, err)
		}
		terms[term] = count
	}
	return terms, nil
}
