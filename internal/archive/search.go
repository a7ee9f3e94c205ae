package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	httpclient "bookfetch/internal/http"
	"bookfetch/internal/model"
)

// searchFields are the catalog fields requested per result row.
var searchFields = []string{
	"identifier", "title", "creator", "date",
	"item_size", "imagecount", "downloads",
	"access-restricted-item", "collection",
}

// Searcher queries the archive's full-text catalog for books.
type Searcher struct {
	client  *httpclient.Client
	baseURL string
}

// NewSearcher creates a Searcher operating against baseURL.
func NewSearcher(client *httpclient.Client, baseURL string) *Searcher {
	return &Searcher{client: client, baseURL: baseURL}
}

// Search runs a query constrained to book-shaped items and returns up
// to limit results from the given 1-based page.
//
// Rows with zero pages or zero size are skipped as empty shells. When
// filterRestricted is set, access-gated items are excluded server-side.
func (s *Searcher) Search(ctx context.Context, query string, limit, page int, filterRestricted bool) ([]model.SearchResult, error) {
	full := "(" + query + ") AND mediatype:texts AND -mediatype:collection"
	if filterRestricted {
		full += " AND -access-restricted-item:true"
	}

	params := url.Values{
		"q":      {full},
		"rows":   {strconv.Itoa(limit)},
		"page":   {strconv.Itoa(page)},
		"output": {"json"},
	}
	for _, f := range searchFields {
		params.Add("fl[]", f)
	}

	body, err := s.client.Get(ctx, s.baseURL+"/advancedsearch.php?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}

	var payload struct {
		Response struct {
			Docs []map[string]any `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding results: %v", ErrSearch, err)
	}

	results := make([]model.SearchResult, 0, len(payload.Response.Docs))
	for _, doc := range payload.Response.Docs {
		if len(results) >= limit {
			break
		}

		pages := intField(doc, "imagecount")
		size := intField(doc, "item_size")
		if pages == 0 || size == 0 {
			continue
		}

		results = append(results, model.SearchResult{
			Identifier: model.MetaString(doc, "identifier"),
			Title:      metaStringOr(doc, "title", "Unknown Title"),
			Creator:    metaStringOr(doc, "creator", "Unknown Author"),
			Date:       metaStringOr(doc, "date", "Unknown Date"),
			ItemSize:   size,
			ImageCount: int(pages),
			Downloads:  int(intField(doc, "downloads")),
			Restricted: RestrictedItem(doc),
		})
	}

	return results, nil
}

func metaStringOr(doc map[string]any, key, fallback string) string {
	if s := model.MetaString(doc, key); s != "" {
		return s
	}
	return fallback
}

// intField reads a numeric field that may arrive as a JSON number, a
// decimal string, or not at all.
func intField(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
