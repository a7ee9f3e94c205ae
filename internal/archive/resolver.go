package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bookfetch/internal/archive/dto"
	httpclient "bookfetch/internal/http"
	"bookfetch/internal/model"
)

// DefaultBaseURL is the production archive endpoint. Tests substitute
// an httptest server.
const DefaultBaseURL = "https://archive.org"

// lendingCollections are the collection tags that imply access-gated
// content even when no explicit restriction flag is present.
var lendingCollections = []string{"inlibrary", "lendinglibrary", "printdisabled"}

// errNoManifest makes tier 1 fall through to the direct-artifact
// fallback. An empty manifest is not a success: a zero-page book must
// never be returned.
var errNoManifest = errors.New("no page manifest")

// Resolver turns a book locator into a Book record.
//
// Resolution is two-tiered, first success wins:
//
//  1. The human-facing details page is scanned for the embedded data
//     endpoint; its nested page manifest becomes the ordered PageURIs.
//  2. Failing that, the item's file listing is consulted and the
//     largest readable document becomes a direct-artifact shortcut.
//
// The restriction flag is decided here, once, and is authoritative for
// the rest of the pipeline.
type Resolver struct {
	client  *httpclient.Client
	baseURL string
	logf    Logf
}

// NewResolver creates a Resolver operating against baseURL.
func NewResolver(client *httpclient.Client, baseURL string, logf Logf) *Resolver {
	return &Resolver{client: client, baseURL: baseURL, logf: logf}
}

// Resolve produces the Book for a locator, or an error wrapping
// ErrResolution when neither tier yields anything usable.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*model.Book, error) {
	id, err := model.ExtractID(locator)
	if err != nil {
		return nil, err
	}

	book, err := r.resolveManifest(ctx, id, locator)
	if err == nil {
		return book, nil
	}
	r.logf.printf("no page manifest for %s (%v), trying file listing", id, err)

	book, directErr := r.resolveDirect(ctx, id, locator)
	if directErr == nil {
		return book, nil
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrResolution, id, directErr)
}

// resolveManifest implements tier 1: details page, embedded endpoint,
// nested page manifest.
func (r *Resolver) resolveManifest(ctx context.Context, id, locator string) (*model.Book, error) {
	pageURL := locator
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		pageURL = r.baseURL + "/details/" + id
	}

	page, err := r.client.GetString(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	endpoint, err := extractDataEndpoint(page)
	if err != nil {
		return nil, err
	}

	body, err := r.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var reader dto.ReaderResponse
	if err := json.Unmarshal(body, &reader); err != nil {
		return nil, fmt.Errorf("decoding reader data: %w", err)
	}

	uris := reader.Data.PageURIs()
	if len(uris) == 0 {
		return nil, errNoManifest
	}

	title := strings.TrimSpace(reader.Data.BrOptions.BookTitle)
	if title == "" {
		title = model.MetaString(reader.Data.Metadata, "title")
	}
	if title == "" {
		title = id
	}

	r.logf.printf("found %d pages for %q", len(uris), title)

	return &model.Book{
		Locator:    locator,
		ID:         id,
		Title:      title,
		PageCount:  len(uris),
		PageURIs:   uris,
		Metadata:   reader.Data.Metadata,
		Restricted: RestrictedItem(reader.Data.Metadata),
	}, nil
}

// resolveDirect implements tier 2: the locator is treated as a catalog
// identifier and the largest readable document in its file listing
// becomes the artifact.
func (r *Resolver) resolveDirect(ctx context.Context, id, locator string) (*model.Book, error) {
	body, err := r.client.Get(ctx, r.baseURL+"/metadata/"+id)
	if err != nil {
		return nil, err
	}

	var item dto.ItemMetadata
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decoding item metadata: %w", err)
	}

	file, ok := item.LargestReadable()
	if !ok {
		return nil, errors.New("no readable document in file listing")
	}

	title := model.MetaString(item.Metadata, "title")
	if title == "" {
		title = id
	}

	r.logf.printf("using direct artifact %s for %q", file.Name, title)

	return &model.Book{
		Locator:           locator,
		ID:                id,
		Title:             title,
		Metadata:          item.Metadata,
		Restricted:        RestrictedItem(item.Metadata),
		DirectArtifactURI: r.baseURL + "/download/" + id + "/" + url.PathEscape(file.Name),
	}, nil
}

// extractDataEndpoint finds the embedded data-endpoint reference on a
// details page. The page embeds it as "url":"//..." with ampersands
// escaped as \u0026.
func extractDataEndpoint(page string) (string, error) {
	const marker = `"url":"`

	start := strings.Index(page, marker)
	if start == -1 {
		return "", errNoManifest
	}
	rest := page[start+len(marker):]

	end := strings.Index(rest, `"`)
	if end == -1 {
		return "", errNoManifest
	}

	endpoint := strings.ReplaceAll(rest[:end], `\u0026`, "&")
	if strings.HasPrefix(endpoint, "//") {
		endpoint = "https:" + endpoint
	}

	return endpoint, nil
}

// RestrictedItem decides the access-gated flag from item metadata: an
// explicit restriction marker, or membership in any lending
// collection.
func RestrictedItem(meta map[string]any) bool {
	switch v := meta["access-restricted-item"].(type) {
	case string:
		if strings.EqualFold(v, "true") {
			return true
		}
	case bool:
		if v {
			return true
		}
	}

	var collections []string
	switch v := meta["collection"].(type) {
	case string:
		collections = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				collections = append(collections, s)
			}
		}
	}

	for _, c := range collections {
		for _, lending := range lendingCollections {
			if c == lending {
				return true
			}
		}
	}

	return false
}
