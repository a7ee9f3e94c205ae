package dto

// ReaderResponse is the envelope returned by the book reader data
// endpoint discovered on the details page.
type ReaderResponse struct {
	Data ReaderData `json:"data"`
}

// ReaderData carries the item metadata and the reader options that
// hold the page manifest.
type ReaderData struct {
	Metadata  map[string]any `json:"metadata"`
	BrOptions BrOptions      `json:"brOptions"`
}

// BrOptions holds the book reader configuration, including the page
// manifest grouped one level deep (typically by leaf spread).
type BrOptions struct {
	BookTitle string      `json:"bookTitle"`
	Data      [][]PageRef `json:"data"`
}

// PageRef is one page entry inside the nested manifest.
type PageRef struct {
	URI string `json:"uri"`
}

// PageURIs flattens the nested manifest into the ordered page list.
// Entries without a URI are skipped.
func (d *ReaderData) PageURIs() []string {
	var uris []string
	for _, group := range d.BrOptions.Data {
		for _, page := range group {
			if page.URI != "" {
				uris = append(uris, page.URI)
			}
		}
	}
	return uris
}
