package model

// SearchResult is one row returned by the archive search endpoint.
type SearchResult struct {
	Identifier string
	Title      string
	Creator    string
	Date       string
	ItemSize   int64
	ImageCount int
	Downloads  int

	// Restricted is derived with the same rule the Resolver uses:
	// an explicit restriction flag or membership in a lending
	// collection.
	Restricted bool
}
