package model

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenChars are characters that must never appear in file or
// directory names derived from book titles.
const forbiddenChars = `<>:"/\|?*`

// maxTitleLength caps sanitized titles so the full artifact path stays
// well below common filesystem limits.
const maxTitleLength = 150

// Book represents one acquisition target on the archive.
//
// A Book is created once by the Resolver and is immutable afterward:
// the Loan Manager and the Concurrent Fetcher only ever read it. The
// order of PageURIs is the single source of truth for page ordering:
// index 0 is the first page.
//
// Exactly one of two shapes is valid:
//   - manifest books: PageCount == len(PageURIs) > 0, DirectArtifactURI empty
//   - direct-artifact books: PageCount == 0, DirectArtifactURI set
type Book struct {
	// Locator is the identifier or URL the book was resolved from.
	Locator string

	// ID is the canonical short identifier extracted from Locator.
	ID string

	// Title is the human-readable book title.
	Title string

	// PageCount is the number of pages. Zero when the book is served
	// as a direct artifact instead of a page manifest.
	PageCount int

	// PageURIs holds the remote location of every page image, in
	// reading order.
	PageURIs []string

	// Metadata carries free-form provenance (title, creator, date, …)
	// through to the output artifact.
	Metadata map[string]any

	// Restricted reports whether the content is access-gated. It is
	// decided once at resolution time and never re-evaluated.
	Restricted bool

	// DirectArtifactURI, when set, points at a pre-assembled whole
	// file that replaces the page-by-page pipeline.
	DirectArtifactURI string
}

// SafeTitle returns a filesystem-safe derivative of the title:
// forbidden characters removed, spaces replaced with underscores, and
// the result capped at 150 characters.
func (b *Book) SafeTitle() string {
	return SanitizeTitle(b.Title)
}

// HasDirectArtifact reports whether the whole-file shortcut applies.
func (b *Book) HasDirectArtifact() bool {
	return b.DirectArtifactURI != ""
}

// SanitizeTitle makes a title safe for use as a file or directory name.
//
// Example:
//
//	SanitizeTitle("Moby Dick: or, The Whale") // "Moby_Dick_or,_The_Whale"
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if strings.ContainsRune(forbiddenChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	sanitized := strings.ReplaceAll(b.String(), " ", "_")

	if len(sanitized) > maxTitleLength {
		// Cap on a rune boundary so multibyte titles stay valid UTF-8.
		if runes := []rune(sanitized); len(runes) > maxTitleLength {
			sanitized = string(runes[:maxTitleLength])
		}
	}

	return sanitized
}

var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ExtractID derives the canonical book identifier from a locator.
//
// Both full details URLs and bare identifiers are accepted:
//
//	ExtractID("https://archive.org/details/mobydick00melv") // "mobydick00melv"
//	ExtractID("mobydick00melv")                             // "mobydick00melv"
//
// Returns an error wrapping ErrValidation when no identifier can be
// extracted.
func ExtractID(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: locator is empty", ErrValidation)
	}

	if idx := strings.Index(locator, "/details/"); idx != -1 {
		id := locator[idx+len("/details/"):]
		id = strings.SplitN(id, "?", 2)[0]
		id = strings.SplitN(id, "/", 2)[0]
		if id == "" {
			return "", fmt.Errorf("%w: no identifier in locator %q", ErrValidation, locator)
		}
		return id, nil
	}

	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return "", fmt.Errorf("%w: URL %q is not a details page", ErrValidation, locator)
	}

	if !bareIDPattern.MatchString(locator) {
		return "", fmt.Errorf("%w: identifier %q contains invalid characters", ErrValidation, locator)
	}

	return locator, nil
}

// MetaString extracts a metadata value as a string. List values are
// joined with "; ", which matches how multi-valued archive fields
// (creators, associated names) are conventionally flattened.
func MetaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}
