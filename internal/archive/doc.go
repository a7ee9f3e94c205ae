// Package archive implements the remote protocols of the book
// archive: session login, book resolution, the loan (borrow/return)
// state machine, and catalog search.
//
// # Resolution
//
// The Resolver turns a locator (details URL or bare identifier) into
// an immutable Book. Resolution is two-tiered: the page manifest
// embedded behind the details page wins; failing that, the item's file
// listing may offer a pre-assembled whole document.
//
//	resolver := archive.NewResolver(client, archive.DefaultBaseURL, logf)
//	book, err := resolver.Resolve(ctx, "https://archive.org/details/someid")
//
// # Loans
//
// Access-gated content requires a loan. The LoanManager walks the
// grant_access / browse_book / create_token sequence and hands out a
// LoanGrant whose token is appended to page requests:
//
//	grant, err := loans.Borrow(ctx, book.ID)
//	defer loans.Return(ctx, book.ID)
//
// When a page fetch sees HTTP 403 the token has expired; Refresh
// re-borrows, collapsing concurrent refreshes into one round trip.
//
// # Errors
//
// All failures wrap one of the package sentinels (ErrAuthentication,
// ErrResolution, ErrLoan, ErrSearch) and are classified with
// errors.Is.
package archive
