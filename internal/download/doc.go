// Package download orchestrates the book download pipeline: resolving
// a locator, borrowing an access grant, fetching page images through a
// bounded worker pool with retry and token-refresh handling, writing
// optional metadata, assembling the artifact and cleaning up.
//
// Progress is reported through an observer callback so both the CLI
// and the TUI can consume the same events.
package download
