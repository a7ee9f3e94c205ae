// Package history persists a local record of completed downloads so
// the CLI can list previously fetched books.
package history
