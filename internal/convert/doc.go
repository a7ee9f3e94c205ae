// Package convert renders EPUB documents as plain-text PDFs for
// readers that only accept PDF input.
package convert
