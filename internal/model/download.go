package model

import "fmt"

// ErrValidation is returned when configuration values or input
// identifiers are malformed.
var ErrValidation = fmt.Errorf("validation error")

// OutputFormat selects the shape of the final artifact.
type OutputFormat string

const (
	// FormatPDF assembles all pages into a single PDF document.
	FormatPDF OutputFormat = "pdf"

	// FormatImages keeps the ordered page images as a directory.
	FormatImages OutputFormat = "jpg"
)

// ParseOutputFormat converts a user-supplied format string.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatPDF, FormatImages:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", ErrValidation, s)
	}
}

// DownloadConfig holds the immutable parameters of one acquisition run.
//
// Construct it with NewDownloadConfig, which enforces the valid ranges.
type DownloadConfig struct {
	// Resolution selects page image quality: 0 is best, 10 is fastest.
	Resolution int

	// Workers is the size of the concurrent fetch pool.
	Workers int

	// OutputDir is where the workspace and final artifact are created.
	OutputDir string

	// Format selects single-document or image-set output.
	Format OutputFormat

	// SaveMetadata writes a metadata.json next to the page files.
	SaveMetadata bool

	// Verbose enables per-page progress reporting.
	Verbose bool
}

// NewDownloadConfig validates and returns a DownloadConfig.
//
// Resolution must be in [0, 10] and Workers in [1, 200]; violations
// return an error wrapping ErrValidation.
func NewDownloadConfig(resolution, workers int, outputDir string, format OutputFormat, saveMetadata, verbose bool) (DownloadConfig, error) {
	if resolution < 0 || resolution > 10 {
		return DownloadConfig{}, fmt.Errorf("%w: resolution must be between 0 and 10, got %d", ErrValidation, resolution)
	}
	if workers < 1 || workers > 200 {
		return DownloadConfig{}, fmt.Errorf("%w: workers must be between 1 and 200, got %d", ErrValidation, workers)
	}
	if outputDir == "" {
		return DownloadConfig{}, fmt.Errorf("%w: output directory is required", ErrValidation)
	}

	return DownloadConfig{
		Resolution:   resolution,
		Workers:      workers,
		OutputDir:    outputDir,
		Format:       format,
		SaveMetadata: saveMetadata,
		Verbose:      verbose,
	}, nil
}

// FetchResult is the outcome of fetching a single page.
//
// Err == nil means the page was fetched and written to Path. A non-nil
// Err marks a permanent failure after all retries were exhausted.
// Results are aggregated into a slice indexed by page number, so
// ordering never depends on completion order.
type FetchResult struct {
	// Page is the zero-based page index.
	Page int

	// Path is the local file the page bytes were written to.
	Path string

	// Err records a permanent failure, nil on success.
	Err error
}
