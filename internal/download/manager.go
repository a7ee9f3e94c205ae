package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bookfetch/internal/archive"
	"bookfetch/internal/assemble"
	httpclient "bookfetch/internal/http"
	ioutils "bookfetch/internal/io"
	"bookfetch/internal/model"
	"bookfetch/internal/workspace"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// ErrDownload marks a download that could not produce an artifact: one
// or more pages failed every retry, so nothing partial is kept.
var ErrDownload = errors.New("download failed")

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Manager coordinates book downloads end to end: resolve, borrow,
// fetch pages concurrently, assemble, clean up, return the loan.
type Manager struct {
	client    *httpclient.Client
	resolver  *archive.Resolver
	loans     *archive.LoanManager
	assembler *assemble.Assembler
	baseURL   string
	cfg       model.DownloadConfig

	maxRetries int
	retryDelay time.Duration

	totalPages   int32
	fetchedPages int32

	onProgress func(ProgressEvent)
}

// NewManager creates a download Manager operating against baseURL.
//
// The client should be the same one the Authenticator logged in with,
// so the session cookies carry over to the loan protocol and page
// fetches.
func NewManager(client *httpclient.Client, baseURL string, cfg model.DownloadConfig, onProgress func(ProgressEvent)) *Manager {
	m := &Manager{
		client:     client,
		baseURL:    baseURL,
		cfg:        cfg,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		onProgress: onProgress,
	}
	m.resolver = archive.NewResolver(client, baseURL, m.verbosef)
	m.loans = archive.NewLoanManager(client, baseURL, m.verbosef)
	m.assembler = assemble.NewAssembler(m.warnf)
	return m
}

// SetRetryPolicy overrides the per-page retry count and the delay
// between attempts.
func (m *Manager) SetRetryPolicy(retries int, delay time.Duration) {
	m.maxRetries = retries
	m.retryDelay = delay
}

// GetProgress returns current page fetch progress.
func (m *Manager) GetProgress() (fetched, total int32) {
	return atomic.LoadInt32(&m.fetchedPages), atomic.LoadInt32(&m.totalPages)
}

// Download runs the whole pipeline for one book locator and returns
// the path of the produced artifact.
func (m *Manager) Download(ctx context.Context, locator string) (string, error) {
	book, err := m.resolver.Resolve(ctx, locator)
	if err != nil {
		return "", err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Found book: %s (%d pages)", book.Title, book.PageCount), Level: LevelInfo})

	if book.HasDirectArtifact() {
		return m.downloadDirect(ctx, book)
	}

	if _, err := m.loans.Borrow(ctx, book.ID); err != nil {
		return "", err
	}

	ws, err := workspace.Allocate(book.SafeTitle(), m.cfg.OutputDir)
	if err != nil {
		m.returnLoan(ctx, book.ID)
		return "", err
	}

	files, err := m.fetchPages(ctx, book, ws.Dir)
	if err != nil {
		ws.Release(m.warnf)
		m.returnLoan(ctx, book.ID)
		return "", err
	}

	if m.cfg.SaveMetadata {
		// With image output the metadata lives inside the artifact
		// directory; otherwise next to the document.
		dest := filepath.Join(ws.Dir, "metadata.json")
		if m.cfg.Format != model.FormatImages {
			dest = filepath.Join(m.cfg.OutputDir, book.SafeTitle()+"_metadata.json")
		}
		m.saveMetadata(book, dest)
	}

	artifact, err := m.assembler.Assemble(book, files, m.cfg)
	if err != nil {
		ws.Release(m.warnf)
		m.returnLoan(ctx, book.ID)
		return "", err
	}

	// For the image-set format the workspace directory IS the
	// artifact; for the document format it is scratch space.
	if m.cfg.Format != model.FormatImages {
		ws.Release(m.warnf)
	}

	m.returnLoan(ctx, book.ID)

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %s to %s", book.Title, artifact), Level: LevelSuccess})
	return artifact, nil
}

// downloadDirect fetches a pre-assembled file (PDF or EPUB listed in
// the item metadata), bypassing the page pipeline entirely.
func (m *Manager) downloadDirect(ctx context.Context, book *model.Book) (string, error) {
	ext := filepath.Ext(book.DirectArtifactURI)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" {
		ext = ".pdf"
	}

	dest := ioutils.UniquePath(filepath.Join(m.cfg.OutputDir, book.SafeTitle()+ext))
	if err := os.MkdirAll(m.cfg.OutputDir, 0755); err != nil {
		return "", err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %s directly", filepath.Base(dest)), Level: LevelVerbose})

	var err error
	for tries := 0; tries < m.maxRetries; tries++ {
		err = m.client.DownloadFile(ctx, book.DirectArtifactURI, dest, nil)
		if err == nil {
			break
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s: %v", tries+1, m.maxRetries, filepath.Base(dest), err), Level: LevelWarning})
		m.waitForRetry(ctx)
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: %s: %v", ErrDownload, book.DirectArtifactURI, err)
	}

	if m.cfg.SaveMetadata {
		m.saveMetadata(book, filepath.Join(m.cfg.OutputDir, book.SafeTitle()+"_metadata.json"))
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %s to %s", book.Title, dest), Level: LevelSuccess})
	return dest, nil
}

// fetchPages downloads every page image into dir, numbered in manifest
// order with uniform zero-padded names so lexical order matches page
// order. All pages must succeed; a single page failing every retry
// fails the whole fetch.
func (m *Manager) fetchPages(ctx context.Context, book *model.Book, dir string) ([]string, error) {
	n := len(book.PageURIs)
	atomic.StoreInt32(&m.totalPages, int32(n))
	atomic.StoreInt32(&m.fetchedPages, 0)

	width := len(strconv.Itoa(n))
	results := make([]model.FetchResult, n)
	headers := pageHeaders(m.baseURL, book.ID)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)

	for i, uri := range book.PageURIs {
		i, uri := i, uri // capture
		g.Go(func() error {
			path, err := m.fetchPage(ctx, book.ID, uri, dir, i, width, headers)
			results[i] = model.FetchResult{Page: i, Path: path, Err: err}
			if err != nil {
				return fmt.Errorf("%w: page %d: %v", ErrDownload, i, err)
			}
			atomic.AddInt32(&m.fetchedPages, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]string, n)
	for _, res := range results {
		files[res.Page] = res.Path
	}
	return files, nil
}

// fetchPage downloads one page image with retries. A 403 means the
// loan token expired mid-download; the grant is refreshed (collapsed
// across workers) and the attempt repeated with the new token, which
// is read at send time rather than captured up front.
func (m *Manager) fetchPage(ctx context.Context, bookID, uri, dir string, page, width int, headers map[string]string) (string, error) {
	scaled := scaledURI(uri, m.cfg.Resolution)

	var lastErr error
	for tries := 0; tries < m.maxRetries; tries++ {
		if tries > 0 {
			m.waitForRetry(ctx)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, err := m.client.Fetch(ctx, m.authorizedURI(scaled), headers)
		if err != nil {
			lastErr = err
			m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for page %d: %v", tries+1, m.maxRetries, page, err), Level: LevelWarning})
			continue
		}

		if resp.Status == 403 {
			lastErr = fmt.Errorf("HTTP 403")
			m.progress(ProgressEvent{Message: fmt.Sprintf("Access token expired on page %d, re-borrowing", page), Level: LevelWarning})
			if _, err := m.loans.Refresh(ctx, bookID); err != nil {
				return "", err
			}
			continue
		}
		if resp.Status != 200 {
			lastErr = fmt.Errorf("HTTP %d", resp.Status)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for page %d: HTTP %d", tries+1, m.maxRetries, page, resp.Status), Level: LevelWarning})
			continue
		}

		name := fmt.Sprintf("%0*d.%s", width, page, extFromContentType(resp.ContentType))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, resp.Body, 0644); err != nil {
			return "", err
		}

		m.progress(ProgressEvent{Message: fmt.Sprintf("Fetched page %d/%d", page+1, atomic.LoadInt32(&m.totalPages)), Level: LevelVerbose})
		return path, nil
	}

	return "", lastErr
}

// authorizedURI appends the current loan token, if any, as a query
// parameter. Reading the grant here means a refresh performed by one
// worker is picked up by every request sent afterwards.
func (m *Manager) authorizedURI(uri string) string {
	grant := m.loans.Current()
	if !grant.Gated() {
		return uri
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "token=" + url.QueryEscape(grant.Token)
}

// scaledURI appends the fixed rotation and the scale parameter
// selecting page resolution (0 = full size, higher = smaller). The
// remote expects both on every page request.
func scaledURI(uri string, resolution int) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "rotate=0&scale=" + strconv.Itoa(resolution)
}

// pageHeaders mimics an in-browser reader requesting page tiles; some
// gated items refuse requests without them.
func pageHeaders(baseURL, bookID string) map[string]string {
	return map[string]string{
		"Referer":        baseURL + "/",
		"Accept":         "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		"Sec-Fetch-Site": "same-site",
		"Sec-Fetch-Mode": "no-cors",
		"Sec-Fetch-Dest": "image",
	}
}

func extFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

// saveMetadata writes the item metadata as indented JSON to dest.
// Failures are warnings; metadata never blocks the artifact.
func (m *Manager) saveMetadata(book *model.Book, dest string) {
	data, err := json.MarshalIndent(book.Metadata, "", "  ")
	if err != nil {
		m.warnf("marshaling metadata for %s: %v", book.ID, err)
		return
	}

	path := ioutils.UniquePath(dest)
	if err := os.WriteFile(path, data, 0644); err != nil {
		m.warnf("saving metadata for %s: %v", book.ID, err)
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved metadata to %s", path), Level: LevelVerbose})
}

// returnLoan is best-effort: a failed return never overrides the
// download outcome. Tokenless grants are returned too, the remote
// treats a redundant return as a no-op.
func (m *Manager) returnLoan(ctx context.Context, bookID string) {
	if err := m.loans.Return(ctx, bookID); err != nil {
		m.warnf("returning loan for %s: %v", bookID, err)
	}
}

func (m *Manager) waitForRetry(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.retryDelay):
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func (m *Manager) verbosef(format string, args ...any) {
	m.progress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: LevelVerbose})
}

func (m *Manager) warnf(format string, args ...any) {
	m.progress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: LevelWarning})
}
