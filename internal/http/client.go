package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client wraps HTTP operations with archive-specific configuration.
//
// Client provides:
//   - A shared cookie jar, so the login session is visible to every
//     later request (loan protocol, page fetches)
//   - Configured User-Agent header
//   - Timeout handling
//   - Whole-file download with progress tracking
//
// A single Client is shared by all fetch workers and must therefore be
// safe for concurrent use; the underlying net/http client and cookie
// jar both are.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client with a fresh cookie jar.
//
// The client is configured with:
//   - 60 second timeout per request
//   - "bookfetch" User-Agent header
func NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Jar:     jar,
		},
		userAgent: "bookfetch",
	}
}

// Response carries the status code and body of a completed request.
// Helpers that need to inspect non-2xx responses (the loan protocol,
// page fetches watching for 403) use this instead of treating every
// non-200 as an error.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// ProgressWriter wraps a writer to track download progress.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body.
//
// Returns an error if the request fails or the response status is not
// 200 OK. Use Fetch when non-200 statuses carry meaning.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Fetch(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.Status, url)
	}
	return resp.Body, nil
}

// GetString performs a GET request and returns the body as a string.
//
// This is a convenience wrapper around Get for fetching text content
// like the book details page.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fetch performs a GET request with optional extra headers and returns
// the status code alongside the body, without policing the status.
//
// Page fetch workers use this to distinguish 403 (loan token expired)
// from other failures.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// PostForm sends a form-encoded POST and returns status and body
// without policing the status. The loan protocol inspects specific
// non-2xx responses, so errors here are transport failures only.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// DownloadFile downloads a file to the specified path with an optional
// progress callback, streaming directly to disk.
//
// Used for the direct-artifact shortcut, where a whole pre-assembled
// file replaces the page-by-page pipeline.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	_, err = io.Copy(writer, resp.Body)
	return err
}
