// Package content extracts readable article text from a page, used to give the summarizer
// more than a feed teaser
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"
)

// defaultUserAgent for article page requests
const defaultUserAgent = "Mozilla/5.0 (compatible; Newsdesk/1.0)"

// maxPageSize limits the size of the page body read
const maxPageSize = 5 * 1024 * 1024

// Options for NewHTTPExtractor
type Options struct {
	Timeout       time.Duration
	MinTextLength int // shorter extracted text is rejected
	MaxTextLength int // longer text is cut, 0 for no limit
	UserAgent     string
}

// HTTPExtractor gets article text from its page with trafilatura
type HTTPExtractor struct {
	opts   Options
	client *http.Client
}

// NewHTTPExtractor makes extractor, client timeout covers download of a single page
func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &HTTPExtractor{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Extract downloads the page and returns its main text with whitespace collapsed.
// Text shorter than MinTextLength is an error, longer than MaxTextLength is cut.
func (e *HTTPExtractor) Extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", link)
	}

	body, err := e.page(ctx, link)
	if err != nil {
		return "", err
	}

	text, err := mainText(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extract from %s: %w", link, err)
	}

	runes := []rune(text)
	if len(runes) < e.opts.MinTextLength {
		return "", fmt.Errorf("text from %s is too short, %d chars", link, len(runes))
	}
	if e.opts.MaxTextLength > 0 && len(runes) > e.opts.MaxTextLength {
		text = string(runes[:e.opts.MaxTextLength])
	}
	return text, nil
}

// page downloads html of the page, up to maxPageSize
func (e *HTTPExtractor) page(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("make request for %s: %w", link, err)
	}
	addPageHeaders(req, e.opts.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status code %d", link, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", link, err)
	}
	return body, nil
}

// mainText runs trafilatura over the page, comments and tables are dropped
func mainText(body []byte, pageURL *url.URL) (string, error) {
	res, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		ExcludeTables:   true,
		Deduplicate:     true,
		OriginalURL:     pageURL,
	})
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", errors.New("no content")
	}

	text := strings.Join(strings.Fields(res.ContentText), " ")
	if text == "" {
		return "", errors.New("no text content")
	}
	return text, nil
}
