package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/umputun/newsdesk/pkg/domain"
)

// maxBodySize is the default limit of feed and proxied responses
const maxBodySize = 10 * 1024 * 1024

// Fetcher retrieves feeds, optionally through the proxy endpoint, and parses them
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	proxyURL  string
	maxBody   int64
}

// Options for Fetcher. ProxyURL is the proxy endpoint (e.g. http://host/api/rss),
// feed url is passed to it as "url" query parameter. Empty ProxyURL means direct fetch.
// Responses larger than MaxBodySize are rejected.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	ProxyURL    string
	MaxBodySize int64
}

// NewFetcher makes a fetcher, 15s timeout and 10MB body limit used if not set
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = maxBodySize
	}
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		proxyURL:  opts.ProxyURL,
		maxBody:   opts.MaxBodySize,
	}
}

// Fetch retrieves the source feed and returns its raw items.
// Errors are *FetchError or *ParseError.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	target, err := f.requestURL(src.URL)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}

	body, err := f.download(ctx, target, src.URL)
	if err != nil {
		return nil, err
	}

	items, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: src.URL, Err: err}
	}
	return items, nil
}

// Download retrieves any http(s) URL directly, never through the proxy.
// This is what the proxy endpoint itself uses.
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("invalid url %q", rawURL)}
	}
	return f.download(ctx, rawURL, rawURL)
}

// requestURL makes url to request for the feed, wrapped with the proxy if configured
func (f *Fetcher) requestURL(feedURL string) (string, error) {
	if f.proxyURL == "" {
		return feedURL, nil
	}
	u, err := url.Parse(f.proxyURL)
	if err != nil {
		return "", fmt.Errorf("parse proxy url: %w", err)
	}
	q := u.Query()
	q.Set("url", feedURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// download makes GET request with per-call timeout and reads the body.
// feedURL is the original url used in errors.
func (f *Fetcher) download(ctx context.Context, target, feedURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("create request: %w", err)}
	}
	addBrowserHeaders(req, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: feedURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &FetchError{URL: feedURL, Err: fmt.Errorf("response body exceeds %d bytes", f.maxBody)}
	}
	return body, nil
}
