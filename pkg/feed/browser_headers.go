package feed

import (
	"math/rand"
	"net/http"
)

// DefaultUserAgent is permissive enough for feeds refusing obvious bots
const DefaultUserAgent = "Mozilla/5.0 (compatible; Newsdesk/1.0; +https://github.com/umputun/newsdesk)"

// acceptLanguages contains common browser Accept-Language values
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,ar;q=0.8",
	"ar-QA,ar;q=0.9,en;q=0.8",
}

// addBrowserHeaders makes feed requests look like they come from a browser,
// some publishers answer 403 to anything else
func addBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation
	if rand.Float32() < 0.3 { //nolint:gosec // non-cryptographic randomness is fine
		req.Header.Set("DNT", "1")
	}
}
