package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/pkg/feed"
	"github.com/umputun/newsdesk/pkg/llm"
)

// summarizeRequest is the body of summarize call
type summarizeRequest struct {
	Title       string `json:"title"`
	ExecSummary string `json:"execSummary"`
	URL         string `json:"url,omitempty"` // article link, used for text extraction if enabled
}

// proxyHandler fetches a feed server-side for browsers blocked by CORS, GET /api/rss?url=<feed url>
func (s *Server) proxyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	target := r.URL.Query().Get("url")
	if target == "" {
		renderJSON(w, r, http.StatusBadRequest, map[string]string{"error": "No URL"})
		return
	}
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		renderError(w, r, errors.New("invalid url"), http.StatusBadRequest)
		return
	}

	body, err := s.Downloader.Download(r.Context(), target)
	if err != nil {
		log.Printf("[WARN] proxy request for %s failed: %v", target, err)
		code := http.StatusInternalServerError
		if fe := (*feed.FetchError)(nil); errors.As(err, &fe) && fe.Status != 0 {
			code = http.StatusBadGateway
		}
		renderError(w, r, err, code)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Printf("[WARN] failed to write proxy response: %v", err)
	}
}

// summarizeHandler writes analysis of an article with llm, POST /api/summarize {title, execSummary, url}
func (s *Server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		renderJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		renderError(w, r, llm.ErrNoTitle, http.StatusBadRequest)
		return
	}
	if !s.Summarizer.Configured() {
		renderError(w, r, llm.ErrNotConfigured, http.StatusInternalServerError)
		return
	}

	summary, err := s.Summarizer.Summarize(r.Context(), llm.SummarizeRequest{
		Title:       req.Title,
		ExecSummary: req.ExecSummary,
		Text:        s.articleText(r, req.URL),
	})

	var upErr *llm.UpstreamError
	switch {
	case err == nil:
		renderJSON(w, r, http.StatusOK, map[string]string{"summary": summary})
	case errors.Is(err, llm.ErrNoTitle):
		renderError(w, r, err, http.StatusBadRequest)
	case errors.Is(err, llm.ErrNotConfigured):
		renderError(w, r, err, http.StatusInternalServerError)
	case errors.As(err, &upErr):
		renderJSON(w, r, http.StatusBadGateway, map[string]string{"error": "Upstream API error", "detail": upErr.Detail})
	default:
		log.Printf("[ERROR] summarize %q failed: %v", req.Title, err)
		renderError(w, r, err, http.StatusInternalServerError)
	}
}

// articleText extracts text of the article page if extraction is enabled.
// Only links of articles in the current snapshot are fetched.
func (s *Server) articleText(r *http.Request, link string) string {
	if s.Extractor == nil || link == "" || link == domain.NoURL {
		return ""
	}

	known := false
	for _, a := range s.Scheduler.Snapshot().Articles {
		if a.URL == link {
			known = true
			break
		}
	}
	if !known {
		log.Printf("[DEBUG] skip extraction of %s, not in current snapshot", link)
		return ""
	}

	text, err := s.Extractor.Extract(r.Context(), link)
	if err != nil {
		log.Printf("[WARN] failed to extract %s, summarize without text: %v", link, err)
		return ""
	}
	return text
}
