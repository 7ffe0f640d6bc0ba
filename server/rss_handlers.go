package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/umputun/newsdesk/pkg/feed"
)

const defaultRSSLimit = 100

// rssHandler republishes articles of the current snapshot as RSS.
// Supports both /rss and /rss/{category} patterns, "all" or no category means every article.
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "all" {
		category = ""
	}

	reg := s.Config.GetRegistry()
	if category != "" && !reg.HasCategory(category) {
		http.Error(w, fmt.Sprintf("unknown category %q", category), http.StatusNotFound)
		return
	}

	articles := s.Scheduler.Snapshot().ByCategory(category)
	if len(articles) > defaultRSSLimit {
		articles = articles[:defaultRSSLimit]
	}

	generator := feed.NewGenerator(s.Config.GetBaseURL())
	rss, err := generator.GenerateRSS(articles, category, reg.CategoryLabel(category))
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// opmlHandler exports the source registry as OPML
func (s *Server) opmlHandler(w http.ResponseWriter, _ *http.Request) {
	generator := feed.NewGenerator(s.Config.GetBaseURL())
	opml, err := generator.GenerateOPML(s.Config.GetRegistry().Sources)
	if err != nil {
		log.Printf("[ERROR] failed to generate OPML: %v", err)
		http.Error(w, "Failed to generate OPML", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="newsdesk.opml"`)
	if _, err := w.Write([]byte(opml)); err != nil {
		log.Printf("[ERROR] failed to write OPML response: %v", err)
	}
}
