package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/pkg/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// articlesResponse is the display contract of the dashboard
type articlesResponse struct {
	Category      string                `json:"category"`
	Articles      []domain.Article      `json:"articles"`
	Breaking      []domain.Article      `json:"breaking"`
	Status        domain.FetchStatus    `json:"status"`
	Reports       []domain.SourceReport `json:"reports"`
	LastSync      time.Time             `json:"last_sync"`
	Loading       bool                  `json:"loading"`
	SourcesOK     int                   `json:"sources_ok"`
	SourcesFailed int                   `json:"sources_failed"`
}

// categoryInfo is a category tab with its counters
type categoryInfo struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Breaking int    `json:"breaking"`
}

// sourceInfo is a registry entry with the outcome of the last run
type sourceInfo struct {
	domain.Source
	State    domain.SourceState `json:"state,omitempty"`
	Error    string             `json:"error,omitempty"`
	Items    int                `json:"items"`
	Accepted int                `json:"accepted"`
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.Scheduler.Snapshot()
	status := map[string]any{
		"status":         "ok",
		"version":        s.Version,
		"time":           time.Now().UTC(),
		"run_id":         snap.RunID,
		"last_sync":      snap.LastSync,
		"loading":        snap.Loading,
		"articles":       len(snap.Articles),
		"sources_ok":     snap.Status.Succeeded(),
		"sources_failed": snap.Status.Failed(),
		"summaries":      s.Summarizer != nil && s.Summarizer.Configured(),
		"history":        s.History != nil,
	}
	renderJSON(w, r, http.StatusOK, status)
}

// articlesHandler returns articles of the current snapshot, filtered by ?category=
func (s *Server) articlesHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && category != "all" && !s.Config.GetRegistry().HasCategory(category) {
		renderError(w, r, fmt.Errorf("unknown category %q", category), http.StatusBadRequest)
		return
	}

	snap := s.Scheduler.Snapshot()
	renderJSON(w, r, http.StatusOK, articlesResponse{
		Category:      category,
		Articles:      snap.ByCategory(category),
		Breaking:      snap.Breaking(),
		Status:        snap.Status,
		Reports:       snap.Reports,
		LastSync:      snap.LastSync,
		Loading:       snap.Loading,
		SourcesOK:     snap.Status.Succeeded(),
		SourcesFailed: snap.Status.Failed(),
	})
}

// refreshHandler triggers aggregation and waits for it, joining a run already in flight
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Scheduler.Refresh(r.Context())
	if err != nil {
		log.Printf("[WARN] refresh request failed: %v", err)
		renderError(w, r, fmt.Errorf("refresh: %w", err), http.StatusServiceUnavailable)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]any{
		"run_id":         snap.RunID,
		"articles":       len(snap.Articles),
		"breaking":       len(snap.Breaking()),
		"sources_ok":     snap.Status.Succeeded(),
		"sources_failed": snap.Status.Failed(),
		"last_sync":      snap.LastSync,
	})
}

// categoriesHandler returns "all" followed by registry categories, with article counts
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.Scheduler.Snapshot()
	reg := s.Config.GetRegistry()

	counts := map[string]*categoryInfo{}
	res := []*categoryInfo{{Key: "all", Label: "All", Count: len(snap.Articles), Breaking: len(snap.Breaking())}}
	for _, c := range reg.Categories {
		info := &categoryInfo{Key: c.Key, Label: c.Label}
		counts[c.Key] = info
		res = append(res, info)
	}
	for _, a := range snap.Articles {
		info, ok := counts[a.Category]
		if !ok {
			continue
		}
		info.Count++
		if a.Breaking {
			info.Breaking++
		}
	}
	renderJSON(w, r, http.StatusOK, res)
}

// sourcesHandler returns the source registry with outcome of the last run per entry
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.Scheduler.Snapshot()

	type key struct{ name, category, url string }
	reports := make(map[key]domain.SourceReport, len(snap.Reports))
	for _, rep := range snap.Reports {
		reports[key{rep.Name, rep.Category, rep.URL}] = rep
	}

	sources := s.Config.GetRegistry().Sources
	res := make([]sourceInfo, 0, len(sources))
	for _, src := range sources {
		info := sourceInfo{Source: src}
		if rep, ok := reports[key{src.Name, src.Category, src.URL}]; ok {
			info.State, info.Error, info.Items, info.Accepted = rep.State, rep.Error, rep.Items, rep.Accepted
		}
		res = append(res, info)
	}
	renderJSON(w, r, http.StatusOK, res)
}

// historyHandler returns recent sync runs, ?limit= defaults to 20
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		renderError(w, r, errors.New("history is disabled"), http.StatusNotFound)
		return
	}

	limit, err := queryLimit(r, defaultHistoryLimit)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	runs, err := s.History.Runs(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to get sync history: %v", err)
		renderError(w, r, errors.New("failed to get sync history"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, runs)
}

// historyRunHandler returns a single sync run
func (s *Server) historyRunHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		renderError(w, r, errors.New("history is disabled"), http.StatusNotFound)
		return
	}

	run, err := s.History.Run(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrNotFound) {
		renderError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[ERROR] failed to get sync run: %v", err)
		renderError(w, r, errors.New("failed to get sync run"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, run)
}

// sourceHealthHandler returns per-source failure counts over the last ?limit= runs
func (s *Server) sourceHealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		renderError(w, r, errors.New("history is disabled"), http.StatusNotFound)
		return
	}

	limit, err := queryLimit(r, defaultHistoryLimit)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	health, err := s.History.SourceHealth(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to get source health: %v", err)
		renderError(w, r, errors.New("failed to get source health"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, health)
}

// queryLimit parses ?limit=, capped by maxHistoryLimit
func queryLimit(r *http.Request, def int) (int, error) {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit %q", val)
	}
	return min(limit, maxHistoryLimit), nil
}
