// Package aggregator runs one aggregation pass over the source registry:
// concurrent fetch of every source, normalization, title dedupe, relevance gate for
// broad sources, derived display fields and recency sort.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/pkg/summary"
	"github.com/umputun/newsdesk/pkg/text"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/scorer.go -pkg mocks -skip-ensure -fmt goimports . Scorer

// Fetcher retrieves raw items of a single source
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.RawItem, error)
}

// Scorer evaluates relevance of an article for a category
type Scorer interface {
	Score(title, description, category string) int
}

// Pipeline aggregates sources into a snapshot. It keeps no state between runs,
// so a single instance can be used by concurrent callers.
type Pipeline struct {
	fetcher    Fetcher
	scorer     Scorer
	maxWorkers int
	now        func() time.Time
}

// Params for New. MaxWorkers limits concurrent fetches, zero means one goroutine per source.
// Now is the clock, time.Now if not set.
type Params struct {
	Fetcher    Fetcher
	Scorer     Scorer
	MaxWorkers int
	Now        func() time.Time
}

// New makes a pipeline
func New(p Params) *Pipeline {
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Pipeline{fetcher: p.Fetcher, scorer: p.Scorer, maxWorkers: p.MaxWorkers, now: p.Now}
}

// outcome of a single source fetch, each fetch goroutine owns one
type outcome struct {
	items    []domain.RawItem
	err      error
	duration time.Duration
}

// Run fetches all sources concurrently and merges the results. Every fetch settles,
// a failed source is recorded in the status and never affects other sources.
// Run itself never fails; total failure results in empty article list.
func (p *Pipeline) Run(ctx context.Context, sources []domain.Source) domain.Snapshot {
	started := p.now()
	outcomes := p.fetchAll(ctx, sources)

	now := p.now()
	res := domain.Snapshot{
		RunID:    uuid.NewString(),
		Articles: []domain.Article{},
		Status:   domain.FetchStatus{},
		Reports:  make([]domain.SourceReport, 0, len(sources)),
	}

	// merge in registry order, seen titles are global across sources and categories
	seen := make(map[string]bool)
	for i, src := range sources {
		out := outcomes[i]
		report := domain.SourceReport{Name: src.Name, Category: src.Category, URL: src.URL,
			State: domain.SourceOK, Items: len(out.items), Duration: out.duration}

		if out.err != nil {
			report.State, report.Error = domain.SourceError, out.err.Error()
			res.Status[src.Name] = domain.SourceError // error wins for entries sharing a name
			res.Reports = append(res.Reports, report)
			continue
		}
		if _, ok := res.Status[src.Name]; !ok {
			res.Status[src.Name] = domain.SourceOK
		}

		for _, raw := range out.items {
			title := text.Normalize(raw.Title)
			if title == "" || seen[title] {
				continue
			}
			description := text.Normalize(raw.Description)
			if src.Broad && p.scorer.Score(title, description, src.Category) == 0 {
				continue
			}
			seen[title] = true
			res.Articles = append(res.Articles, makeArticle(raw, title, description, src, now))
			report.Accepted++
		}
		res.Reports = append(res.Reports, report)
	}

	sort.SliceStable(res.Articles, func(i, j int) bool {
		return res.Articles[i].Published.After(res.Articles[j].Published)
	})
	res.Started, res.LastSync = started, p.now()

	lgr.Printf("[INFO] aggregation %s done in %v: %d articles, %d sources ok, %d failed",
		res.RunID, res.LastSync.Sub(started), len(res.Articles), res.Status.Succeeded(), res.Status.Failed())
	return res
}

// fetchAll runs fetches concurrently and waits for all of them to settle.
// The result is indexed as sources.
func (p *Pipeline) fetchAll(ctx context.Context, sources []domain.Source) []outcome {
	outcomes := make([]outcome, len(sources))

	var g errgroup.Group
	if p.maxWorkers > 0 {
		g.SetLimit(p.maxWorkers)
	}
	for i, src := range sources {
		g.Go(func() error {
			st := time.Now()
			items, err := p.fetchSource(ctx, src)
			outcomes[i] = outcome{items: items, err: err, duration: time.Since(st)}
			if err != nil {
				lgr.Printf("[WARN] failed to fetch %s (%s): %v", src.Name, src.Category, err)
				return nil // settle, don't cancel the others
			}
			lgr.Printf("[DEBUG] fetched %d items from %s (%s) in %v", len(items), src.Name, src.Category, outcomes[i].duration)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// fetchSource calls fetcher and turns panic into an error
func (p *Pipeline) fetchSource(ctx context.Context, src domain.Source) (items []domain.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("fetch %s panicked: %v", src.URL, r)
		}
	}()
	return p.fetcher.Fetch(ctx, src)
}

// makeArticle derives display fields. Missing publish time is treated as now.
func makeArticle(raw domain.RawItem, title, description string, src domain.Source, now time.Time) domain.Article {
	published := raw.PublishedParsed
	if published.IsZero() {
		published = now
	}
	age := now.Sub(published)

	execSummary := summary.Exec(description)
	if execSummary == "" {
		execSummary = title
	}

	link := strings.TrimSpace(raw.Link)
	if link == "" {
		link = domain.NoURL
	}

	return domain.Article{
		ID:            title + src.Category,
		Title:         title,
		Description:   description,
		Category:      src.Category,
		Source:        src.Name,
		Published:     published,
		AgeHours:      age.Hours(),
		Breaking:      age < domain.BreakingAge,
		TimeAgo:       TimeAgo(age),
		ExecSummary:   execSummary,
		DetailSummary: summary.Detail(description),
		URL:           link,
	}
}

// TimeAgo renders age as "just now", "5m ago", "3h ago" or "2d ago"
func TimeAgo(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(age/(24*time.Hour)))
	}
}
