package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdesk/pkg/aggregator/mocks"
	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/pkg/relevance"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func testKeywords() *relevance.Scorer {
	return relevance.NewScorer(map[string][]string{
		"qatar":  {"qatar", "doha", "gulf"},
		"sports": {"football", "match"},
	})
}

// fetcherFromMap returns items by source url, error for urls mapped to nil
func fetcherFromMap(items map[string][]domain.RawItem, errs map[string]error) *mocks.FetcherMock {
	return &mocks.FetcherMock{
		FetchFunc: func(_ context.Context, src domain.Source) ([]domain.RawItem, error) {
			if err, ok := errs[src.URL]; ok {
				return nil, err
			}
			return items[src.URL], nil
		},
	}
}

func newTestPipeline(f Fetcher) *Pipeline {
	return New(Params{Fetcher: f, Scorer: testKeywords(), Now: func() time.Time { return testNow }})
}

func TestPipeline_Run_BroadSourceFiltered(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "Business Wire", URL: "http://example.com/business"},
		{Category: "qatar", Name: "World Mix", URL: "http://example.com/all.xml", Broad: true},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://example.com/business": {{Title: "Bank Reports Record Profit", PublishedParsed: testNow.Add(-time.Hour)}},
		"http://example.com/all.xml": {{Title: "Global Markets Update", Description: "Stocks rose in Tokyo and London.",
			PublishedParsed: testNow.Add(-time.Hour)}},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "Bank Reports Record Profit", snap.Articles[0].Title)
	assert.Equal(t, "business", snap.Articles[0].Category)
	assert.Equal(t, domain.FetchStatus{"Business Wire": domain.SourceOK, "World Mix": domain.SourceOK}, snap.Status)
	assert.Len(t, fetcher.FetchCalls(), 2)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, testNow, snap.LastSync)
}

func TestPipeline_Run_BroadSourceRelevantAccepted(t *testing.T) {
	sources := []domain.Source{{Category: "qatar", Name: "World Mix", URL: "http://example.com/all.xml", Broad: true}}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://example.com/all.xml": {
			{Title: "Doha hosts summit", Description: "Leaders gather."},
			{Title: "Weather in Oslo", Description: "Rain expected."},
		},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "Doha hosts summit", snap.Articles[0].Title)
	require.Len(t, snap.Reports, 1)
	assert.Equal(t, 2, snap.Reports[0].Items)
	assert.Equal(t, 1, snap.Reports[0].Accepted)
}

func TestPipeline_Run_DuplicateTitles(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "A", URL: "http://a.example.com"},
		{Category: "international", Name: "B", URL: "http://b.example.com"},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://a.example.com": {{Title: "Same Headline", Link: "http://a.example.com/1"}},
		"http://b.example.com": {{Title: "Same Headline", Link: "http://b.example.com/1"}, {Title: "Other"}},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.Len(t, snap.Articles, 2)
	titles := map[string]int{}
	for _, a := range snap.Articles {
		titles[a.Title]++
	}
	assert.Equal(t, map[string]int{"Same Headline": 1, "Other": 1}, titles)

	// first in registry order wins
	for _, a := range snap.Articles {
		if a.Title == "Same Headline" {
			assert.Equal(t, "business", a.Category)
			assert.Equal(t, "http://a.example.com/1", a.URL)
		}
	}
}

func TestPipeline_Run_DedupeOnNormalizedTitle(t *testing.T) {
	sources := []domain.Source{{Category: "business", Name: "A", URL: "http://a.example.com"}}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://a.example.com": {
			{Title: "Oil &amp; Gas <b>rally</b>"},
			{Title: "  Oil & Gas   rally "},
			{Title: "oil & gas rally"}, // case differs, kept
			{Title: "<p></p>"},         // empty after normalization
			{Title: ""},
		},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.Len(t, snap.Articles, 2)
	assert.Equal(t, "Oil & Gas rally", snap.Articles[0].Title)
	assert.Equal(t, "oil & gas rally", snap.Articles[1].Title)
}

func TestPipeline_Run_RejectedTitleNotSeen(t *testing.T) {
	// title rejected by a broad source must still be accepted from a later narrow one
	sources := []domain.Source{
		{Category: "qatar", Name: "World Mix", URL: "http://example.com/all.xml", Broad: true},
		{Category: "business", Name: "Business Wire", URL: "http://example.com/business"},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://example.com/all.xml":  {{Title: "Markets close higher"}},
		"http://example.com/business": {{Title: "Markets close higher"}},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "business", snap.Articles[0].Category)
}

func TestPipeline_Run_SameURLDifferentCategories(t *testing.T) {
	sources := []domain.Source{
		{Category: "qatar", Name: "Al Jazeera", URL: "http://example.com/all.xml", Broad: true},
		{Category: "sports", Name: "Al Jazeera", URL: "http://example.com/all.xml", Broad: true},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://example.com/all.xml": {
			{Title: "Qatar wins football match", PublishedParsed: testNow.Add(-time.Hour)},
			{Title: "Football final tonight", PublishedParsed: testNow.Add(-2 * time.Hour)},
			{Title: "Gulf weather update", PublishedParsed: testNow.Add(-3 * time.Hour)},
		},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	assert.Len(t, fetcher.FetchCalls(), 2, "each registry entry fetched independently")

	got := map[string]string{}
	for _, a := range snap.Articles {
		got[a.Title] = a.Category
	}
	assert.Equal(t, map[string]string{
		"Qatar wins football match": "qatar", // first category that accepts it
		"Gulf weather update":       "qatar",
		"Football final tonight":    "sports",
	}, got)
	assert.Equal(t, domain.FetchStatus{"Al Jazeera": domain.SourceOK}, snap.Status)
}

func TestPipeline_Run_NetworkError(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "Good 1", URL: "http://good1.example.com"},
		{Category: "business", Name: "Broken", URL: "http://broken.example.com"},
		{Category: "travel", Name: "Good 2", URL: "http://good2.example.com"},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://good1.example.com": {{Title: "one"}, {Title: "two"}},
		"http://good2.example.com": {{Title: "three"}},
	}, map[string]error{"http://broken.example.com": errors.New("connection refused")})

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	assert.Len(t, snap.Articles, 3)
	assert.Equal(t, domain.SourceError, snap.Status["Broken"])
	assert.Equal(t, domain.SourceOK, snap.Status["Good 1"])
	assert.Equal(t, domain.SourceOK, snap.Status["Good 2"])
	assert.Equal(t, 1, snap.Status.Failed())
	assert.Equal(t, 2, snap.Status.Succeeded())

	require.Len(t, snap.Reports, 3)
	assert.Equal(t, "Broken", snap.Reports[1].Name)
	assert.Equal(t, domain.SourceError, snap.Reports[1].State)
	assert.Equal(t, "connection refused", snap.Reports[1].Error)
}

func TestPipeline_Run_SharedNameErrorWins(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "Reuters", URL: "http://r.example.com/business"},
		{Category: "energy", Name: "Reuters", URL: "http://r.example.com/energy"},
		{Category: "travel", Name: "Reuters", URL: "http://r.example.com/travel"},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://r.example.com/business": {{Title: "b"}},
		"http://r.example.com/travel":   {{Title: "t"}},
	}, map[string]error{"http://r.example.com/energy": errors.New("timeout")})

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	assert.Equal(t, domain.FetchStatus{"Reuters": domain.SourceError}, snap.Status)
	assert.Len(t, snap.Articles, 2)
}

func TestPipeline_Run_AllFailed(t *testing.T) {
	sources := []domain.Source{{Category: "business", Name: "A", URL: "http://a.example.com"}}
	fetcher := &mocks.FetcherMock{FetchFunc: func(context.Context, domain.Source) ([]domain.RawItem, error) {
		return nil, errors.New("dns failure")
	}}

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	require.NotNil(t, snap.Articles)
	assert.Empty(t, snap.Articles)
	assert.Equal(t, domain.FetchStatus{"A": domain.SourceError}, snap.Status)
}

func TestPipeline_Run_EmptyFeedIsOK(t *testing.T) {
	sources := []domain.Source{{Category: "business", Name: "A", URL: "http://a.example.com"}}
	snap := newTestPipeline(fetcherFromMap(nil, nil)).Run(context.Background(), sources)
	assert.Empty(t, snap.Articles)
	assert.Equal(t, domain.FetchStatus{"A": domain.SourceOK}, snap.Status)
}

func TestPipeline_Run_PanicIsSourceError(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "A", URL: "http://a.example.com"},
		{Category: "business", Name: "B", URL: "http://b.example.com"},
	}
	fetcher := &mocks.FetcherMock{FetchFunc: func(_ context.Context, src domain.Source) ([]domain.RawItem, error) {
		if src.Name == "A" {
			panic("boom")
		}
		return []domain.RawItem{{Title: "fine"}}, nil
	}}

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	assert.Equal(t, domain.SourceError, snap.Status["A"])
	assert.Equal(t, domain.SourceOK, snap.Status["B"])
	require.Len(t, snap.Articles, 1)
	assert.Contains(t, snap.Reports[0].Error, "panicked")
}

func TestPipeline_Run_SortedByPublishedDesc(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "A", URL: "http://a.example.com"},
		{Category: "travel", Name: "B", URL: "http://b.example.com"},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://a.example.com": {
			{Title: "a-old", PublishedParsed: testNow.Add(-48 * time.Hour)},
			{Title: "a-new", PublishedParsed: testNow.Add(-10 * time.Minute)},
			{Title: "a-tie", PublishedParsed: testNow.Add(-5 * time.Hour)},
		},
		"http://b.example.com": {
			{Title: "b-mid", PublishedParsed: testNow.Add(-3 * time.Hour)},
			{Title: "b-tie", PublishedParsed: testNow.Add(-5 * time.Hour)},
		},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	titles := make([]string, 0, len(snap.Articles))
	for i, a := range snap.Articles {
		titles = append(titles, a.Title)
		if i > 0 {
			assert.False(t, a.Published.After(snap.Articles[i-1].Published))
		}
	}
	assert.Equal(t, []string{"a-new", "b-mid", "a-tie", "b-tie", "a-old"}, titles, "ties keep merge order")
}

func TestPipeline_Run_DerivedFields(t *testing.T) {
	sources := []domain.Source{{Category: "business", Name: "A", URL: "http://a.example.com"}}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://a.example.com": {
			{Title: "fresh", Description: "First sentence. Second one! Third?", Link: " http://a.example.com/fresh ",
				PublishedParsed: testNow.Add(-90 * time.Minute)},
			{Title: "border", PublishedParsed: testNow.Add(-2 * time.Hour)},
			{Title: "old", Description: "<p>Old &amp; stale</p>", PublishedParsed: testNow.Add(-50 * time.Hour)},
			{Title: "undated", Published: "not a date"},
		},
	}, nil)

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	byTitle := map[string]domain.Article{}
	for _, a := range snap.Articles {
		byTitle[a.Title] = a
	}
	require.Len(t, byTitle, 4)

	fresh := byTitle["fresh"]
	assert.Equal(t, "freshbusiness", fresh.ID)
	assert.Equal(t, "A", fresh.Source)
	assert.InDelta(t, 1.5, fresh.AgeHours, 0.001)
	assert.True(t, fresh.Breaking)
	assert.Equal(t, "1h ago", fresh.TimeAgo)
	assert.Equal(t, "First sentence. Second one!", fresh.ExecSummary)
	assert.Equal(t, "http://a.example.com/fresh", fresh.URL)

	assert.False(t, byTitle["border"].Breaking, "exactly two hours is not breaking")
	assert.Equal(t, "2h ago", byTitle["border"].TimeAgo)

	old := byTitle["old"]
	assert.Equal(t, "Old & stale", old.Description)
	assert.Equal(t, "2d ago", old.TimeAgo)
	assert.Equal(t, domain.NoURL, old.URL)

	undated := byTitle["undated"]
	assert.Equal(t, testNow, undated.Published)
	assert.True(t, undated.Breaking)
	assert.Equal(t, "just now", undated.TimeAgo)
	assert.Equal(t, "undated", undated.ExecSummary, "title used when description is empty")
	assert.Empty(t, undated.DetailSummary)

	for _, a := range snap.Articles {
		assert.Equal(t, a.AgeHours < 2, a.Breaking, a.Title)
	}
	assert.Len(t, snap.Breaking(), 2)
}

func TestPipeline_Run_ConcurrentFetch(t *testing.T) {
	const n = 5
	sources := make([]domain.Source, n)
	for i := range n {
		sources[i] = domain.Source{Category: "business", Name: fmt.Sprintf("s%d", i), URL: fmt.Sprintf("http://s%d.example.com", i)}
	}

	// every fetch blocks until all of them started, sequential fetching would never get there
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() { started.Wait(); close(allStarted) }()

	fetcher := &mocks.FetcherMock{FetchFunc: func(_ context.Context, src domain.Source) ([]domain.RawItem, error) {
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(5 * time.Second):
			return nil, errors.New("not concurrent")
		}
		return []domain.RawItem{{Title: "item from " + src.Name}}, nil
	}}

	snap := newTestPipeline(fetcher).Run(context.Background(), sources)
	assert.Len(t, snap.Articles, n)
	assert.Equal(t, n, snap.Status.Succeeded())
}

func TestPipeline_Run_MaxWorkers(t *testing.T) {
	sources := make([]domain.Source, 6)
	for i := range sources {
		sources[i] = domain.Source{Category: "business", Name: fmt.Sprintf("s%d", i), URL: fmt.Sprintf("http://s%d.example.com", i)}
	}

	var active, peak int32
	fetcher := &mocks.FetcherMock{FetchFunc: func(context.Context, domain.Source) ([]domain.RawItem, error) {
		cur := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}}

	p := New(Params{Fetcher: fetcher, Scorer: testKeywords(), MaxWorkers: 2})
	snap := p.Run(context.Background(), sources)
	assert.Equal(t, 6, snap.Status.Succeeded())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPipeline_Run_ScorerCalledOnlyForBroad(t *testing.T) {
	sources := []domain.Source{
		{Category: "business", Name: "Narrow", URL: "http://n.example.com"},
		{Category: "qatar", Name: "Broad", URL: "http://b.example.com", Broad: true},
	}
	fetcher := fetcherFromMap(map[string][]domain.RawItem{
		"http://n.example.com": {{Title: "narrow item"}},
		"http://b.example.com": {{Title: "broad <i>item</i>", Description: "some &amp; text"}},
	}, nil)
	scorer := &mocks.ScorerMock{ScoreFunc: func(string, string, string) int { return 1 }}

	p := New(Params{Fetcher: fetcher, Scorer: scorer, Now: func() time.Time { return testNow }})
	snap := p.Run(context.Background(), sources)
	assert.Len(t, snap.Articles, 2)
	require.Len(t, scorer.ScoreCalls(), 1)
	assert.Equal(t, "broad item", scorer.ScoreCalls()[0].Title)
	assert.Equal(t, "some & text", scorer.ScoreCalls()[0].Description)
	assert.Equal(t, "qatar", scorer.ScoreCalls()[0].Category)
}

func TestTimeAgo(t *testing.T) {
	tbl := []struct {
		age  time.Duration
		want string
	}{
		{-time.Hour, "just now"},
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{100 * time.Hour, "4d ago"},
	}
	for _, tt := range tbl {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(tt.age))
		})
	}
}
