package domain

import "time"

// Category describes one display category of the dashboard
type Category struct {
	Key   string `yaml:"key" json:"key" jsonschema:"required"`
	Label string `yaml:"label" json:"label" jsonschema:"required"`
}

// Source is a single registry entry mapping an upstream feed to a category.
// Broad sources mix many topics and must pass the relevance scorer,
// narrow sources are category-exclusive and accepted as is.
type Source struct {
	Category string `yaml:"category" json:"category" jsonschema:"required"`
	Name     string `yaml:"name" json:"name" jsonschema:"required"`
	URL      string `yaml:"url" json:"url" jsonschema:"required"`
	Broad    bool   `yaml:"broad" json:"broad" jsonschema:"description=Mixed-topic feed, items must pass relevance scoring"`
}

// RawItem is a feed item as parsed, before any normalization
type RawItem struct {
	Title           string
	Description     string
	Published       string    // original pubDate text
	PublishedParsed time.Time // zero if absent or unparseable
	Link            string
}

// Article is a normalized, accepted item with all display fields derived
type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Source        string    `json:"source"`
	Published     time.Time `json:"published"`
	AgeHours      float64   `json:"age_hours"`
	Breaking      bool      `json:"breaking"`
	TimeAgo       string    `json:"time_ago"`
	ExecSummary   string    `json:"exec_summary"`
	DetailSummary string    `json:"detail_summary"`
	URL           string    `json:"url"`
}

// NoURL is the placeholder link for items published without one
const NoURL = "#"

// BreakingAge is the age under which an article is flagged as breaking
const BreakingAge = 2 * time.Hour

// SourceState is the outcome of fetching one source
type SourceState string

// enum of source states
const (
	SourceOK    SourceState = "ok"
	SourceError SourceState = "error"
)

// FetchStatus maps source name to the state of its last fetch
type FetchStatus map[string]SourceState

// Failed returns number of sources in error state
func (s FetchStatus) Failed() int {
	res := 0
	for _, st := range s {
		if st == SourceError {
			res++
		}
	}
	return res
}

// Succeeded returns number of sources fetched successfully
func (s FetchStatus) Succeeded() int {
	return len(s) - s.Failed()
}

// SourceReport details the outcome of a single registry entry in a run
type SourceReport struct {
	Name     string        `json:"name"`
	Category string        `json:"category"`
	URL      string        `json:"url"`
	State    SourceState   `json:"state"`
	Error    string        `json:"error,omitempty"`
	Items    int           `json:"items"`    // items in the feed
	Accepted int           `json:"accepted"` // items that made it into the result
	Duration time.Duration `json:"duration"`
}

// Snapshot is the result of one aggregation run as exposed to the dashboard
type Snapshot struct {
	RunID    string         `json:"run_id"`
	Articles []Article      `json:"articles"`
	Status   FetchStatus    `json:"status"`
	Reports  []SourceReport `json:"reports"`
	Started  time.Time      `json:"started"`
	LastSync time.Time      `json:"last_sync"` // completion time of the run
	Loading  bool           `json:"loading"`
}

// Breaking returns articles flagged as breaking, in snapshot order
func (s Snapshot) Breaking() []Article {
	res := []Article{}
	for _, a := range s.Articles {
		if a.Breaking {
			res = append(res, a)
		}
	}
	return res
}

// ByCategory returns articles of the given category, all articles for empty or "all" key
func (s Snapshot) ByCategory(category string) []Article {
	if category == "" || category == "all" {
		return s.Articles
	}
	res := []Article{}
	for _, a := range s.Articles {
		if a.Category == category {
			res = append(res, a)
		}
	}
	return res
}
