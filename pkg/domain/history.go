package domain

import "time"

// SyncRun is the persisted summary of one aggregation run, article content is not kept
type SyncRun struct {
	ID            string         `json:"id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Duration      time.Duration  `json:"duration"`
	Articles      int            `json:"articles"`
	Breaking      int            `json:"breaking"`
	SourcesOK     int            `json:"sources_ok"`
	SourcesFailed int            `json:"sources_failed"`
	Sources       []SourceReport `json:"sources,omitempty"`
}

// NewSyncRun makes run summary from the snapshot
func NewSyncRun(s Snapshot) SyncRun {
	return SyncRun{
		ID:            s.RunID,
		StartedAt:     s.Started,
		FinishedAt:    s.LastSync,
		Duration:      s.LastSync.Sub(s.Started),
		Articles:      len(s.Articles),
		Breaking:      len(s.Breaking()),
		SourcesOK:     s.Status.Succeeded(),
		SourcesFailed: s.Status.Failed(),
		Sources:       s.Reports,
	}
}

// SourceHealth aggregates recent runs of a single source
type SourceHealth struct {
	Name      string      `json:"name"`
	Runs      int         `json:"runs"`
	Failures  int         `json:"failures"`
	LastState SourceState `json:"last_state"`
	LastError string      `json:"last_error,omitempty"`
}
