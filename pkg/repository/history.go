package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/newsdesk/pkg/domain"
)

// ErrNotFound returned when a run doesn't exist
var ErrNotFound = errors.New("not found")

// HistoryRepository handles sync history operations
type HistoryRepository struct {
	db *sqlx.DB
}

// runSQL represents a sync run for SQL operations
type runSQL struct {
	ID            string    `db:"id"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
	DurationMS    int64     `db:"duration_ms"`
	Articles      int       `db:"articles"`
	Breaking      int       `db:"breaking"`
	SourcesOK     int       `db:"sources_ok"`
	SourcesFailed int       `db:"sources_failed"`
}

// sourceSQL represents a per-source run outcome for SQL operations
type sourceSQL struct {
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	Name       string `db:"name"`
	Category   string `db:"category"`
	URL        string `db:"url"`
	State      string `db:"state"`
	Error      string `db:"error"`
	Items      int    `db:"items"`
	Accepted   int    `db:"accepted"`
	DurationMS int64  `db:"duration_ms"`
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveRun stores run summary with its per-source reports, retrying on lock errors
func (r *HistoryRepository) SaveRun(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	return withRetry(ctx, func() error { return r.saveRun(ctx, run) })
}

func (r *HistoryRepository) saveRun(ctx context.Context, run domain.SyncRun) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	rec := runSQL{
		ID:            run.ID,
		StartedAt:     run.StartedAt.UTC(),
		FinishedAt:    run.FinishedAt.UTC(),
		DurationMS:    run.Duration.Milliseconds(),
		Articles:      run.Articles,
		Breaking:      run.Breaking,
		SourcesOK:     run.SourcesOK,
		SourcesFailed: run.SourcesFailed,
	}
	query := `INSERT INTO sync_runs (id, started_at, finished_at, duration_ms, articles, breaking, sources_ok, sources_failed)
		VALUES (:id, :started_at, :finished_at, :duration_ms, :articles, :breaking, :sources_ok, :sources_failed)`
	if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, src := range run.Sources {
		srec := sourceSQL{
			RunID:      run.ID,
			Position:   i,
			Name:       src.Name,
			Category:   src.Category,
			URL:        src.URL,
			State:      string(src.State),
			Error:      src.Error,
			Items:      src.Items,
			Accepted:   src.Accepted,
			DurationMS: src.Duration.Milliseconds(),
		}
		query := `INSERT INTO sync_sources (run_id, position, name, category, url, state, error, items, accepted, duration_ms)
			VALUES (:run_id, :position, :name, :category, :url, :state, :error, :items, :accepted, :duration_ms)`
		if _, err := tx.NamedExecContext(ctx, query, srec); err != nil {
			return fmt.Errorf("insert source %q of run %s: %w", src.Name, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns up to limit most recent runs, newest first, with per-source reports
func (r *HistoryRepository) Runs(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		return []domain.SyncRun{}, nil
	}

	var recs []runSQL
	query := `SELECT id, started_at, finished_at, duration_ms, articles, breaking, sources_ok, sources_failed
		FROM sync_runs ORDER BY finished_at DESC, id LIMIT ?`
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("get runs: %w", err)
	}
	if len(recs) == 0 {
		return []domain.SyncRun{}, nil
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	sources, err := r.sources(ctx, ids...)
	if err != nil {
		return nil, err
	}

	res := make([]domain.SyncRun, len(recs))
	for i, rec := range recs {
		res[i] = rec.toDomain(sources[rec.ID])
	}
	return res, nil
}

// Run returns a single run by id
func (r *HistoryRepository) Run(ctx context.Context, id string) (*domain.SyncRun, error) {
	var rec runSQL
	query := `SELECT id, started_at, finished_at, duration_ms, articles, breaking, sources_ok, sources_failed
		FROM sync_runs WHERE id = ?`
	err := r.db.GetContext(ctx, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	sources, err := r.sources(ctx, id)
	if err != nil {
		return nil, err
	}
	res := rec.toDomain(sources[id])
	return &res, nil
}

// Prune keeps only keep most recent runs and returns number of deleted runs
func (r *HistoryRepository) Prune(ctx context.Context, keep int) (int64, error) {
	var deleted int64
	err := withRetry(ctx, func() (err error) {
		deleted, err = r.prune(ctx, keep)
		return err
	})
	return deleted, err
}

func (r *HistoryRepository) prune(ctx context.Context, keep int) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// foreign_keys pragma is per connection, so sources are deleted explicitly
	keepQuery := `SELECT id FROM sync_runs ORDER BY finished_at DESC, id LIMIT ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_sources WHERE run_id NOT IN (`+keepQuery+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune sources: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sync_runs WHERE id NOT IN (`+keepQuery+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}

// SourceHealth aggregates outcomes of each source name over the last runs.
// A run counts as failed for a name if any of its entries with that name failed.
func (r *HistoryRepository) SourceHealth(ctx context.Context, runs int) ([]domain.SourceHealth, error) {
	type healthRow struct {
		RunID string `db:"run_id"`
		Name  string `db:"name"`
		State string `db:"state"`
		Error string `db:"error"`
	}

	var rows []healthRow
	query := `SELECT s.run_id, s.name, s.state, s.error
		FROM sync_sources s JOIN sync_runs r ON r.id = s.run_id
		WHERE r.id IN (SELECT id FROM sync_runs ORDER BY finished_at DESC, id LIMIT ?)
		ORDER BY r.finished_at DESC, r.id, s.position`
	if err := r.db.SelectContext(ctx, &rows, query, runs); err != nil {
		return nil, fmt.Errorf("get source health: %w", err)
	}

	type acc struct {
		health  domain.SourceHealth
		lastRun string
		runs    map[string]bool
		failed  map[string]bool
	}
	byName := map[string]*acc{}
	for _, row := range rows {
		a, ok := byName[row.Name]
		if !ok {
			a = &acc{health: domain.SourceHealth{Name: row.Name, LastState: domain.SourceOK},
				lastRun: row.RunID, runs: map[string]bool{}, failed: map[string]bool{}}
			byName[row.Name] = a
		}
		a.runs[row.RunID] = true
		if domain.SourceState(row.State) != domain.SourceError {
			continue
		}
		a.failed[row.RunID] = true
		if row.RunID == a.lastRun && a.health.LastState != domain.SourceError {
			a.health.LastState, a.health.LastError = domain.SourceError, row.Error
		}
	}

	res := make([]domain.SourceHealth, 0, len(byName))
	for _, a := range byName {
		a.health.Runs, a.health.Failures = len(a.runs), len(a.failed)
		res = append(res, a.health)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// sources loads per-source reports of the given runs, keyed by run id
func (r *HistoryRepository) sources(ctx context.Context, runIDs ...string) (map[string][]domain.SourceReport, error) {
	query, args, err := sqlx.In(`SELECT run_id, position, name, category, url, state, error, items, accepted, duration_ms
		FROM sync_sources WHERE run_id IN (?) ORDER BY run_id, position`, runIDs)
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	var recs []sourceSQL
	if err := r.db.SelectContext(ctx, &recs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get run sources: %w", err)
	}

	res := make(map[string][]domain.SourceReport, len(runIDs))
	for _, rec := range recs {
		res[rec.RunID] = append(res[rec.RunID], domain.SourceReport{
			Name:     rec.Name,
			Category: rec.Category,
			URL:      rec.URL,
			State:    domain.SourceState(rec.State),
			Error:    rec.Error,
			Items:    rec.Items,
			Accepted: rec.Accepted,
			Duration: time.Duration(rec.DurationMS) * time.Millisecond,
		})
	}
	return res, nil
}

func (rec runSQL) toDomain(sources []domain.SourceReport) domain.SyncRun {
	return domain.SyncRun{
		ID:            rec.ID,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
		Duration:      time.Duration(rec.DurationMS) * time.Millisecond,
		Articles:      rec.Articles,
		Breaking:      rec.Breaking,
		SourcesOK:     rec.SourcesOK,
		SourcesFailed: rec.SourcesFailed,
		Sources:       sources,
	}
}
