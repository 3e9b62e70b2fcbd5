package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

// CurrentEnrichmentVersion tags stored enrichments; bumping it makes every
// existing enrichment stale so resources get re-queued on next request.
const CurrentEnrichmentVersion = 1

// ErrNoTask signals an empty (or fully leased) queue.
var ErrNoTask = errors.New("no task available")

// Task is one pending enrichment job. At most one task exists per URL.
// States are derived: Error set means failed (excluded from claims until
// cleared); StartedAt within the lease window means leased; otherwise the
// task is pending.
type Task struct {
	ID        int64
	URL       string
	Priority  int
	StartedAt *time.Time
	Error     *string
	CreatedAt time.Time
}

// Store wraps the postgres connection for tasks, resources and enrichments.
type Store struct {
	DB *sql.DB
}

// New opens a postgres connection with the given DSN and verifies it.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// EnqueueOrBump creates a task for url with the given priority, or adds the
// priority to the existing task. The upsert makes concurrent bumps for the
// same url an atomic read-modify-write.
func (s *Store) EnqueueOrBump(ctx context.Context, url string, priority int) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO enrichment_tasks (url, priority) VALUES ($1, $2)
ON CONFLICT (url) DO UPDATE SET priority = enrichment_tasks.priority + EXCLUDED.priority;
`, url, priority)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// EnqueueIfNeeded bumps a task for url unless an enrichment at the current
// version is already stored.
func (s *Store) EnqueueIfNeeded(ctx context.Context, url string, priority int) error {
	var version int
	err := s.DB.QueryRowContext(ctx,
		`SELECT version FROM wikichunk_enrichments WHERE url = $1;`, url).Scan(&version)
	if err == nil && version == CurrentEnrichmentVersion {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check enrichment: %w", err)
	}
	return s.EnqueueOrBump(ctx, url, priority)
}

// ClaimMostUrgent leases the highest-priority claimable task: not failed,
// and either never started or started before now minus leaseTimeout. The
// claim stamps the lease and zeroes the priority so a stalled task cannot
// outrank fresh demand once its lease expires. Ties break on lowest id.
// Returns ErrNoTask when nothing is claimable.
func (s *Store) ClaimMostUrgent(ctx context.Context, leaseTimeout time.Duration) (string, error) {
	var url string
	err := s.DB.QueryRowContext(ctx, `
UPDATE enrichment_tasks SET started_at = NOW(), priority = 0
WHERE id = (
  SELECT id FROM enrichment_tasks
  WHERE error IS NULL AND (started_at IS NULL OR started_at < NOW() - ($1 * INTERVAL '1 second'))
  ORDER BY priority DESC, id ASC
  LIMIT 1
  FOR UPDATE SKIP LOCKED)
RETURNING url;
`, leaseTimeout.Seconds()).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoTask
	}
	if err != nil {
		return "", fmt.Errorf("claim task: %w", err)
	}
	return url, nil
}

// CompleteSuccess deletes the task for url.
func (s *Store) CompleteSuccess(ctx context.Context, url string) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM enrichment_tasks WHERE url = $1;`, url); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// CompleteFailure flags the task for url with an error message. The task
// stays visible for inspection but is excluded from claims until cleared.
func (s *Store) CompleteFailure(ctx context.Context, url, message string) error {
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE enrichment_tasks SET error = $2 WHERE url = $1;`, url, message); err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

// ClearFailure removes the error flag and the stale lease from a failed
// task, making it claimable again.
func (s *Store) ClearFailure(ctx context.Context, url string) error {
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE enrichment_tasks SET error = NULL, started_at = NULL WHERE url = $1;`, url); err != nil {
		return fmt.Errorf("clear task: %w", err)
	}
	return nil
}

// GetTask fetches a task by url for inspection.
func (s *Store) GetTask(ctx context.Context, url string) (Task, bool, error) {
	var t Task
	err := s.DB.QueryRowContext(ctx, `
SELECT id, url, priority, started_at, error, created_at FROM enrichment_tasks WHERE url = $1;
`, url).Scan(&t.ID, &t.URL, &t.Priority, &t.StartedAt, &t.Error, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("get task: %w", err)
	}
	return t, true, nil
}

// SaveEnrichment upserts the enrichment for url at the current version.
// Writes are last-write-wins by url: a worker finishing an already-reclaimed
// task harmlessly overwrites with equivalent data.
func (s *Store) SaveEnrichment(ctx context.Context, url string, e enrich.Enrichment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal enrichment: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO wikichunk_enrichments (url, data, version, updated_at) VALUES ($1, $2, $3, NOW())
ON CONFLICT (url) DO UPDATE SET data = EXCLUDED.data, version = EXCLUDED.version, updated_at = NOW();
`, url, data, CurrentEnrichmentVersion)
	if err != nil {
		return fmt.Errorf("save enrichment: %w", err)
	}
	return nil
}

// GetEnrichment returns the stored enrichment for url and its version.
func (s *Store) GetEnrichment(ctx context.Context, url string) (enrich.Enrichment, int, bool, error) {
	var (
		data    []byte
		version int
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT data, version FROM wikichunk_enrichments WHERE url = $1;`, url).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return enrich.Enrichment{}, 0, false, nil
	}
	if err != nil {
		return enrich.Enrichment{}, 0, false, fmt.Errorf("get enrichment: %w", err)
	}
	var e enrich.Enrichment
	if err := json.Unmarshal(data, &e); err != nil {
		return enrich.Enrichment{}, 0, false, fmt.Errorf("decode enrichment: %w", err)
	}
	return e, version, true, nil
}

// UpsertResource stores the collaborator's OER record for url.
func (s *Store) UpsertResource(ctx context.Context, res enrich.Resource) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO oers (url, data) VALUES ($1, $2)
ON CONFLICT (url) DO UPDATE SET data = EXCLUDED.data;
`, res.URL, data)
	if err != nil {
		return fmt.Errorf("upsert resource: %w", err)
	}
	return nil
}

// GetResource fetches the OER record for url.
func (s *Store) GetResource(ctx context.Context, url string) (enrich.Resource, bool, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM oers WHERE url = $1;`, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return enrich.Resource{}, false, nil
	}
	if err != nil {
		return enrich.Resource{}, false, fmt.Errorf("get resource: %w", err)
	}
	var res enrich.Resource
	if err := json.Unmarshal(data, &res); err != nil {
		return enrich.Resource{}, false, fmt.Errorf("decode resource: %w", err)
	}
	return res, true, nil
}
