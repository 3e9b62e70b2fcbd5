package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Store{DB: db}, mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnqueueOrBump(t *testing.T) {
	st, mock := newMockStore(t)

	query := regexp.QuoteMeta(`
INSERT INTO enrichment_tasks (url, priority) VALUES ($1, $2)
ON CONFLICT (url) DO UPDATE SET priority = enrichment_tasks.priority + EXCLUDED.priority;
`)
	mock.ExpectExec(query).
		WithArgs("https://example.org/a.pdf", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := st.EnqueueOrBump(context.Background(), "https://example.org/a.pdf", 5); err != nil {
		t.Fatalf("EnqueueOrBump: %v", err)
	}
	expectMet(t, mock)
}

func TestClaimMostUrgent(t *testing.T) {
	st, mock := newMockStore(t)

	query := regexp.QuoteMeta(`
UPDATE enrichment_tasks SET started_at = NOW(), priority = 0
WHERE id = (
  SELECT id FROM enrichment_tasks
  WHERE error IS NULL AND (started_at IS NULL OR started_at < NOW() - ($1 * INTERVAL '1 second'))
  ORDER BY priority DESC, id ASC
  LIMIT 1
  FOR UPDATE SKIP LOCKED)
RETURNING url;
`)
	mock.ExpectQuery(query).
		WithArgs(float64(600)).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://example.org/a.pdf"))

	url, err := st.ClaimMostUrgent(context.Background(), 10*time.Minute)
	if err != nil {
		t.Fatalf("ClaimMostUrgent: %v", err)
	}
	if url != "https://example.org/a.pdf" {
		t.Fatalf("claimed %q", url)
	}
	expectMet(t, mock)
}

func TestClaimMostUrgentEmptyQueue(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE enrichment_tasks SET started_at").
		WithArgs(float64(600)).
		WillReturnRows(sqlmock.NewRows([]string{"url"}))

	_, err := st.ClaimMostUrgent(context.Background(), 10*time.Minute)
	if !errors.Is(err, ErrNoTask) {
		t.Fatalf("expected ErrNoTask, got %v", err)
	}
	expectMet(t, mock)
}

func TestCompleteSuccess(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM enrichment_tasks WHERE url = $1;`)).
		WithArgs("https://example.org/a.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.CompleteSuccess(context.Background(), "https://example.org/a.pdf"); err != nil {
		t.Fatalf("CompleteSuccess: %v", err)
	}
	expectMet(t, mock)
}

func TestCompleteFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrichment_tasks SET error = $2 WHERE url = $1;`)).
		WithArgs("https://example.org/a.pdf", "text too short").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.CompleteFailure(context.Background(), "https://example.org/a.pdf", "text too short"); err != nil {
		t.Fatalf("CompleteFailure: %v", err)
	}
	expectMet(t, mock)
}

func TestClearFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrichment_tasks SET error = NULL, started_at = NULL WHERE url = $1;`)).
		WithArgs("https://example.org/a.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.ClearFailure(context.Background(), "https://example.org/a.pdf"); err != nil {
		t.Fatalf("ClearFailure: %v", err)
	}
	expectMet(t, mock)
}

func TestGetTask(t *testing.T) {
	st, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, url, priority, started_at, error, created_at FROM enrichment_tasks").
		WithArgs("https://example.org/a.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "priority", "started_at", "error", "created_at"}).
			AddRow(int64(7), "https://example.org/a.pdf", 8, nil, nil, now))

	task, found, err := st.GetTask(context.Background(), "https://example.org/a.pdf")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !found {
		t.Fatal("task not found")
	}
	if task.ID != 7 || task.Priority != 8 || task.StartedAt != nil || task.Error != nil {
		t.Fatalf("unexpected task: %+v", task)
	}
	expectMet(t, mock)
}

func TestGetTaskMissing(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, url, priority, started_at, error, created_at FROM enrichment_tasks").
		WithArgs("https://example.org/none").
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "priority", "started_at", "error", "created_at"}))

	_, found, err := st.GetTask(context.Background(), "https://example.org/none")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
	expectMet(t, mock)
}
