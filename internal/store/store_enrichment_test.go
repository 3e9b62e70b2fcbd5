package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

func TestSaveEnrichment(t *testing.T) {
	st, mock := newMockStore(t)

	e := enrich.Enrichment{
		Chunks: []enrich.Chunk{{Start: 0, Length: 1, Entities: []enrich.Entity{{ID: "Q1", Title: "Topic", URL: "u"}}, Text: "body"}},
	}
	data, _ := json.Marshal(e)

	query := regexp.QuoteMeta(`
INSERT INTO wikichunk_enrichments (url, data, version, updated_at) VALUES ($1, $2, $3, NOW())
ON CONFLICT (url) DO UPDATE SET data = EXCLUDED.data, version = EXCLUDED.version, updated_at = NOW();
`)
	mock.ExpectExec(query).
		WithArgs("https://example.org/a.pdf", data, CurrentEnrichmentVersion).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := st.SaveEnrichment(context.Background(), "https://example.org/a.pdf", e); err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}
	expectMet(t, mock)
}

func TestGetEnrichment(t *testing.T) {
	st, mock := newMockStore(t)

	stored := enrich.Enrichment{Chunks: []enrich.Chunk{{Start: 0, Length: 1, Text: "body"}}}
	data, _ := json.Marshal(stored)

	mock.ExpectQuery("SELECT data, version FROM wikichunk_enrichments").
		WithArgs("https://example.org/a.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"data", "version"}).AddRow(data, 1))

	e, version, found, err := st.GetEnrichment(context.Background(), "https://example.org/a.pdf")
	if err != nil {
		t.Fatalf("GetEnrichment: %v", err)
	}
	if !found || version != 1 || len(e.Chunks) != 1 {
		t.Fatalf("unexpected result: found=%v version=%d chunks=%d", found, version, len(e.Chunks))
	}
	expectMet(t, mock)
}

func TestEnqueueIfNeededSkipsCurrentVersion(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT version FROM wikichunk_enrichments").
		WithArgs("https://example.org/a.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(CurrentEnrichmentVersion))

	if err := st.EnqueueIfNeeded(context.Background(), "https://example.org/a.pdf", 1); err != nil {
		t.Fatalf("EnqueueIfNeeded: %v", err)
	}
	expectMet(t, mock) // no insert expected
}

func TestEnqueueIfNeededBumpsOnMiss(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT version FROM wikichunk_enrichments").
		WithArgs("https://example.org/new").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectExec("INSERT INTO enrichment_tasks").
		WithArgs("https://example.org/new", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := st.EnqueueIfNeeded(context.Background(), "https://example.org/new", 1); err != nil {
		t.Fatalf("EnqueueIfNeeded: %v", err)
	}
	expectMet(t, mock)
}

func TestResourceRoundTrip(t *testing.T) {
	st, mock := newMockStore(t)

	res := enrich.Resource{URL: "https://example.org/a.pdf", Title: "Paper", MediaType: "pdf"}
	data, _ := json.Marshal(res)

	mock.ExpectExec("INSERT INTO oers").
		WithArgs(res.URL, data).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT data FROM oers").
		WithArgs(res.URL).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	if err := st.UpsertResource(context.Background(), res); err != nil {
		t.Fatalf("UpsertResource: %v", err)
	}
	got, found, err := st.GetResource(context.Background(), res.URL)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if !found || got.Title != "Paper" {
		t.Fatalf("unexpected resource: found=%v %+v", found, got)
	}
	expectMet(t, mock)
}
