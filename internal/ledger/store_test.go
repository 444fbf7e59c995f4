package ledger_test

import (
	"context"
	"testing"
	"time"

	"callsense/internal/ledger"
	"callsense/internal/testsupport"
)

func TestMarkAndIsProcessed(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	done, err := store.IsProcessed(ctx, "ACME", "Nov 2023")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if done {
		t.Fatal("fresh ledger should have no processed documents")
	}

	meta := map[string]any{"source": "remote", "url": "https://example.com/t.pdf"}
	if err := store.Mark(ctx, "ACME", "Nov 2023", meta); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	done, err = store.IsProcessed(ctx, "ACME", "Nov 2023")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !done {
		t.Fatal("document should be processed after Mark")
	}

	// Marking again upserts rather than failing.
	if err := store.Mark(ctx, "ACME", "Nov 2023", nil); err != nil {
		t.Fatalf("re-Mark: %v", err)
	}
}

func TestMarkBatchAndEntityStatus(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	records := []ledger.Record{
		{Entity: "ACME", Period: "Nov 2023", Metadata: map[string]any{"source": "remote"}},
		{Entity: "ACME", Period: "Feb 2024"},
		{Entity: "OTHER", Period: "Feb 2024"},
	}
	if err := store.MarkBatch(ctx, records); err != nil {
		t.Fatalf("MarkBatch: %v", err)
	}

	status, err := store.EntityStatus(ctx, "ACME")
	if err != nil {
		t.Fatalf("EntityStatus: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("expected 2 rows for ACME, got %d", len(status))
	}
	for _, rec := range status {
		if rec.ProcessedAt.IsZero() {
			t.Errorf("row %s %s missing timestamp", rec.Entity, rec.Period)
		}
	}
}

func TestUnprocessedPreservesOrder(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.MarkDocument(t, store, "ACME", "Nov 2023")

	keys := []ledger.Key{
		{Entity: "ACME", Period: "Feb 2024"},
		{Entity: "ACME", Period: "Nov 2023"},
		{Entity: "OTHER", Period: "Nov 2023"},
	}
	pending, err := store.Unprocessed(ctx, keys)
	if err != nil {
		t.Fatalf("Unprocessed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending keys, got %d", len(pending))
	}
	if pending[0] != keys[0] || pending[1] != keys[2] {
		t.Fatalf("unexpected pending keys: %+v", pending)
	}
}

func TestClearEntityAndClearAll(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.MarkDocument(t, store, "ACME", "Nov 2023")
	testsupport.MarkDocument(t, store, "ACME", "Feb 2024")
	testsupport.MarkDocument(t, store, "OTHER", "Feb 2024")

	n, err := store.ClearEntity(ctx, "ACME")
	if err != nil {
		t.Fatalf("ClearEntity: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows cleared, got %d", n)
	}

	n, err = store.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row cleared, got %d", n)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalDocuments != 0 {
		t.Fatalf("expected empty ledger, got %d documents", summary.TotalDocuments)
	}
}

func TestRecordRunAndSummary(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.MarkDocument(t, store, "ACME", "Nov 2023")
	testsupport.MarkDocument(t, store, "OTHER", "Feb 2024")

	now := time.Now()
	stats := ledger.RunStats{
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Entities:   2,
		Documents:  2,
		Failures:   1,
	}
	if err := store.RecordRun(ctx, "full", stats); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	incremental := stats
	incremental.Documents = 1
	if err := store.RecordRun(ctx, "incremental", incremental); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalDocuments != 2 {
		t.Fatalf("expected 2 documents, got %d", summary.TotalDocuments)
	}
	if summary.PerEntity["ACME"] != 1 || summary.PerEntity["OTHER"] != 1 {
		t.Fatalf("unexpected per-entity counts: %+v", summary.PerEntity)
	}
	if summary.LastFull == nil {
		t.Fatal("expected a last full run")
	}
	if summary.LastFull.Documents != 2 || summary.LastFull.Failures != 1 {
		t.Fatalf("unexpected run record: %+v", summary.LastFull)
	}
	if summary.LastIncremental == nil || summary.LastIncremental.Documents != 1 {
		t.Fatalf("unexpected incremental run record: %+v", summary.LastIncremental)
	}
	if summary.LastSingle != nil {
		t.Fatal("no single run was recorded")
	}
}

func TestReopenKeepsState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	testsupport.MarkDocument(t, store, "ACME", "Nov 2023")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenLedger(t, cfg)
	done, err := reopened.IsProcessed(context.Background(), "ACME", "Nov 2023")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !done {
		t.Fatal("mark should survive reopen")
	}
}
