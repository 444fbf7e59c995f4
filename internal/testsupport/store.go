package testsupport

import (
	"context"
	"testing"

	"callsense/internal/config"
	"callsense/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MarkDocument records one processed document for tests.
func MarkDocument(t testing.TB, store *ledger.Store, entity, period string) {
	t.Helper()

	if err := store.Mark(context.Background(), entity, period, nil); err != nil {
		t.Fatalf("store.Mark: %v", err)
	}
}
