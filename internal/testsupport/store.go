package testsupport

import (
	"testing"

	"chatscribe/internal/config"
	"chatscribe/internal/ledger"
)

// MustOpenLedger opens a history store for tests and registers cleanup.
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
