package testsupport

import (
	"testing"

	"shootsort/internal/config"
	"shootsort/internal/runlog"
)

// MustOpenStore opens a history store for the config and closes it when
// the test ends.
func MustOpenStore(t *testing.T, cfg *config.Config) *runlog.Store {
	t.Helper()

	store, err := runlog.Open(cfg)
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
