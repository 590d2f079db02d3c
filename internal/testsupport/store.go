package testsupport

import (
	"context"
	"testing"

	"timeliner/internal/config"
	"timeliner/internal/ges"
	"timeliner/internal/logging"
	"timeliner/internal/project"
)

// MustOpenProject opens the config's default project for tests and
// registers cleanup.
func MustOpenProject(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()

	store, err := project.Open(cfg.Paths.ProjectDB, logging.NewNop())
	if err != nil {
		t.Fatalf("project.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewProject initializes the store's project with mt.
func NewProject(t testing.TB, store *project.Store, mt ges.MediaType) {
	t.Helper()

	if err := store.Init(context.Background(), mt); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
}
