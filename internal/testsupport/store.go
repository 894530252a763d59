package testsupport

import (
	"context"
	"testing"

	"eventimporter/internal/config"
	"eventimporter/internal/events"
	"eventimporter/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SaveRecord persists a record for tests using the provided store.
func SaveRecord(t testing.TB, st *store.Store, record *events.Record) *store.Entry {
	t.Helper()

	entry, _, err := st.SaveEvent(context.Background(), record)
	if err != nil {
		t.Fatalf("store.SaveEvent: %v", err)
	}
	return entry
}
