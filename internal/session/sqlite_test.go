package session

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func TestSQLiteSaveLoadDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if sess, err := store.Load(ctx, "api.example.com"); err != nil || sess != nil {
		t.Fatalf("Load on empty store = (%v, %v), want (nil, nil)", sess, err)
	}

	sess := &Session{
		Host:         "api.example.com",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Email:        "dev@example.com",
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Save must assign an ID")
	}
	if sess.CreatedAt.IsZero() || sess.UpdatedAt.IsZero() {
		t.Fatal("Save must stamp timestamps")
	}

	loaded, err := store.Load(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "access-1" || loaded.Email != "dev@example.com" {
		t.Fatalf("loaded = %+v", loaded)
	}

	if err := store.Delete(ctx, "api.example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if sess, err := store.Load(ctx, "api.example.com"); err != nil || sess != nil {
		t.Fatalf("Load after delete = (%v, %v), want (nil, nil)", sess, err)
	}
}

func TestSQLiteUpsertByHost(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := &Session{Host: "api.example.com", AccessToken: "old"}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rotated := &Session{ID: first.ID, Host: "api.example.com", AccessToken: "new", RefreshToken: "new-r"}
	if err := store.Save(ctx, rotated); err != nil {
		t.Fatalf("Save rotated: %v", err)
	}

	loaded, err := store.Load(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AccessToken != "new" || loaded.RefreshToken != "new-r" {
		t.Fatalf("loaded = %+v, want rotated pair", loaded)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{Host: "api.example.com", AccessToken: "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "a" {
		t.Fatalf("loaded = %+v, session lost across reopen", loaded)
	}
}

func TestSQLiteKeepsHostsSeparate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{Host: "prod.example.com", AccessToken: "prod"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, &Session{Host: "staging.example.com", AccessToken: "staging"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "prod.example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	loaded, err := store.Load(ctx, "staging.example.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "staging" {
		t.Fatalf("loaded = %+v, other host must survive", loaded)
	}
}
