package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("file::memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProgressStorageScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	alice := db.Storage("alice")
	bob := db.Storage("bob")

	if err := alice.Save(ctx, "xp", "50"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := bob.Load(ctx, "xp"); err != nil || ok {
		t.Fatalf("expected bob empty, ok=%v err=%v", ok, err)
	}

	value, ok, err := alice.Load(ctx, "xp")
	if err != nil || !ok || value != "50" {
		t.Fatalf("load alice: %q %v %v", value, ok, err)
	}
}

func TestProgressStorageUpsertAndClear(t *testing.T) {
	ctx := context.Background()
	storage := openTestDB(t).Storage("u1")

	for _, v := range []string{"10", "20"} {
		if err := storage.Save(ctx, "xp", v); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}
	value, _, _ := storage.Load(ctx, "xp")
	if value != "20" {
		t.Fatalf("expected upsert to keep latest value, got %q", value)
	}

	if err := storage.Clear(ctx, "xp"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := storage.Load(ctx, "xp"); ok {
		t.Fatalf("expected entry cleared")
	}
}

func TestProgressSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "progress.db")

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Storage("u1").Save(ctx, "badges", `[{"id":"rookie"}]`); err != nil {
		t.Fatalf("save: %v", err)
	}
	db.Close()

	reopened, err := Open(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Storage("u1").Load(ctx, "badges")
	if err != nil || !ok || value != `[{"id":"rookie"}]` {
		t.Fatalf("expected persisted badges, got %q %v %v", value, ok, err)
	}
}
