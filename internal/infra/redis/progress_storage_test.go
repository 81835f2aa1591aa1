package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestProgressStorageSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	storage := NewProgressStorage(newClient(mr), "u1")

	if _, ok, err := storage.Load(ctx, "xp"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := storage.Save(ctx, "xp", "120"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := mr.Get("progress:u1:xp"); got != "120" {
		t.Fatalf("expected stored xp 120, got %q", got)
	}
	if ttl := mr.TTL("progress:u1:xp"); ttl != 0 {
		t.Fatalf("expected no ttl on progress keys, got %v", ttl)
	}

	value, ok, err := storage.Load(ctx, "xp")
	if err != nil || !ok || value != "120" {
		t.Fatalf("load: value=%q ok=%v err=%v", value, ok, err)
	}

	if err := storage.Clear(ctx, "xp"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("progress:u1:xp") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestProgressStorageReportsConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	storage := NewProgressStorage(client, "u1")
	if err := storage.Save(context.Background(), "xp", "1"); err == nil {
		t.Fatalf("expected save error with redis down")
	}
	if _, _, err := storage.Load(context.Background(), "xp"); err == nil {
		t.Fatalf("expected load error with redis down")
	}
}
