package settingscache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tripwire/grpcchannel/internal/settingscache"
)

func openMemCache(t *testing.T) *settingscache.Cache {
	t.Helper()
	c, err := settingscache.Open(":memory:")
	if err != nil {
		t.Fatalf("settingscache.Open(:memory:): %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_GetMissing(t *testing.T) {
	c := openMemCache(t)
	_, _, ok, err := c.Get(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true for unrecorded service, want false")
	}
}

func TestCache_PutThenGet(t *testing.T) {
	c := openMemCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, "svc", "host:1234", "region=us"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	url, hostMetadata, ok, err := c.Get(ctx, "svc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || url != "host:1234" || hostMetadata != "region=us" {
		t.Errorf("Get() = (%q, %q, %v), want (host:1234, region=us, true)", url, hostMetadata, ok)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := openMemCache(t)
	ctx := context.Background()

	_ = c.Put(ctx, "svc", "host:1", "")
	_ = c.Put(ctx, "svc", "host:2", "")

	url, _, _, err := c.Get(ctx, "svc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if url != "host:2" {
		t.Errorf("Get() url = %q, want host:2 (overwritten)", url)
	}
}

func TestCache_FileBacked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	c, err := settingscache.Open(path)
	if err != nil {
		t.Fatalf("settingscache.Open(%q): %v", path, err)
	}
	defer c.Close()

	if err := c.Put(context.Background(), "svc", "host:1", ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
}
