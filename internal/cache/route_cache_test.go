package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T) (*RouteCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewRouteCache("redis://"+s.Addr(), "test_")
	if err != nil {
		t.Fatalf("NewRouteCache() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestRouteCacheSetGet(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "docs/install"); err != nil || ok {
		t.Fatalf("Get() on empty cache = ok %v, err %v", ok, err)
	}

	if err := c.Set(ctx, "docs/install", "node-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	id, ok, err := c.Get(ctx, "docs/install")
	if err != nil || !ok || id != "node-1" {
		t.Fatalf("Get() = %q, %v, %v", id, ok, err)
	}

	if !s.Exists("test_route:docs/install") {
		t.Error("key not stored under the prefix")
	}
	if ttl := s.TTL("test_route:docs/install"); ttl != DefaultRouteTTL {
		t.Errorf("TTL = %v, want %v", ttl, DefaultRouteTTL)
	}
}

func TestRouteCacheExpires(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "docs/faq", "node-2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.FastForward(DefaultRouteTTL + 1)

	if _, ok, err := c.Get(ctx, "docs/faq"); err != nil || ok {
		t.Errorf("Get() after TTL = ok %v, err %v", ok, err)
	}
}

func TestRouteCacheInvalidate(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	for route, id := range map[string]string{"docs/a": "1", "docs/b": "2", "docs/c": "3"} {
		if err := c.Set(ctx, route, id); err != nil {
			t.Fatalf("Set(%s) error = %v", route, err)
		}
	}
	if err := c.Invalidate(ctx, "docs/a", "docs/b", "docs/missing"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Errorf("Invalidate() with no routes error = %v", err)
	}

	for route, want := range map[string]bool{"docs/a": false, "docs/b": false, "docs/c": true} {
		_, ok, err := c.Get(ctx, route)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", route, err)
		}
		if ok != want {
			t.Errorf("Get(%s) ok = %v, want %v", route, ok, want)
		}
	}
}

func TestNewRouteCacheBadURL(t *testing.T) {
	if _, err := NewRouteCache("not-a-url", ""); err == nil {
		t.Error("NewRouteCache() error = nil for an invalid URL")
	}
}

func TestRouteCachePing(t *testing.T) {
	c, s := setupTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	s.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() error = nil after server closed")
	}
}
