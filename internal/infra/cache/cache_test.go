package cache_test

import (
	"testing"
	"time"

	"github.com/vidaplena/igreja-admin-go/internal/infra/cache"
)

func TestCache_SetGet(t *testing.T) {
	c := cache.New[string](1 * time.Minute)
	defer c.Close()

	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "v" {
		t.Errorf("expected 'v', got '%s'", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := cache.New[int](1 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected miss")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](1 * time.Minute)
	defer c.Close()

	c.Set("k", "v")
	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}
