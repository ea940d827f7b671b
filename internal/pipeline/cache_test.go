package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/capdigest/internal/prompt"
)

func TestCache_KeyIncludesStyleAndSize(t *testing.T) {
	c := NewCache(8, time.Hour)
	key := CacheKey{ContentHash: "h", Style: prompt.StyleGeneral, MaxChunkSize: 100}
	c.Add(key, "summary")

	if got, ok := c.Get(key); !ok || got != "summary" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get(CacheKey{ContentHash: "h", Style: prompt.StyleDefault, MaxChunkSize: 100}); ok {
		t.Error("style should be part of the key")
	}
	if _, ok := c.Get(CacheKey{ContentHash: "h", Style: prompt.StyleGeneral, MaxChunkSize: 200}); ok {
		t.Error("chunk size should be part of the key")
	}
}

func TestCache_EvictsLeastRecent(t *testing.T) {
	c := NewCache(2, time.Hour)
	a := CacheKey{ContentHash: "a"}
	b := CacheKey{ContentHash: "b"}
	d := CacheKey{ContentHash: "d"}
	c.Add(a, "A")
	c.Add(b, "B")
	c.Get(a)
	c.Add(d, "D")

	if _, ok := c.Get(b); ok {
		t.Error("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestCache_Expires(t *testing.T) {
	c := NewCache(2, 20*time.Millisecond)
	key := CacheKey{ContentHash: "x"}
	c.Add(key, "X")
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("entry should have expired")
	}
}

func TestCache_Disabled(t *testing.T) {
	for name, c := range map[string]*Cache{"nil": nil, "zero size": NewCache(0, time.Hour)} {
		c.Add(CacheKey{ContentHash: "x"}, "X")
		if _, ok := c.Get(CacheKey{ContentHash: "x"}); ok {
			t.Errorf("%s cache returned a hit", name)
		}
		if c.Len() != 0 {
			t.Errorf("%s cache len = %d", name, c.Len())
		}
	}
}
