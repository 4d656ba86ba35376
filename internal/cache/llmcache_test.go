package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLLMCache_SaveGet(t *testing.T) {
	tmp := t.TempDir()
	c := &LLMCache{Dir: tmp}
	key := KeyFrom("model", "prompt")
	data := []byte(`{"q1":"a","q2":"b"}`)
	if err := c.Save(context.Background(), key, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if string(got) != string(data) {
		t.Fatalf("mismatch")
	}
}

func TestLLMCache_MissIsNotError(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	_, ok, err := c.Get(context.Background(), KeyFrom("m", "absent"))
	if err != nil {
		t.Fatalf("miss errored: %v", err)
	}
	if ok {
		t.Fatalf("phantom hit")
	}
}

func TestKeyFrom_SeparatesModelAndPrompt(t *testing.T) {
	if KeyFrom("m1", "p") == KeyFrom("m2", "p") {
		t.Fatalf("model not part of key")
	}
	if KeyFrom("m", "p1") == KeyFrom("m", "p2") {
		t.Fatalf("prompt not part of key")
	}
	if KeyFrom("m", "p") != KeyFrom("m", "p") {
		t.Fatalf("key not deterministic")
	}
}

func TestPurgeLLMCacheByAge(t *testing.T) {
	tmp := t.TempDir()
	c := &LLMCache{Dir: tmp}
	oldKey := KeyFrom("m", "old")
	freshKey := KeyFrom("m", "fresh")
	for _, k := range []string{oldKey, freshKey} {
		if err := c.Save(context.Background(), k, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(c.pathFor(oldKey), stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := PurgeLLMCacheByAge(tmp, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok, _ := c.Get(context.Background(), oldKey); ok {
		t.Fatalf("aged entry survived purge")
	}
	if _, ok, _ := c.Get(context.Background(), freshKey); !ok {
		t.Fatalf("fresh entry purged")
	}
}

func TestPurgeLLMCacheByAge_GetRefreshesAge(t *testing.T) {
	tmp := t.TempDir()
	c := &LLMCache{Dir: tmp}
	key := KeyFrom("m", "p")
	if err := c.Save(context.Background(), key, []byte("{}")); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(c.pathFor(key), stale, stale); err != nil {
		t.Fatal(err)
	}
	// A hit touches mtime, so the entry is young again.
	if _, ok, _ := c.Get(context.Background(), key); !ok {
		t.Fatal("expected hit")
	}
	removed, err := PurgeLLMCacheByAge(tmp, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("recently used entry purged")
	}
}
