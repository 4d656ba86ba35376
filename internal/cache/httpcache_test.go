package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	url := "https://news.example.com/story"
	if err := c.Save(context.Background(), url, "text/html", `"etag1"`, "Mon, 24 Aug 2026 01:00:00 GMT", []byte("<html>body</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := c.LoadMeta(context.Background(), url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"etag1"` || meta.ContentType != "text/html" {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.SavedAt.IsZero() {
		t.Fatalf("saved_at missing")
	}

	body, err := c.LoadBody(context.Background(), url)
	if err != nil {
		t.Fatalf("load body: %v", err)
	}
	if string(body) != "<html>body</html>" {
		t.Fatalf("body = %q", body)
	}
}

func TestHTTPCache_MissIsError(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	if _, err := c.LoadMeta(context.Background(), "https://nothing.example.com/"); err == nil {
		t.Fatalf("expected miss")
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	old := "https://news.example.com/old"
	fresh := "https://news.example.com/fresh"
	for _, u := range []string{old, fresh} {
		if err := c.Save(context.Background(), u, "text/html", "", "", []byte("x")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	// Age the old entry's meta by rewriting its SavedAt.
	key := c.key(old)
	metaPath := filepath.Join(dir, key+".meta.json")
	b, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatal(err)
	}
	e.SavedAt = time.Now().UTC().Add(-48 * time.Hour)
	b, _ = json.Marshal(&e)
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := c.LoadBody(context.Background(), old); err == nil {
		t.Fatalf("aged entry survived purge")
	}
	if _, err := c.LoadBody(context.Background(), fresh); err != nil {
		t.Fatalf("fresh entry purged: %v", err)
	}
}

func TestClearDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "cache")
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://a.example.com/", "text/html", "", "", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("dir not recreated: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("dir not empty after clear: %d entries", len(ents))
	}
	if err := ClearDir(""); err == nil {
		t.Fatalf("empty dir accepted")
	}
}
