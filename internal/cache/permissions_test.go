package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLLMCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "llm")
	c := &LLMCache{Dir: dir, StrictPerms: true}
	key := KeyFrom("model", "prompt")
	if err := c.Save(context.Background(), key, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(filepath.Join(dir, key+".json"))
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	url := "https://example.com/x"
	if err := c.Save(context.Background(), url, "text/html", "etag", "", []byte("hello")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	key := c.key(url)
	for _, f := range []string{filepath.Join(dir, key+".body"), filepath.Join(dir, key+".meta.json")} {
		finfo, err := os.Stat(f)
		if err != nil {
			t.Fatalf("stat %s: %v", f, err)
		}
		if got := finfo.Mode() & 0o777; got != 0o600 {
			t.Fatalf("%s mode = %o, want 0600", f, got)
		}
	}
}
