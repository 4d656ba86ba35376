package meta

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriter_RoundTrip(t *testing.T) {
	w := NewWriter(t.TempDir())
	in := map[string]any{"triggered": true, "count": float64(3)}
	if err := w.Write("SUPPLY_FALLBACK", in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out map[string]any
	ok, err := w.Read("SUPPLY_FALLBACK", &out)
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if out["triggered"] != true || out["count"] != float64(3) {
		t.Fatalf("round trip mismatch: %v", out)
	}

	name := filepath.Join(w.Dir, FileName("SUPPLY_FALLBACK"))
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("expected %s: %v", name, err)
	}
	if _, err := os.Stat(name + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("tmp file left behind")
	}
}

func TestWriter_WriteOncePerGate(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.Write("NEWSROOM_ZH", map[string]int{"a": 1}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	err := w.Write("NEWSROOM_ZH", map[string]int{"a": 2})
	if err == nil || !strings.Contains(err.Error(), "already written") {
		t.Fatalf("second write err = %v, want refusal", err)
	}
}

func TestWriter_AbsentMetaIsNotError(t *testing.T) {
	w := NewWriter(t.TempDir())
	var out map[string]any
	ok, err := w.Read("NEVER_WRITTEN", &out)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want absent without error", ok, err)
	}
}

func TestWriter_ConcurrentDistinctGates(t *testing.T) {
	w := NewWriter(t.TempDir())
	gates := []string{"G1", "G2", "G3", "G4"}
	var wg sync.WaitGroup
	for _, g := range gates {
		wg.Add(1)
		go func(g string) {
			defer wg.Done()
			if err := w.Write(g, map[string]string{"gate": g}); err != nil {
				t.Errorf("write %s: %v", g, err)
			}
		}(g)
	}
	wg.Wait()
	for _, g := range gates {
		var out map[string]string
		if ok, err := w.Read(g, &out); err != nil || !ok || out["gate"] != g {
			t.Errorf("read %s: ok=%v err=%v out=%v", g, ok, err, out)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("FAITHFUL_ZH_NEWS"); got != "faithful_zh_news.meta.json" {
		t.Fatalf("FileName = %q", got)
	}
}
