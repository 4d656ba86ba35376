// Package meta owns the per-gate evidence files under outputs/. A single
// writer serializes all writes, writes atomically (tmp, fsync, rename),
// and refuses a second write to the same gate within one run.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Writer appends one meta file per gate for the current run.
type Writer struct {
	Dir string // outputs directory

	mu      sync.Mutex
	written map[string]bool
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, written: map[string]bool{}}
}

// FileName returns the meta file name for a gate, e.g.
// supply_fallback.meta.json for SUPPLY_FALLBACK.
func FileName(gate string) string {
	return strings.ToLower(gate) + ".meta.json"
}

// Write persists v as the gate's meta file. The second write for the
// same gate in one run is an error; gates produce evidence exactly once.
func (w *Writer) Write(gate string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written[gate] {
		return fmt.Errorf("meta for %s already written this run", gate)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir outputs: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(w.Dir, FileName(gate)), v); err != nil {
		return fmt.Errorf("write meta %s: %w", gate, err)
	}
	w.written[gate] = true
	return nil
}

// Read loads a gate's meta file into v. The boolean reports presence;
// absence is not an error so gates can SKIP.
func (w *Writer) Read(gate string, v any) (bool, error) {
	b, err := os.ReadFile(filepath.Join(w.Dir, FileName(gate)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("parse meta %s: %w", gate, err)
	}
	return true, nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
