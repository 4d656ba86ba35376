// Package supply persists the Z0 pool (latest.jsonl + latest.meta.json) and
// restores the last known-good pair when a collection pass comes back
// degraded, so a bad feed day degrades to yesterday's pool instead of an
// empty deck.
package supply

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/collect"
	"github.com/hyperifyio/execbrief/internal/item"
)

const (
	latestItemsFile = "latest.jsonl"
	latestMetaFile  = "latest.meta.json"
	knownGoodDir    = "known_good"
)

// Store owns the on-disk Z0 pool layout under Dir (conventionally
// data/raw/z0).
type Store struct {
	Dir string
}

// FallbackResult is the audit record for supply_fallback.meta.json.
type FallbackResult struct {
	FallbackUsed     bool    `json:"fallback_used"`
	Reason           string  `json:"reason,omitempty"`
	SnapshotAgeHours float64 `json:"snapshot_age_hours,omitempty"`
}

// NeedsFallback decides whether the fresh pool is too degraded to use.
func NeedsFallback(total, minTotal int, forced bool) (bool, string) {
	if forced {
		return true, "hard-fail override set"
	}
	if total < minTotal {
		return true, fmt.Sprintf("total_items %d below minimum %d", total, minTotal)
	}
	return false, ""
}

// WriteLatest persists the pool pair atomically (tmp then rename, items
// before meta so a meta file never refers to missing items).
func (s *Store) WriteLatest(items []item.RawItem, meta collect.Meta) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir z0 dir: %w", err)
	}
	if err := writeJSONL(filepath.Join(s.Dir, latestItemsFile), items); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(s.Dir, latestMetaFile), meta)
}

// MarkKnownGood copies the current latest pair into the known-good slot.
// Called only after gates have accepted the pool.
func (s *Store) MarkKnownGood() error {
	dst := filepath.Join(s.Dir, knownGoodDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("mkdir known_good: %w", err)
	}
	for _, name := range []string{latestItemsFile, latestMetaFile} {
		b, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		tmp := filepath.Join(dst, name+".tmp")
		if err := os.WriteFile(tmp, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := os.Rename(tmp, filepath.Join(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

// RestoreKnownGood loads the last known-good pool pair. An unreadable
// snapshot is fatal to the run per the error policy, so errors propagate.
func (s *Store) RestoreKnownGood(now time.Time) ([]item.RawItem, collect.Meta, FallbackResult, error) {
	dir := filepath.Join(s.Dir, knownGoodDir)
	items, err := readJSONL(filepath.Join(dir, latestItemsFile))
	if err != nil {
		return nil, collect.Meta{}, FallbackResult{}, fmt.Errorf("restore snapshot items: %w", err)
	}
	var meta collect.Meta
	mb, err := os.ReadFile(filepath.Join(dir, latestMetaFile))
	if err != nil {
		return nil, collect.Meta{}, FallbackResult{}, fmt.Errorf("restore snapshot meta: %w", err)
	}
	if err := json.Unmarshal(mb, &meta); err != nil {
		return nil, collect.Meta{}, FallbackResult{}, fmt.Errorf("parse snapshot meta: %w", err)
	}
	age := now.Sub(meta.GeneratedAt).Hours()
	log.Info().Float64("age_hours", age).Int("items", len(items)).Msg("restored known-good pool")
	return items, meta, FallbackResult{FallbackUsed: true, SnapshotAgeHours: age}, nil
}

func writeJSONL(path string, items []item.RawItem) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range items {
		if err := enc.Encode(&items[i]); err != nil {
			f.Close()
			return fmt.Errorf("encode item: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
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

func readJSONL(path string) ([]item.RawItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var items []item.RawItem
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var it item.RawItem
		if err := json.Unmarshal(line, &it); err != nil {
			return nil, fmt.Errorf("parse jsonl line: %w", err)
		}
		items = append(items, it)
	}
	return items, sc.Err()
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
