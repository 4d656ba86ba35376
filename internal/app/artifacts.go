package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/render"
)

// canonicalFiles are the outputs the operator's UI opens. They are
// replaced only on an OK run; a FAIL restores the pre-run copies.
var canonicalFiles = []string{
	render.DeckFile,
	render.DocFile,
	render.OnePagerFile,
	render.DigestFile,
	render.EventsFile,
}

// snapshotCanonical copies the current canonical files into a per-run
// snapshot directory so a failed run can roll back. Missing files are
// fine on a first run.
func snapshotCanonical(outDir, runID string) (string, error) {
	dir := filepath.Join(outDir, "snapshots", runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir snapshot: %w", err)
	}
	for _, name := range canonicalFiles {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("snapshot %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return "", fmt.Errorf("snapshot %s: %w", name, err)
		}
	}
	return dir, nil
}

// restoreCanonical puts the snapshot back. Canonical files that did not
// exist before the run are removed, so a failed first run leaves no
// half-rendered deliverables behind.
func restoreCanonical(outDir, snapDir string) error {
	for _, name := range canonicalFiles {
		src := filepath.Join(snapDir, name)
		dst := filepath.Join(outDir, name)
		b, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
				return fmt.Errorf("restore remove %s: %w", name, rmErr)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		tmp := dst + ".tmp"
		if err := os.WriteFile(tmp, b, 0o644); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		if err := os.Rename(tmp, dst); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return nil
}

// resolveHEAD identifies the source revision the run is executing from.
// GIT_HEAD wins so packaged installs can pin it; otherwise the local
// .git is consulted; "worktree" marks an untracked build.
func resolveHEAD() string {
	if v := strings.TrimSpace(os.Getenv("GIT_HEAD")); v != "" {
		return shortHead(v)
	}
	b, err := os.ReadFile(".git/HEAD")
	if err != nil {
		return "worktree"
	}
	head := strings.TrimSpace(string(b))
	if ref, ok := strings.CutPrefix(head, "ref: "); ok {
		rb, err := os.ReadFile(filepath.Join(".git", ref))
		if err != nil {
			return "worktree"
		}
		return shortHead(strings.TrimSpace(string(rb)))
	}
	return shortHead(head)
}

func shortHead(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// archiveDelivery copies the canonical files into the immutable per-run
// directory outputs/deliveries/<runID>_<head>/ and writes SHA256SUMS
// over them. The caller verifies head against the revision observed at
// run start; a drift is fatal.
func archiveDelivery(outDir, runID, head string) (string, error) {
	dir := filepath.Join(outDir, "deliveries", runID+"_"+head)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir delivery: %w", err)
	}

	sums := make([]string, 0, len(canonicalFiles))
	for _, name := range canonicalFiles {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return "", fmt.Errorf("archive %s: %w", name, err)
		}
		sum := sha256.Sum256(b)
		sums = append(sums, hex.EncodeToString(sum[:])+"  "+name)
	}
	sort.Strings(sums)
	manifest := strings.Join(sums, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "SHA256SUMS"), []byte(manifest), 0o644); err != nil {
		return "", fmt.Errorf("archive sums: %w", err)
	}
	log.Info().Str("dir", dir).Int("files", len(sums)).Msg("delivery archived")
	return dir, nil
}
