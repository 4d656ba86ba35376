package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperifyio/execbrief/internal/render"
)

// RunSummary is the always-written human record of one run.
type RunSummary struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	Mode             string
	Status           string // OK | FAIL
	SelectedEvents   int
	AISelectedEvents int
	ProducedFiles    []string
	FailReason       string
}

const maxFailReasonChars = 300

// writeLastRunSummary writes LAST_RUN_SUMMARY.txt. It must exist after
// every run, success or not, with exactly one status line.
func writeLastRunSummary(outDir string, s RunSummary) error {
	reason := s.FailReason
	if len(reason) > maxFailReasonChars {
		// Back up to a rune boundary so a multi-byte reason stays valid.
		cut := maxFailReasonChars
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run_id: %s\n", s.RunID)
	fmt.Fprintf(&b, "started_at: %s\n", s.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "finished_at: %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "mode: %s\n", s.Mode)
	fmt.Fprintf(&b, "status: %s\n", s.Status)
	fmt.Fprintf(&b, "selected_events: %d\n", s.SelectedEvents)
	fmt.Fprintf(&b, "ai_selected_events: %d\n", s.AISelectedEvents)
	fmt.Fprintf(&b, "produced_files: %s\n", strings.Join(s.ProducedFiles, ", "))
	if reason != "" {
		fmt.Fprintf(&b, "fail_reason: %s\n", reason)
	}

	path := filepath.Join(outDir, render.LastRunSummary)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DesktopButtonMeta tells the desktop launcher what to open.
type DesktopButtonMeta struct {
	Status     string `json:"status"`
	OpenTarget string `json:"open_target"`
	UpdatedAt  string `json:"updated_at"`
}

// DeliveryPathMeta points verifiers at the immutable archive of the run.
type DeliveryPathMeta struct {
	RunID        string `json:"run_id"`
	DeliveryPath string `json:"delivery_path,omitempty"`
	Head         string `json:"head"`
	Status       string `json:"status"`
}
