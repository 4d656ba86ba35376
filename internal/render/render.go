// Package render produces the run's deliverables: the executive deck and
// document, a PDF one-pager, a markdown digest and the machine-readable
// events file. Renders are deterministic for identical event lists.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperifyio/execbrief/internal/selection"
)

// Canonical output names under the outputs directory.
const (
	DeckFile       = "executive_report.pptx"
	DocFile        = "executive_report.docx"
	OnePagerFile   = "executive_onepager.pdf"
	DigestFile     = "digest.md"
	EventsFile     = "events.json"
	NotReadyDeck   = "NOT_READY_report.pptx"
	NotReadyDoc    = "NOT_READY_report.docx"
	NotReadyMd     = "NOT_READY.md"
	LastRunSummary = "LAST_RUN_SUMMARY.txt"
)

// Artifacts lists what one render pass produced.
type Artifacts struct {
	DeckPath   string
	DocPath    string
	PDFPath    string
	DigestPath string
	EventsPath string

	// RenderedText is every human-visible string that went into the
	// deliverables, concatenated for the ban scan.
	RenderedText string
}

// Renderer writes deliverables into OutDir.
type Renderer struct {
	OutDir string
	Date   time.Time // briefing date shown on title pages
}

// RenderReady writes the full deliverable set for a passing run.
func (r *Renderer) RenderReady(events []selection.Event) (Artifacts, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("mkdir outputs: %w", err)
	}
	day := r.Date.Format("2006-01-02")
	deckTitle := day + " 每日高管简报"

	var text strings.Builder
	slides := make([]Slide, 0, len(events))
	sections := make([]DocSection, 0, len(events))
	for _, ev := range events {
		lines := eventLines(ev)
		slides = append(slides, Slide{Title: ev.Title, Lines: lines})
		sections = append(sections, DocSection{Heading: ev.Title, Paragraphs: lines})
		text.WriteString(ev.Title + "\n" + strings.Join(lines, "\n") + "\n")
	}

	a := Artifacts{
		DeckPath:   filepath.Join(r.OutDir, DeckFile),
		DocPath:    filepath.Join(r.OutDir, DocFile),
		PDFPath:    filepath.Join(r.OutDir, OnePagerFile),
		DigestPath: filepath.Join(r.OutDir, DigestFile),
		EventsPath: filepath.Join(r.OutDir, EventsFile),
	}
	if err := WritePptx(a.DeckPath, deckTitle, slides); err != nil {
		return a, fmt.Errorf("render deck: %w", err)
	}
	if err := WriteDocx(a.DocPath, deckTitle, sections); err != nil {
		return a, fmt.Errorf("render doc: %w", err)
	}
	if err := writeOnePager(a.PDFPath, day, events); err != nil {
		return a, fmt.Errorf("render one-pager: %w", err)
	}
	if err := r.writeDigest(a.DigestPath, day, events); err != nil {
		return a, fmt.Errorf("render digest: %w", err)
	}
	if err := writeEventsJSON(a.EventsPath, events); err != nil {
		return a, fmt.Errorf("render events: %w", err)
	}
	a.RenderedText = deckTitle + "\n" + text.String()
	return a, nil
}

// RenderNotReady writes the placeholder deliverables a failed run shows
// instead of touching the canonical files.
func (r *Renderer) RenderNotReady(reason string) error {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return fmt.Errorf("mkdir outputs: %w", err)
	}
	day := r.Date.Format("2006-01-02")
	title := day + " 简报未就绪"
	lines := []string{"本次运行未通过质量门控,未生成正式简报。", "原因:" + reason}

	if err := WritePptx(filepath.Join(r.OutDir, NotReadyDeck), title, []Slide{{Title: title, Lines: lines}}); err != nil {
		return fmt.Errorf("render not-ready deck: %w", err)
	}
	if err := WriteDocx(filepath.Join(r.OutDir, NotReadyDoc), title, []DocSection{{Heading: title, Paragraphs: lines}}); err != nil {
		return fmt.Errorf("render not-ready doc: %w", err)
	}
	md := "# NOT READY\n\n" + reason + "\n"
	tmp := filepath.Join(r.OutDir, NotReadyMd+".tmp")
	if err := os.WriteFile(tmp, []byte(md), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(r.OutDir, NotReadyMd))
}

func eventLines(ev selection.Event) []string {
	lines := make([]string, 0, 5)
	for _, s := range []string{ev.Q1, ev.Q2, ev.Q3, ev.Proof} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	if ev.Source != "" {
		lines = append(lines, "来源:"+ev.Source)
	}
	return lines
}

func (r *Renderer) writeDigest(path, day string, events []selection.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# 每日高管简报 %s\n\n", day)
	for _, ev := range events {
		fmt.Fprintf(&b, "## %s\n\n", ev.Title)
		for _, line := range eventLines(ev) {
			fmt.Fprintf(&b, "%s\n\n", line)
		}
		if ev.URL != "" {
			fmt.Fprintf(&b, "<%s>\n\n", ev.URL)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeEventsJSON(path string, events []selection.Event) error {
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
