// Package app wires the pipeline stages into one run: collect, dedupe,
// hydrate, classify, score, select, rewrite, render, gate. A run is one
// logical transaction; the pre-run snapshot gives canonical artifacts
// all-or-nothing behavior.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/cache"
	"github.com/hyperifyio/execbrief/internal/classify"
	"github.com/hyperifyio/execbrief/internal/collect"
	"github.com/hyperifyio/execbrief/internal/dedupe"
	"github.com/hyperifyio/execbrief/internal/entity"
	"github.com/hyperifyio/execbrief/internal/extract"
	"github.com/hyperifyio/execbrief/internal/fetch"
	"github.com/hyperifyio/execbrief/internal/gate"
	"github.com/hyperifyio/execbrief/internal/hydrate"
	"github.com/hyperifyio/execbrief/internal/item"
	"github.com/hyperifyio/execbrief/internal/llm"
	"github.com/hyperifyio/execbrief/internal/meta"
	"github.com/hyperifyio/execbrief/internal/render"
	"github.com/hyperifyio/execbrief/internal/rewrite"
	"github.com/hyperifyio/execbrief/internal/robots"
	"github.com/hyperifyio/execbrief/internal/score"
	"github.com/hyperifyio/execbrief/internal/selection"
	"github.com/hyperifyio/execbrief/internal/supply"
)

// ErrRunFailed marks a run that completed its stages but failed a hard
// gate or an integrity check. The CLI maps it to a non-zero exit.
var ErrRunFailed = fmt.Errorf("run failed")

const fetchUserAgent = "execbrief/1.0 (+https://github.com/hyperifyio/execbrief)"

// App owns the long-lived dependencies of the pipeline.
type App struct {
	cfg       Config
	store     *supply.Store
	httpCache *cache.HTTPCache
	llmCache  *cache.LLMCache
	chat      llm.Client

	// Now is the run clock; zero means time.Now. Fixed in tests.
	Now func() time.Time
}

func New(cfg Config) (*App, error) {
	if _, err := gate.ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, store: &supply.Store{Dir: cfg.DataDir}}
	if cfg.CacheDir != "" {
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		a.llmCache = &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	chat, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.chat = chat
	return a, nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Run executes one pipeline pass. A nil return means OK (exit 0); any
// error means FAIL and the CLI exits non-zero.
func (a *App) Run(ctx context.Context) error {
	started := a.now()
	runID := started.UTC().Format("20060102_150405")
	headAtStart := resolveHEAD()
	metaW := meta.NewWriter(a.cfg.OutDir)
	renderer := &render.Renderer{OutDir: a.cfg.OutDir, Date: started}

	log.Info().Str("run_id", runID).Str("mode", string(a.cfg.Mode)).
		Str("head", headAtStart).Msg("run started")

	if err := os.MkdirAll(a.cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("mkdir outputs: %w", err)
	}
	snapDir, err := snapshotCanonical(a.cfg.OutDir, runID)
	if err != nil {
		return err
	}

	summary := RunSummary{RunID: runID, StartedAt: started, Mode: string(a.cfg.Mode)}
	settle := func(reason string) {
		log.Error().Str("reason", reason).Msg("run failed")
		if err := restoreCanonical(a.cfg.OutDir, snapDir); err != nil {
			log.Error().Err(err).Msg("canonical restore failed")
		}
		if err := renderer.RenderNotReady(reason); err != nil {
			log.Error().Err(err).Msg("not-ready render failed")
		}
		summary.Status = "FAIL"
		summary.FailReason = reason
		a.finishRun(metaW, &summary, "")
	}
	// fail marks a gate or integrity rejection; fatal marks an
	// operational error. Both leave NOT_READY artifacts and a summary.
	fail := func(reason string) error {
		settle(reason)
		return fmt.Errorf("%w: %s", ErrRunFailed, reason)
	}
	fatal := func(stage string, err error) error {
		settle(stage + ": " + err.Error())
		return fmt.Errorf("%s: %w", stage, err)
	}

	// Collection.
	sources, err := collect.LoadSources(a.cfg.SourcesPath)
	if err != nil {
		return fatal("load sources", err)
	}
	pool, poolMeta, fallback, err := a.collectPool(ctx, sources)
	if err != nil {
		return fatal("collect", err)
	}
	if err := metaW.Write("SUPPLY_FALLBACK", fallback); err != nil {
		return fatal("meta", err)
	}

	// Dedupe and filter. The summary meta is written after the event
	// gate so kept_total and event_gate_pass_total are authoritative.
	item.Sort(pool)
	dres := dedupe.Process(pool, a.dedupePolicy())

	// Hydration. Dry runs preview the plan without touching the network.
	hydrated := dres.Items
	var hydrationByID map[string]hydrate.Result
	var hydSummary hydrate.Summary
	if !a.cfg.DryRun {
		hydrated, hydrationByID, hydSummary = a.hydratePool(ctx, dres.Items)
	}
	if err := metaW.Write("FULLTEXT_HYDRATION_RUN", hydSummary); err != nil {
		return fatal("meta", err)
	}

	// Score, event-gate, and pool tiers.
	primary, extra, general := a.buildPools(hydrated, dres.DupCounts, hydrationByID)
	dres.Summary.KeptTotal = len(primary) + len(extra) + len(general)
	dres.Summary.EventGatePassTotal = len(primary)
	if err := metaW.Write("DEDUPE_FILTER", dres.Summary); err != nil {
		return fatal("meta", err)
	}

	// Selection.
	quotas := a.cfg.Quotas
	if a.cfg.Mode == gate.ModeBrief {
		quotas.MaxEvents = 10
	}
	outcome := selection.Select(primary, extra, general, quotas)
	events := selection.Events(outcome.Selected)
	if err := metaW.Write("BUCKET_BACKFILL", outcome.Backfill); err != nil {
		return fatal("meta", err)
	}
	aiSelected := 0
	for _, c := range outcome.Selected {
		if c.Pool == selection.PoolPrimary {
			aiSelected++
		}
	}
	summary.SelectedEvents = len(events)
	summary.AISelectedEvents = aiSelected

	// Faithful rewrite.
	fulltext := fulltextIndex(hydrated)
	rewriter := rewrite.NewRewriter(a.assister())
	events, rmeta := rewriter.Apply(ctx, events, fulltext)
	if err := metaW.Write("FAITHFUL_ZH_NEWS_RUN", rmeta); err != nil {
		return fatal("meta", err)
	}

	if a.cfg.DryRun {
		log.Info().Int("events", len(events)).Bool("sparse_day", outcome.SparseDay).
			Msg("dry run complete, skipping render and gates")
		summary.Status = "OK"
		a.finishRun(metaW, &summary, "")
		return nil
	}

	// Render deliverables in place; the snapshot protects the canonical
	// files if gates reject the run.
	artifacts, err := renderer.RenderReady(events)
	if err != nil {
		return fail("render: " + err.Error())
	}
	summary.ProducedFiles = []string{render.DeckFile, render.DocFile, render.OnePagerFile}

	// Gates.
	engine := &gate.Engine{Meta: metaW}
	state := gate.State{
		Mode:               a.cfg.Mode,
		SparseDay:          outcome.SparseDay,
		Events:             events,
		AISelected:         aiSelected,
		StrictFulltextOK:   strictFulltextCount(events, fulltext),
		FulltextLen:        func(id string) int { return len(fulltext(id)) },
		RewriteMeta:        rmeta,
		Hydration:          hydSummary,
		Fallback:           fallback,
		Backfill:           outcome.Backfill,
		Quotas:             quotas,
		RenderRequested:    true,
		DeckPath:           artifacts.DeckPath,
		DocPath:            artifacts.DocPath,
		RenderedText:       artifacts.RenderedText,
		HydrationAttempted: hydSummary.Attempted > 0,
	}
	results, verdict := engine.Evaluate(state)
	if verdict != gate.Pass {
		return fail(firstHardFailure(results))
	}

	// Archive integrity: the source revision must not have drifted
	// between run start and archive time.
	if head := resolveHEAD(); head != headAtStart {
		return fail(fmt.Sprintf("ARCHIVE_HEAD_MATCH: head drifted %s -> %s", headAtStart, head))
	}
	deliveryDir, err := archiveDelivery(a.cfg.OutDir, runID, headAtStart)
	if err != nil {
		return fail("archive: " + err.Error())
	}

	// Promote: the accepted pool becomes the next known-good snapshot and
	// stale fail markers disappear.
	if err := a.store.MarkKnownGood(); err != nil {
		log.Warn().Err(err).Msg("known-good promotion failed")
	}
	removeIfPresent(a.cfg.OutDir, render.NotReadyMd)

	summary.Status = "OK"
	a.finishRun(metaW, &summary, deliveryDir)
	if a.cfg.AutoOpen {
		// Opening is delegated to the desktop launcher, which watches the
		// desktop_button meta file; nothing to exec here.
		log.Info().Str("target", render.DeckFile).Msg("auto-open requested")
	}
	log.Info().Str("run_id", runID).Int("events", len(events)).
		Int("frontier85_72h", poolMeta.FrontierGE85Last72h).Msg("run OK")
	return nil
}

// collectPool runs Z0 and applies the supply fallback policy: a pool
// under the size or frontier floors is replaced by the last known-good
// snapshot, and a missing snapshot on a forced fallback is fatal.
func (a *App) collectPool(ctx context.Context, sources collect.SourcesConfig) ([]item.RawItem, collect.Meta, supply.FallbackResult, error) {
	client := &fetch.Client{
		HTTPClient:        &http.Client{Timeout: a.cfg.HydrateTimeout},
		PerRequestTimeout: a.cfg.HydrateTimeout,
		UserAgent:         fetchUserAgent,
		Cache:             a.httpCache,
	}
	collector := &collect.Collector{Getter: client, Now: a.now()}
	items, cmeta, err := collector.Collect(ctx, sources)
	if err != nil {
		return nil, collect.Meta{}, supply.FallbackResult{}, err
	}
	if err := a.store.WriteLatest(items, cmeta); err != nil {
		return nil, collect.Meta{}, supply.FallbackResult{}, err
	}

	minFrontier := a.cfg.MinFrontier85In72h
	if a.cfg.AllowDegraded && cmeta.FrontierGE85Last72h < minFrontier {
		log.Warn().Int("have", cmeta.FrontierGE85Last72h).Int("want", minFrontier).
			Int("fallback_floor", a.cfg.Frontier85Fallback).Msg("degraded frontier target enabled")
		minFrontier = a.cfg.Frontier85Fallback
	}
	need, reason := supply.NeedsFallback(len(items), a.cfg.MinTotalItems, a.cfg.ForceFallback)
	if !need && cmeta.FrontierGE85Last72h < minFrontier {
		need = true
		reason = fmt.Sprintf("frontier85_72h %d below minimum %d", cmeta.FrontierGE85Last72h, minFrontier)
	}
	if !need {
		return items, cmeta, supply.FallbackResult{}, nil
	}

	restored, rmeta, fb, err := a.store.RestoreKnownGood(a.now())
	if err != nil {
		return nil, collect.Meta{}, supply.FallbackResult{}, fmt.Errorf("supply fallback (%s): %w", reason, err)
	}
	fb.Reason = reason
	return restored, rmeta, fb, nil
}

func (a *App) dedupePolicy() dedupe.Policy {
	p := dedupe.Policy{
		LangAllow:  []string{"en", "zh"},
		MaxAge:     72 * time.Hour,
		MinBodyLen: 80,
		TopicKeywords: []string{
			"ai", "artificial intelligence", "machine learning", "model",
			"llm", "chip", "semiconductor", "robot", "startup", "funding",
			"cloud", "software", "launch", "release", "acquisition",
			"regulation", "open source", "agent", "inference", "gpu",
		},
		Now: a.now(),
	}
	if a.cfg.RunProfile == "calibration" {
		// Calibration runs keep a wider net to measure the filters.
		p.MaxAge = 168 * time.Hour
		p.MinBodyLen = 0
		p.TopicKeywords = nil
	}
	return p
}

// hydratePool fetches fulltext for the highest-frontier items that need
// it, capped per run, and merges accepted bodies back into the pool.
func (a *App) hydratePool(ctx context.Context, items []item.RawItem) ([]item.RawItem, map[string]hydrate.Result, hydrate.Summary) {
	candidates := make([]item.RawItem, 0, a.cfg.MaxHydrate)
	for _, it := range items {
		if it.NeedsFulltext || len(it.Body) < extract.MinFulltextLen {
			candidates = append(candidates, it)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Frontier != candidates[j].Frontier {
			return candidates[i].Frontier > candidates[j].Frontier
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > a.cfg.MaxHydrate {
		candidates = candidates[:a.cfg.MaxHydrate]
	}
	if len(candidates) == 0 {
		return items, map[string]hydrate.Result{}, hydrate.Summary{}
	}

	client := &fetch.Client{
		HTTPClient:        &http.Client{Timeout: a.cfg.HydrateTimeout},
		PerRequestTimeout: a.cfg.HydrateTimeout,
		UserAgent:         fetchUserAgent,
		Cache:             a.httpCache,
	}
	h := &hydrate.Hydrator{
		Client: client,
		Robots: &robots.Checker{Getter: client, UserAgent: fetchUserAgent},
		Policy: hydrate.Policy{
			Workers:         a.cfg.HydrateWorkers,
			PolitenessDelay: a.cfg.PolitenessDelay,
		},
	}
	results, hsum := h.Hydrate(ctx, candidates)
	merged, byID := hydrate.Apply(items, results)
	return merged, byID, hsum
}

// buildPools scores every kept item and assigns it to a selection tier:
// event-gate passers are primary, near-misses are extra, the rest of the
// clean pool is the general backfill tier.
func (a *App) buildPools(items []item.RawItem, dupCounts map[string]int, hydration map[string]hydrate.Result) (primary, extra, general []selection.Candidate) {
	policy := score.DefaultGatePolicy()
	for _, it := range items {
		cls := classify.Classify(it.Title, it.Body)
		hydOK := hydration[it.ID].Status == hydrate.StatusOK
		sc := score.Compute(score.Inputs{
			Item:           it,
			DupCount:       dupCounts[it.ID],
			HydrationOK:    hydOK,
			Classification: cls,
		})
		cand := selection.Candidate{
			Item:     it,
			Score:    sc,
			Category: cls,
			Entities: entityNames(it),
			Bucket:   selection.BucketFor(cls.Category, it.Title, it.Body),
		}
		pass, _ := score.EventGate(it, sc, hydOK, true, policy)
		switch {
		case pass:
			primary = append(primary, cand)
		case !sc.AdFlag && sc.Final >= policy.MinScore-1.5:
			extra = append(extra, cand)
		case !sc.AdFlag:
			general = append(general, cand)
		}
	}
	return primary, extra, general
}

func (a *App) assister() rewrite.Assister {
	if a.chat == nil {
		return nil
	}
	return &llm.Composer{Client: a.chat, Model: a.cfg.LLM.Model, Cache: a.llmCache}
}

// finishRun writes the always-present run records: the human summary,
// the desktop button target, the delivery pointer and the scheduler
// contract surface.
func (a *App) finishRun(metaW *meta.Writer, s *RunSummary, deliveryDir string) {
	s.FinishedAt = a.now()
	if err := writeLastRunSummary(a.cfg.OutDir, *s); err != nil {
		log.Error().Err(err).Msg("run summary write failed")
	}

	target := render.DeckFile
	if s.Status != "OK" {
		target = render.NotReadyDeck
	}
	if err := metaW.Write("DESKTOP_BUTTON", DesktopButtonMeta{
		Status:     s.Status,
		OpenTarget: target,
		UpdatedAt:  s.FinishedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		log.Error().Err(err).Msg("desktop button meta write failed")
	}
	if err := metaW.Write("DELIVERY_PATH", DeliveryPathMeta{
		RunID:        s.RunID,
		DeliveryPath: deliveryDir,
		Head:         resolveHEAD(),
		Status:       s.Status,
	}); err != nil {
		log.Error().Err(err).Msg("delivery path meta write failed")
	}
	installed := envTruthy("EXEC_SCHEDULER_INSTALLED")
	if err := metaW.Write("SCHEDULER", schedulerMeta(s.FinishedAt, installed, s.Status)); err != nil {
		log.Error().Err(err).Msg("scheduler meta write failed")
	}
}

func fulltextIndex(items []item.RawItem) func(string) string {
	byID := make(map[string]string, len(items))
	for _, it := range items {
		byID[it.ID] = it.Body
	}
	return func(id string) string { return byID[id] }
}

// strictFulltextCount counts selected events whose source item carries
// an accepted fulltext body.
func strictFulltextCount(events []selection.Event, fulltext func(string) string) int {
	n := 0
	for _, ev := range events {
		if len(fulltext(ev.ItemID)) >= extract.MinFulltextLen {
			n++
		}
	}
	return n
}

func firstHardFailure(results []gate.Result) string {
	for _, r := range results {
		if r.Hard && r.Verdict == gate.Fail {
			reason := r.Name
			if len(r.Reasons) > 0 {
				reason += ": " + r.Reasons[0]
			}
			return reason
		}
	}
	return "hard gate failure"
}

func entityNames(it item.RawItem) []string {
	ents := entity.Extract(it.Title, it.Body)
	if len(ents) > 3 {
		ents = ents[:3]
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name)
	}
	return names
}

func envTruthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func removeIfPresent(dir, name string) {
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", name).Msg("stale marker removal failed")
	}
}
