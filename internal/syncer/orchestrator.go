// Package syncer coordinates tracked-browser config, per-browser history
// scans and cursor updates.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/browsync/internal/browser"
	"github.com/runnerr0/browsync/internal/logging"
	"github.com/runnerr0/browsync/internal/model"
	"github.com/runnerr0/browsync/internal/storage"
)

// HistoryReader scans a single browser.
type HistoryReader interface {
	Known(name string) bool
	ReadBrowser(ctx context.Context, name string, start, end int64) ([]model.History, error)
}

// ConfigManager loads tracked browsers and commits cursors.
type ConfigManager interface {
	GetConfig(ctx context.Context) (model.Config, error)
	CommitCursors(ctx context.Context, cursors map[string]int64) (model.Config, error)
}

// Orchestrator fans reads out across browsers and merges the results.
type Orchestrator struct {
	configs     ConfigManager
	reader      HistoryReader
	journal     storage.Journal
	parallelism int
	scanTimeout time.Duration
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal records every scan in j.
func WithJournal(j storage.Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithParallelism bounds how many browsers are scanned at once.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithScanTimeout bounds each browser scan. Zero means no bound beyond the
// caller's context.
func WithScanTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.scanTimeout = d }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an Orchestrator over configs and reader.
func New(configs ConfigManager, reader HistoryReader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		configs:     configs,
		reader:      reader,
		parallelism: 4,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// scanPlan is one browser and the window to read for it.
type scanPlan struct {
	name       string
	start, end int64
}

type scanResult struct {
	plan    scanPlan
	entries []model.History
	err     error
}

// ReadHistory reads [start, end] from every requested browser that is
// tracked. Requested names that are not tracked, or have no reader, are
// reported as UnknownBrowser diagnostics; the call fails only if all of
// them are. Browsers that fail to scan are reported as BrowserUnavailable
// diagnostics and keep their cursor. Successful browsers advance their
// cursor to max(previous, end).
func (o *Orchestrator) ReadHistory(ctx context.Context, names []string, start, end int64) (model.ReadResult, error) {
	res := emptyResult()
	if start > end {
		return res, model.Errorf(model.KindInvalidArgument, "read_history", "start %d is after end %d", start, end)
	}
	names = dedupe(names)
	if len(names) == 0 {
		return res, nil
	}

	cfg, err := o.configs.GetConfig(ctx)
	if err != nil {
		return res, err
	}

	var plans []scanPlan
	for _, name := range names {
		if _, tracked := cfg.Find(name); !tracked {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Browser: name, Kind: model.KindUnknownBrowser, Message: "browser is not tracked",
			})
			continue
		}
		if !o.reader.Known(name) {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Browser: name, Kind: model.KindUnknownBrowser, Message: "no history reader for browser",
			})
			continue
		}
		plans = append(plans, scanPlan{name: name, start: start, end: end})
	}

	if len(plans) == 0 {
		return res, model.Errorf(model.KindUnknownBrowser, "read_history",
			"no requested browser is tracked and readable: %s", strings.Join(names, ", "))
	}

	return o.run(ctx, plans, res)
}

// Sync reads every tracked browser from just after its cursor up to now.
// Browsers already synced through now are skipped.
func (o *Orchestrator) Sync(ctx context.Context, now int64) (model.ReadResult, error) {
	res := emptyResult()

	cfg, err := o.configs.GetConfig(ctx)
	if err != nil {
		return res, err
	}

	var plans []scanPlan
	for _, b := range cfg.Browsers {
		if b.LastSync >= now {
			o.logger.Debug("browser up to date", "browser", b.Name, "last_sync", b.LastSync)
			continue
		}
		if !o.reader.Known(b.Name) {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Browser: b.Name, Kind: model.KindUnknownBrowser, Message: "no history reader for browser",
			})
			continue
		}
		start := b.LastSync
		if start > 0 {
			start++
		}
		plans = append(plans, scanPlan{name: b.Name, start: start, end: now})
	}

	if len(plans) == 0 {
		return res, nil
	}
	return o.run(ctx, plans, res)
}

// run scans every plan concurrently, merges the entries in a fixed order
// and commits cursors for the scans that succeeded.
func (o *Orchestrator) run(ctx context.Context, plans []scanPlan, res model.ReadResult) (model.ReadResult, error) {
	results := make([]scanResult, len(plans))

	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, p := range plans {
		i, p := i, p
		g.Go(func() error {
			results[i] = o.scan(ctx, p)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // scans report through results

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("read history: %w", err)
	}

	cursors := make(map[string]int64)
	for _, r := range results {
		if r.err != nil {
			d := browser.DiagnosticFor(r.plan.name, r.err)
			d.Kind = model.KindBrowserUnavailable
			res.Diagnostics = append(res.Diagnostics, d)
			o.logger.Warn("browser scan failed", "browser", r.plan.name, "error", r.err)
			continue
		}
		res.Entries = append(res.Entries, r.entries...)
		cursors[r.plan.name] = r.plan.end
	}
	browser.SortHistory(res.Entries)

	if len(cursors) > 0 {
		if _, err := o.configs.CommitCursors(ctx, cursors); err != nil {
			return res, err
		}
	}

	o.logger.Info("history read",
		"browsers", len(plans),
		"succeeded", len(cursors),
		"entries", len(res.Entries),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}

// scan runs one browser through Scanning to Succeeded or Failed.
func (o *Orchestrator) scan(ctx context.Context, p scanPlan) scanResult {
	journalCtx := context.WithoutCancel(ctx)
	rec := o.beginScan(journalCtx, p)

	scanCtx := ctx
	if o.scanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, o.scanTimeout)
		defer cancel()
	}

	entries, err := o.reader.ReadBrowser(scanCtx, p.name, p.start, p.end)
	if err == nil {
		entries, err = checkWindow(entries, p)
	}
	if err != nil && errors.Is(scanCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = model.Wrap(model.KindBrowserUnavailable, "read "+p.name,
			fmt.Errorf("scan timed out after %s: %w", o.scanTimeout, err))
	}

	o.finishScan(journalCtx, rec, len(entries), err)
	return scanResult{plan: p, entries: entries, err: err}
}

func (o *Orchestrator) beginScan(ctx context.Context, p scanPlan) *storage.Scan {
	if o.journal == nil {
		return nil
	}
	rec, err := o.journal.BeginScan(ctx, p.name, p.start, p.end)
	if err != nil {
		o.logger.Error("journal begin scan", "browser", p.name, "error", err)
		return nil
	}
	return rec
}

func (o *Orchestrator) finishScan(ctx context.Context, rec *storage.Scan, entries int, scanErr error) {
	if rec == nil {
		return
	}
	if scanErr != nil {
		rec.State = storage.ScanFailed
		rec.Error = scanErr.Error()
	} else {
		rec.State = storage.ScanSucceeded
		rec.Entries = entries
	}
	if err := o.journal.FinishScan(ctx, rec); err != nil {
		o.logger.Error("journal finish scan", "browser", rec.Browser, "scan", rec.ID, "error", err)
	}
}

// checkWindow rejects a reader that returns entries outside the window.
func checkWindow(entries []model.History, p scanPlan) ([]model.History, error) {
	for _, h := range entries {
		if h.LastVisited < p.start || h.LastVisited > p.end {
			return nil, model.Errorf(model.KindBrowserUnavailable, "read "+p.name,
				"entry %q at %d is outside [%d, %d]", h.URL, h.LastVisited, p.start, p.end)
		}
	}
	return entries, nil
}

func emptyResult() model.ReadResult {
	return model.ReadResult{Entries: []model.History{}, Diagnostics: []model.Diagnostic{}}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
