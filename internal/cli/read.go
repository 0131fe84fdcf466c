package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/browsync/internal/model"
)

type readJSON struct {
	Count       int                `json:"count"`
	Start       int64              `json:"start"`
	End         int64              `json:"end"`
	Entries     []model.History    `json:"entries"`
	Diagnostics []model.Diagnostic `json:"diagnostics"`
}

// Execute implements the go-flags Commander interface for ReadCommand.
func (c *ReadCommand) Execute(args []string) error {
	start, end, err := c.window(time.Now())
	if err != nil {
		return err
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return c.run(ctx, a, start, end)
	})
}

// window resolves the flags into an epoch-millisecond range.
func (c *ReadCommand) window(now time.Time) (int64, int64, error) {
	end := now.UnixMilli()
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		end = now.Add(-dur).UnixMilli()
	}
	if c.End != nil {
		end = *c.End
	}

	var start int64
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		start = now.Add(-dur).UnixMilli()
	}
	if c.Start != nil {
		start = *c.Start
	}

	if start > end {
		return 0, 0, fmt.Errorf("window start %d is after end %d", start, end)
	}
	return start, end, nil
}

func (c *ReadCommand) run(ctx context.Context, a *app, start, end int64) error {
	names := c.Browser
	if len(names) == 0 {
		cfg, err := a.profiles.GetConfig(ctx)
		if err != nil {
			return err
		}
		names = cfg.Names()
		if len(names) == 0 {
			return fmt.Errorf("no browsers tracked; run `browsync discover --track` first")
		}
	}

	res, err := a.syncer.ReadHistory(ctx, names, start, end)
	if err != nil {
		printDiagnostics(res.Diagnostics)
		return err
	}

	entries := res.Entries
	if c.Limit > 0 && len(entries) > c.Limit {
		entries = entries[len(entries)-c.Limit:]
	}

	if jsonOutput(c.globals) {
		return printJSON(readJSON{
			Count:       len(entries),
			Start:       start,
			End:         end,
			Entries:     entries,
			Diagnostics: res.Diagnostics,
		})
	}

	printDiagnostics(res.Diagnostics)
	printEntries(entries)
	return nil
}

// Execute implements the go-flags Commander interface for SyncCommand.
func (c *SyncCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return c.run(ctx, a, time.Now().UnixMilli())
	})
}

func (c *SyncCommand) run(ctx context.Context, a *app, now int64) error {
	res, err := a.syncer.Sync(ctx, now)
	if err != nil {
		printDiagnostics(res.Diagnostics)
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(readJSON{
			Count:       len(res.Entries),
			End:         now,
			Entries:     res.Entries,
			Diagnostics: res.Diagnostics,
		})
	}

	printDiagnostics(res.Diagnostics)
	printEntries(res.Entries)
	fmt.Printf("\nSynced %s.\n", plural(len(res.Entries), "new entry"))
	return nil
}

func printDiagnostics(diags []model.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "Warning: %s: %s: %s\n", d.Browser, d.Kind, d.Message)
	}
}

func printEntries(entries []model.History) {
	if len(entries) == 0 {
		fmt.Println("No history entries in window.")
		return
	}
	for _, h := range entries {
		title := h.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n", time.UnixMilli(h.LastVisited).Local().Format("2006-01-02 15:04"), title)
		fmt.Printf("                  %s\n", h.URL)
	}
}
