package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/browsync/internal/model"
	"github.com/runnerr0/browsync/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string              `json:"version"`
	ConfigPath        string              `json:"config_path"`
	JournalPath       string              `json:"journal_path"`
	DatabaseSizeBytes int64               `json:"database_size_bytes"`
	TotalScans        int64               `json:"total_scans"`
	Succeeded         int64               `json:"succeeded"`
	Failed            int64               `json:"failed"`
	InProgress        int64               `json:"in_progress"`
	OldestScan        string              `json:"oldest_scan,omitempty"`
	NewestScan        string              `json:"newest_scan,omitempty"`
	RetentionDays     int                 `json:"retention_days"`
	Browsers          []browserStatusJSON `json:"browsers"`
}

type browserStatusJSON struct {
	Name        string `json:"name"`
	LastSync    int64  `json:"last_sync"`
	Scans       int64  `json:"scans"`
	Failed      int64  `json:"failed"`
	Entries     int64  `json:"entries"`
	LastSuccess string `json:"last_success,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *StatusCommand) run(ctx context.Context, a *app) error {
	stats, err := a.journal.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	cfg, err := a.profiles.GetConfig(ctx)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return c.printStatusJSON(a, stats, cfg)
	}
	return c.printStatusHuman(a, stats, cfg)
}

// browserRows joins tracked browsers with their journal stats. Browsers
// that were scanned but are no longer tracked are listed after them.
func browserRows(stats *storage.Stats, cfg model.Config) []browserStatusJSON {
	byName := make(map[string]storage.BrowserStats, len(stats.Browsers))
	for _, b := range stats.Browsers {
		byName[b.Browser] = b
	}

	rows := make([]browserStatusJSON, 0, len(cfg.Browsers)+len(stats.Browsers))
	seen := make(map[string]bool, len(cfg.Browsers))
	add := func(name string, lastSync int64, bs storage.BrowserStats) {
		row := browserStatusJSON{
			Name:     name,
			LastSync: lastSync,
			Scans:    bs.Scans,
			Failed:   bs.Failed,
			Entries:  bs.Entries,
		}
		if !bs.LastSuccess.IsZero() {
			row.LastSuccess = bs.LastSuccess.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	for _, b := range cfg.Browsers {
		seen[b.Name] = true
		add(b.Name, b.LastSync, byName[b.Name])
	}
	for _, bs := range stats.Browsers {
		if !seen[bs.Browser] {
			add(bs.Browser, 0, bs)
		}
	}
	return rows
}

func (c *StatusCommand) printStatusHuman(a *app, stats *storage.Stats, cfg model.Config) error {
	fmt.Println("Browsync Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Config:        %s\n", a.configPath)
	fmt.Printf("Journal:       %s (%s)\n", a.journalPath, formatBytes(stats.DatabaseSizeBytes))
	fmt.Printf("Scans:         %s\n", formatNumber(stats.TotalScans))

	if stats.TotalScans > 0 {
		pct := float64(stats.Succeeded) / float64(stats.TotalScans) * 100
		fmt.Printf("Succeeded:     %s (%.1f%%)\n", formatNumber(stats.Succeeded), pct)
		fmt.Printf("Failed:        %s\n", formatNumber(stats.Failed))
		if stats.InProgress > 0 {
			fmt.Printf("In progress:   %s\n", formatNumber(stats.InProgress))
		}
		fmt.Printf("Oldest:        %s\n", stats.OldestScan.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestScan.Local().Format("2006-01-02"))
	}

	fmt.Printf("Retention:     %d days\n", a.settings.Sync.JournalRetentionDays)

	rows := browserRows(stats, cfg)
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println("No browsers tracked.")
		return nil
	}
	fmt.Println("Browsers:")
	for _, r := range rows {
		fmt.Printf("  %-20s last sync %-19s  scans %-6s failed %s\n",
			r.Name, formatMillis(r.LastSync), formatNumber(r.Scans), formatNumber(r.Failed))
	}
	return nil
}

func (c *StatusCommand) printStatusJSON(a *app, stats *storage.Stats, cfg model.Config) error {
	out := statusJSON{
		Version:           c.version,
		ConfigPath:        a.configPath,
		JournalPath:       a.journalPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		TotalScans:        stats.TotalScans,
		Succeeded:         stats.Succeeded,
		Failed:            stats.Failed,
		InProgress:        stats.InProgress,
		RetentionDays:     a.settings.Sync.JournalRetentionDays,
		Browsers:          browserRows(stats, cfg),
	}

	if stats.TotalScans > 0 {
		out.OldestScan = stats.OldestScan.UTC().Format(time.RFC3339)
		out.NewestScan = stats.NewestScan.UTC().Format(time.RFC3339)
	}

	return printJSON(out)
}
