package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/browsync/internal/storage"
)

// scanJSON is the JSON form of one journal row.
type scanJSON struct {
	ID          string `json:"id"`
	Browser     string `json:"browser"`
	State       string `json:"state"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
	Entries     int    `json:"entries"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

func toScanJSON(s storage.Scan) scanJSON {
	out := scanJSON{
		ID:          s.ID,
		Browser:     s.Browser,
		State:       string(s.State),
		WindowStart: s.WindowStart,
		WindowEnd:   s.WindowEnd,
		Entries:     s.Entries,
		Error:       s.Error,
		StartedAt:   s.StartedAt.UTC().Format(time.RFC3339),
	}
	if !s.FinishedAt.IsZero() {
		out.FinishedAt = s.FinishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// Execute implements the go-flags Commander interface for ScansCommand.
func (c *ScansCommand) Execute(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: browsync scans [SCAN-ID]")
	}
	q := storage.ScanQuery{Browser: c.Browser, Limit: c.Limit}
	if c.Failed {
		q.State = storage.ScanFailed
	}
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		q.Since = time.Now().Add(-dur)
	}

	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		if len(args) == 1 {
			return c.show(ctx, a.journal, args[0])
		}
		return c.list(ctx, a.journal, q)
	})
}

func (c *ScansCommand) list(ctx context.Context, j storage.Journal, q storage.ScanQuery) error {
	scans, err := j.ListScans(ctx, q)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		out := make([]scanJSON, 0, len(scans))
		for _, s := range scans {
			out = append(out, toScanJSON(s))
		}
		return printJSON(out)
	}

	if len(scans) == 0 {
		fmt.Println("No scans recorded.")
		return nil
	}
	fmt.Printf("%-36s  %-20s  %-9s  %7s  %s\n", "ID", "BROWSER", "STATE", "ENTRIES", "STARTED")
	for _, s := range scans {
		fmt.Printf("%-36s  %-20s  %-9s  %7s  %s\n",
			s.ID, s.Browser, s.State, formatNumber(int64(s.Entries)),
			s.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (c *ScansCommand) show(ctx context.Context, j storage.Journal, id string) error {
	s, err := j.GetScan(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(toScanJSON(*s))
	}

	fmt.Printf("Scan:     %s\n", s.ID)
	fmt.Printf("Browser:  %s\n", s.Browser)
	fmt.Printf("State:    %s\n", s.State)
	fmt.Printf("Window:   %d .. %d (epoch ms)\n", s.WindowStart, s.WindowEnd)
	fmt.Printf("Entries:  %s\n", formatNumber(int64(s.Entries)))
	fmt.Printf("Started:  %s\n", s.StartedAt.Local().Format(time.RFC3339))
	if !s.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s (%s)\n", s.FinishedAt.Local().Format(time.RFC3339),
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	if s.Error != "" {
		fmt.Printf("Error:    %s\n", s.Error)
	}
	return nil
}
