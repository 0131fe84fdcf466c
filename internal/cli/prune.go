package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type pruneJSON struct {
	Pruned    int64  `json:"pruned"`
	DryRun    bool   `json:"dry_run"`
	OlderThan string `json:"older_than"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	var olderThan time.Duration
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return err
		}
		olderThan = d
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		if olderThan == 0 {
			days := a.settings.Sync.JournalRetentionDays
			if days <= 0 {
				days = 30
			}
			olderThan = time.Duration(days) * 24 * time.Hour
		}
		return c.run(ctx, a, olderThan, time.Now())
	})
}

func (c *PruneCommand) run(ctx context.Context, a *app, olderThan time.Duration, now time.Time) error {
	cutoff := now.Add(-olderThan)
	human := formatDurationHuman(olderThan)

	n, err := a.journal.CountFinishedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if c.DryRun {
		if jsonOutput(c.globals) {
			return printJSON(pruneJSON{Pruned: n, DryRun: true, OlderThan: human})
		}
		fmt.Printf("[DRY RUN] Would prune %s older than %s\n", plural(int(n), "scan"), human)
		return nil
	}

	if n == 0 {
		if jsonOutput(c.globals) {
			return printJSON(pruneJSON{Pruned: 0, OlderThan: human})
		}
		fmt.Println("No scans to prune")
		return nil
	}

	if !c.Force && !jsonOutput(c.globals) {
		fmt.Printf("Prune %s older than %s? Proceed? [y/N] ", plural(int(n), "scan"), human)
		if !confirm(c.input()) {
			fmt.Println("Aborted")
			return nil
		}
	}

	pruned, err := a.journal.PruneFinished(ctx, cutoff)
	if err != nil {
		return err
	}
	a.logger.Info("pruned scan journal", "scans", pruned, "older_than", human)

	if jsonOutput(c.globals) {
		return printJSON(pruneJSON{Pruned: pruned, OlderThan: human})
	}
	fmt.Printf("Pruned %s older than %s\n", plural(int(pruned), "scan"), human)
	return nil
}

func (c *PruneCommand) input() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// confirm reads one line and reports whether it is a yes.
func confirm(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
