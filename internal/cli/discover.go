package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/browsync/internal/browser"
)

type discoverJSON struct {
	Found []browser.Detected `json:"found"`
	Added int                `json:"added"`
}

// Execute implements the go-flags Commander interface for DiscoverCommand.
func (c *DiscoverCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *DiscoverCommand) run(ctx context.Context, a *app) error {
	found := a.reader.Discover()
	if found == nil {
		found = []browser.Detected{}
	}

	added := 0
	if c.Track && len(found) > 0 {
		var err error
		_, added, err = a.profiles.Seed(ctx, browser.DetectedNames(found))
		if err != nil {
			return err
		}
	}

	if jsonOutput(c.globals) {
		return printJSON(discoverJSON{Found: found, Added: added})
	}

	if len(found) == 0 {
		fmt.Println("No browser history databases found.")
		return nil
	}
	fmt.Printf("Found %s:\n", plural(len(found), "history database"))
	for _, d := range found {
		fmt.Printf("  %-16s %-9s %s\n", d.Name, d.Family, d.Path)
	}
	if c.Track {
		fmt.Printf("\nNow tracking %s more.\n", plural(added, "browser"))
	}
	return nil
}
