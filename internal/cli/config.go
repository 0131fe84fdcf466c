package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/browsync/internal/model"
)

// Execute implements the go-flags Commander interface for ConfigCommand.
func (c *ConfigCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *ConfigCommand) run(ctx context.Context, a *app) error {
	cfg, err := a.profiles.GetConfig(ctx)
	if err != nil {
		return err
	}
	if jsonOutput(c.globals) {
		if cfg.Browsers == nil {
			cfg.Browsers = []model.Browser{}
		}
		return printJSON(cfg)
	}
	printTracked(cfg)
	return nil
}

func printTracked(cfg model.Config) {
	if len(cfg.Browsers) == 0 {
		fmt.Println("No browsers tracked. Run `browsync discover --track` or `browsync track NAME`.")
		return
	}
	fmt.Printf("%-20s %s\n", "BROWSER", "LAST SYNC")
	for _, b := range cfg.Browsers {
		fmt.Printf("%-20s %s\n", b.Name, formatMillis(b.LastSync))
	}
}

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one browser name is required")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		for _, name := range args {
			if !a.reader.Known(name) {
				fmt.Fprintf(os.Stderr, "Warning: no history location known for %q on this platform\n", name)
			}
		}

		cfg, added, err := a.profiles.Seed(ctx, args)
		if err != nil {
			return err
		}
		if jsonOutput(c.globals) {
			return printJSON(cfg)
		}
		fmt.Printf("Tracking %s (%s added)\n", plural(len(cfg.Browsers), "browser"), formatNumber(int64(added)))
		return nil
	})
}

// Execute implements the go-flags Commander interface for UntrackCommand.
func (c *UntrackCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one browser name is required")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		before, err := a.profiles.GetConfig(ctx)
		if err != nil {
			return err
		}
		cfg, err := a.profiles.Remove(ctx, args)
		if err != nil {
			return err
		}
		if jsonOutput(c.globals) {
			if cfg.Browsers == nil {
				cfg.Browsers = []model.Browser{}
			}
			return printJSON(cfg)
		}
		removed := len(before.Browsers) - len(cfg.Browsers)
		fmt.Printf("Stopped tracking %s", plural(removed, "browser"))
		if len(cfg.Browsers) > 0 {
			fmt.Printf("; still tracking %s", strings.Join(cfg.Names(), ", "))
		}
		fmt.Println()
		return nil
	})
}
