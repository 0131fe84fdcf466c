package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Config   *ConfigCommand
	Track    *TrackCommand
	Untrack  *UntrackCommand
	Discover *DiscoverCommand
	Read     *ReadCommand
	Sync     *SyncCommand
	Invoke   *InvokeCommand
	Serve    *ServeCommand
	Status   *StatusCommand
	Scans    *ScansCommand
	Prune    *PruneCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "browsync"
	parser.LongDescription = "Read browsing history out of locally installed browsers, tracking a sync cursor per browser."

	cmds := &commands{
		Config:   &ConfigCommand{globals: &globals, version: version},
		Track:    &TrackCommand{globals: &globals, version: version},
		Untrack:  &UntrackCommand{globals: &globals, version: version},
		Discover: &DiscoverCommand{globals: &globals, version: version},
		Read:     &ReadCommand{globals: &globals, version: version},
		Sync:     &SyncCommand{globals: &globals, version: version},
		Invoke:   &InvokeCommand{globals: &globals, version: version},
		Serve:    &ServeCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		Scans:    &ScansCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
	}

	parser.AddCommand("config", "Print the tracked browsers", "Print the tracked browsers and their sync cursors.", cmds.Config)
	parser.AddCommand("track", "Start tracking browsers", "Add one or more browsers to the tracked list with an empty cursor.", cmds.Track)
	parser.AddCommand("untrack", "Stop tracking browsers", "Remove one or more browsers from the tracked list.", cmds.Untrack)
	parser.AddCommand("discover", "List history databases on this machine", "List browser history databases found on this machine, optionally tracking them.", cmds.Discover)
	parser.AddCommand("read", "Read history from tracked browsers", "Read history entries visited within a time window from tracked browsers.", cmds.Read)
	parser.AddCommand("sync", "Read everything new since each cursor", "Read each tracked browser from its last sync up to now and advance the cursors.", cmds.Sync)
	parser.AddCommand("invoke", "Run a boundary command", "Run get_config, set_config or read_history with JSON arguments and print the JSON result.", cmds.Invoke)
	parser.AddCommand("serve", "Answer boundary commands on stdin", "Read newline-delimited JSON requests on stdin and write one JSON response per line to stdout.", cmds.Serve)
	parser.AddCommand("status", "Show scan journal statistics", "Show scan journal statistics, tracked browsers and storage paths.", cmds.Status)
	parser.AddCommand("scans", "List recent scan journal entries", "List recent scans newest first, or show a single scan when an ID is given.", cmds.Scans)
	parser.AddCommand("prune", "Remove old scan journal entries", "Remove finished scan journal entries older than the retention period.", cmds.Prune)

	return parser, &globals, cmds
}

// Run is the main entry point for the browsync CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("browsync %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
