package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Settings string `long:"settings" description:"Path to settings file" default:""`
	JSON     bool   `long:"json" description:"Output in JSON format"`
	Verbose  bool   `long:"verbose" description:"Enable debug logging"`
	Version  bool   `long:"version" description:"Show version and exit"`
}

// ConfigCommand: print the tracked browsers.
type ConfigCommand struct {
	globals *GlobalFlags
	version string
	app     *app // injectable for testing; nil means open from settings
}

// TrackCommand: add browsers to the tracked list.
type TrackCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// UntrackCommand: remove browsers from the tracked list.
type UntrackCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// DiscoverCommand: list detected history databases.
type DiscoverCommand struct {
	Track bool `long:"track" description:"Track every detected browser that is not tracked yet"`

	globals *GlobalFlags
	version string
	app     *app
}

// ReadCommand: read history within a window.
type ReadCommand struct {
	Browser []string `long:"browser" description:"Browser to read (repeatable, default: all tracked)"`
	Since   string   `long:"since" description:"Window start as a duration before now (e.g., 7d, 24h, 2w)" default:"7d"`
	Until   string   `long:"until" description:"Window end as a duration before now (default: now)"`
	Start   *int64   `long:"start" description:"Window start in epoch milliseconds (overrides --since)"`
	End     *int64   `long:"end" description:"Window end in epoch milliseconds (overrides --until)"`
	Limit   int      `long:"limit" description:"Maximum entries to print (0 = all)" default:"0"`

	globals *GlobalFlags
	version string
	app     *app
}

// SyncCommand: read everything new since each browser's cursor.
type SyncCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// InvokeCommand: run one boundary command.
type InvokeCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// ServeCommand: answer boundary commands over stdin/stdout.
type ServeCommand struct {
	globals *GlobalFlags
	version string
	app     *app
	stdin   io.Reader // injectable for testing; nil means os.Stdin
	stdout  io.Writer // injectable for testing; nil means os.Stdout
}

// StatusCommand: show journal statistics and tracked browsers.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// ScansCommand: list recent journal rows, or show one by ID.
type ScansCommand struct {
	Browser string `long:"browser" description:"Only scans of this browser"`
	Failed  bool   `long:"failed" description:"Only failed scans"`
	Since   string `long:"since" description:"Only scans started within this duration (e.g., 24h, 7d)"`
	Limit   int    `long:"limit" description:"Maximum scans to list" default:"20"`

	globals *GlobalFlags
	version string
	app     *app
}

// PruneCommand: remove old finished scans from the journal.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`
	Force     bool   `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	app     *app
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}
