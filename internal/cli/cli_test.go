package cli

import (
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly builds a parser whose commands are matched but not executed.
func parseOnly(t *testing.T, args ...string) (*GlobalFlags, *commands, goflags.Commander) {
	t.Helper()
	p, globals, cmds := buildParser("test")
	var matched goflags.Commander
	p.CommandHandler = func(cmd goflags.Commander, _ []string) error {
		matched = cmd
		return nil
	}
	_, err := p.ParseArgs(args)
	require.NoError(t, err)
	return globals, cmds, matched
}

func TestVersionFlag(t *testing.T) {
	output := captureOutput(t, func() {
		err := RunWithArgs("0.1.0-test", []string{"--version"})
		assert.NoError(t, err)
	})
	assert.Contains(t, output, "browsync 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})
	assert.Equal(t, "browsync 1.2.3", strings.TrimSpace(output))
}

func TestSubcommandsRecognized(t *testing.T) {
	cases := [][]string{
		{"config"},
		{"track", "Firefox"},
		{"untrack", "Firefox"},
		{"discover", "--track"},
		{"read", "--browser", "Firefox"},
		{"sync"},
		{"invoke", "get_config"},
		{"serve"},
		{"status"},
		{"scans", "--failed"},
		{"prune", "--dry-run"},
	}
	for _, args := range cases {
		t.Run(args[0], func(t *testing.T) {
			_, _, matched := parseOnly(t, args...)
			assert.NotNil(t, matched)
		})
	}
}

func TestMatchedCommandTypes(t *testing.T) {
	_, cmds, matched := parseOnly(t, "read")
	assert.Same(t, cmds.Read, matched)

	_, cmds, matched = parseOnly(t, "prune")
	assert.Same(t, cmds.Prune, matched)

	_, cmds, matched = parseOnly(t, "serve")
	assert.Same(t, cmds.Serve, matched)
}

func TestGlobalFlags(t *testing.T) {
	globals, _, _ := parseOnly(t, "--json", "--verbose", "--settings", "/tmp/browsync.yaml", "status")
	assert.True(t, globals.JSON)
	assert.True(t, globals.Verbose)
	assert.Equal(t, "/tmp/browsync.yaml", globals.Settings)
}

func TestReadFlagsDefaults(t *testing.T) {
	_, c, _ := parseOnly(t, "read")
	assert.Equal(t, "7d", c.Read.Since)
	assert.Empty(t, c.Read.Until)
	assert.Nil(t, c.Read.Start)
	assert.Nil(t, c.Read.End)
	assert.Equal(t, 0, c.Read.Limit)
}

func TestReadBrowserFlagRepeatable(t *testing.T) {
	_, c, _ := parseOnly(t, "read", "--browser", "Firefox", "--browser", "Brave", "--start", "10", "--end", "20")
	assert.Equal(t, []string{"Firefox", "Brave"}, c.Read.Browser)
	require.NotNil(t, c.Read.Start)
	require.NotNil(t, c.Read.End)
	assert.Equal(t, int64(10), *c.Read.Start)
	assert.Equal(t, int64(20), *c.Read.End)
}

func TestReadExplicitZeroStart(t *testing.T) {
	_, c, _ := parseOnly(t, "read", "--start", "0", "--end", "2000")
	require.NotNil(t, c.Read.Start)
	assert.Equal(t, int64(0), *c.Read.Start)
	require.NotNil(t, c.Read.End)
	assert.Equal(t, int64(2000), *c.Read.End)
}

func TestPruneFlags(t *testing.T) {
	_, c, _ := parseOnly(t, "prune", "--dry-run", "--older-than", "14d", "--force")
	assert.True(t, c.Prune.DryRun)
	assert.True(t, c.Prune.Force)
	assert.Equal(t, "14d", c.Prune.OlderThan)
}

func TestScansFlagsDefaults(t *testing.T) {
	_, c, _ := parseOnly(t, "scans")
	assert.Equal(t, 20, c.Scans.Limit)
	assert.False(t, c.Scans.Failed)
	assert.Empty(t, c.Scans.Browser)
}

func TestDiscoverTrackFlag(t *testing.T) {
	_, c, _ := parseOnly(t, "discover", "--track")
	assert.True(t, c.Discover.Track)
}

func TestTrackRequiresNames(t *testing.T) {
	err := RunWithArgs("test", []string{"track"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one browser name is required")
}

func TestUntrackRequiresNames(t *testing.T) {
	err := RunWithArgs("test", []string{"untrack"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one browser name is required")
}

func TestInvokeRequiresCommand(t *testing.T) {
	err := RunWithArgs("test", []string{"invoke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: browsync invoke")
}

func TestInvokeRejectsInvalidJSON(t *testing.T) {
	err := RunWithArgs("test", []string{"invoke", "read_history", "{not json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestReadRejectsBadSince(t *testing.T) {
	err := RunWithArgs("test", []string{"read", "--since", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")
}

func TestPruneRejectsBadOlderThan(t *testing.T) {
	err := RunWithArgs("test", []string{"prune", "--older-than", "invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestUnknownSubcommandFails(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"nonexistent"})
	require.Error(t, err)
}
