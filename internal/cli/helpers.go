package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/runnerr0/browsync/internal/browser"
	"github.com/runnerr0/browsync/internal/config"
	"github.com/runnerr0/browsync/internal/invoke"
	"github.com/runnerr0/browsync/internal/logging"
	"github.com/runnerr0/browsync/internal/profile"
	"github.com/runnerr0/browsync/internal/storage"
	"github.com/runnerr0/browsync/internal/syncer"
)

// app bundles everything a command needs, wired from settings.
type app struct {
	settings *config.Settings
	logger   *slog.Logger

	profiles *profile.Manager
	reader   *browser.Reader
	syncer   *syncer.Orchestrator
	journal  *storage.SQLiteJournal
	db       *sql.DB

	configPath  string
	journalPath string

	closers []io.Closer
}

// openApp loads settings (from --settings or the default path) and wires
// the engine for the current user.
func openApp(globals *GlobalFlags) (*app, error) {
	var settings *config.Settings
	var err error
	if globals != nil && globals.Settings != "" {
		path, perr := config.ExpandPath(globals.Settings)
		if perr != nil {
			return nil, perr
		}
		settings, err = config.LoadOrCreateAt(path)
	} else {
		settings, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logCfg := settings.Logging
	if globals != nil && globals.Verbose {
		logCfg.Level = "debug"
	}
	logger, logCloser, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	locator, err := browser.NewDefaultLocator(settings.Browsers.ExtraLocations)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	a, err := newApp(settings, locator, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	a.closers = append(a.closers, logCloser)
	return a, nil
}

// newApp wires the engine from settings and a locator.
func newApp(settings *config.Settings, locator *browser.Locator, logger *slog.Logger) (*app, error) {
	configPath, err := settings.ConfigPath()
	if err != nil {
		return nil, err
	}
	journalPath, err := settings.JournalPath()
	if err != nil {
		return nil, err
	}
	tempPath, err := settings.TempPath()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(journalPath, settings.Storage.SQLiteJournalMode)
	if err != nil {
		return nil, err
	}
	journal, err := storage.NewSQLiteJournal(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	reader := browser.NewReader(locator, tempPath,
		browser.WithDenylist(settings.Denylist()),
		browser.WithLogger(logger),
	)
	if err := reader.CleanTemp(); err != nil {
		logger.Warn("clean temp copies", "dir", tempPath, "error", err)
	}

	profiles := profile.NewManager(profile.NewFileStore(configPath))
	orch := syncer.New(profiles, reader,
		syncer.WithJournal(journal),
		syncer.WithParallelism(settings.Sync.Parallelism),
		syncer.WithScanTimeout(settings.ScanTimeout()),
		syncer.WithLogger(logger),
	)

	return &app{
		settings:    settings,
		logger:      logger,
		profiles:    profiles,
		reader:      reader,
		syncer:      orch,
		journal:     journal,
		db:          db,
		configPath:  configPath,
		journalPath: journalPath,
	}, nil
}

// dispatcher exposes the engine through the boundary commands.
func (a *app) dispatcher() *invoke.Dispatcher {
	return invoke.NewDispatcher(a.profiles, a.syncer, a.logger)
}

// Close releases the journal and any log file.
func (a *app) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// withApp runs fn with the injected app, or opens one from settings and
// closes it afterwards. The context is cancelled on SIGINT/SIGTERM.
func withApp(globals *GlobalFlags, injected *app, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if injected != nil {
		return fn(ctx, injected)
	}

	a, err := openApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func jsonOutput(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	var unit time.Duration
	switch suffix {
	case 'd':
		unit = 24 * time.Hour
	case 'h':
		unit = time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'm':
		unit = time.Minute
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
	if int64(n) > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("invalid duration: %q is too large", s)
	}
	return time.Duration(n) * unit, nil
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatMillis renders an epoch-millisecond cursor in local time.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	b.WriteString(sign)
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// plural prefixes word with n, pluralizing it unless n is 1.
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	}
	return fmt.Sprintf("%d %ss", n, word)
}
