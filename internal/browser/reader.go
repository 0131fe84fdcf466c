package browser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/browsync/internal/logging"
	"github.com/runnerr0/browsync/internal/model"
)

// tempPrefix names history copies so stale ones can be swept.
const tempPrefix = "history-"

// sqlite keeps recent writes in these sidecar files; they are copied along
// with the main database so the copy reflects what the browser committed.
var sidecars = []string{"-wal", "-journal"}

// Reader reads windowed history for named browsers. Live browsers keep
// their database locked, so every file is copied into tempDir first.
type Reader struct {
	locator  *Locator
	readers  map[Family]StorageReader
	tempDir  string
	denylist []string
	logger   *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithDenylist drops entries whose host is, or is a subdomain of, any of
// the given domains.
func WithDenylist(domains []string) Option {
	return func(r *Reader) {
		for _, d := range domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				r.denylist = append(r.denylist, d)
			}
		}
	}
}

// WithLogger sets the reader's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStorageReader registers or replaces the reader for a family.
func WithStorageReader(sr StorageReader) Option {
	return func(r *Reader) { r.readers[sr.Family()] = sr }
}

// NewReader returns a Reader using locator to find databases and tempDir
// to hold copies.
func NewReader(locator *Locator, tempDir string, opts ...Option) *Reader {
	r := &Reader{
		locator: locator,
		readers: map[Family]StorageReader{
			FamilyChromium: ChromiumReader{},
			FamilyFirefox:  FirefoxReader{},
		},
		tempDir: tempDir,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Known reports whether name maps to a supported schema.
func (r *Reader) Known(name string) bool {
	fam, ok := r.locator.Family(name)
	if !ok {
		return false
	}
	_, ok = r.readers[fam]
	return ok
}

// Discover lists history databases present on disk.
func (r *Reader) Discover() []Detected {
	return r.locator.Discover()
}

// ReadHistory reads every named browser in turn. A browser that fails is
// reported as a diagnostic and skipped. Unknown names are skipped too,
// unless every name is unknown, in which case the call fails.
//
// ReadHistory neither runs scans concurrently nor moves sync cursors.
// syncer.Orchestrator.ReadHistory is the concurrent path that journals each
// scan and commits cursors; it calls ReadBrowser once per browser.
func (r *Reader) ReadHistory(ctx context.Context, names []string, start, end int64) (model.ReadResult, error) {
	res := model.ReadResult{Entries: []model.History{}, Diagnostics: []model.Diagnostic{}}
	if start > end {
		return res, model.Errorf(model.KindInvalidArgument, "read_history", "start %d is after end %d", start, end)
	}

	unknown := 0
	for _, name := range names {
		entries, err := r.ReadBrowser(ctx, name, start, end)
		if err != nil {
			if errors.Is(err, model.ErrUnknownBrowser) {
				unknown++
			}
			res.Diagnostics = append(res.Diagnostics, DiagnosticFor(name, err))
			continue
		}
		res.Entries = append(res.Entries, entries...)
	}

	if len(names) > 0 && unknown == len(names) {
		return res, model.Errorf(model.KindUnknownBrowser, "read_history", "no requested browser is known: %s", strings.Join(names, ", "))
	}

	SortHistory(res.Entries)
	return res, nil
}

// ReadBrowser reads all of one browser's profile databases. Any failing
// profile fails the whole browser so its cursor is not advanced past
// entries that were never read.
func (r *Reader) ReadBrowser(ctx context.Context, name string, start, end int64) ([]model.History, error) {
	fam, ok := r.locator.Family(name)
	if !ok {
		return nil, model.Errorf(model.KindUnknownBrowser, "read "+name, "unknown browser %q", name)
	}
	sr, ok := r.readers[fam]
	if !ok {
		return nil, model.Errorf(model.KindUnknownBrowser, "read "+name, "no reader for family %q", fam)
	}

	paths, err := r.locator.Resolve(name)
	if err != nil {
		return nil, model.Wrap(model.KindBrowserUnavailable, "read "+name, err)
	}
	if len(paths) == 0 {
		return nil, model.Errorf(model.KindBrowserUnavailable, "read "+name, "no history database found")
	}

	var out []model.History
	for _, p := range paths {
		entries, err := r.readFile(ctx, sr, p, start, end)
		if err != nil {
			return nil, model.Wrap(model.KindBrowserUnavailable, "read "+name, fmt.Errorf("%s: %w", p, err))
		}
		r.logger.Debug("read history database", "browser", name, "path", p, "entries", len(entries))
		out = append(out, entries...)
	}

	return r.filter(out, start, end), nil
}

// CleanTemp removes history copies left behind by an interrupted run.
func (r *Reader) CleanTemp() error {
	matches, err := filepath.Glob(filepath.Join(r.tempDir, tempPrefix+"*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}

func (r *Reader) readFile(ctx context.Context, sr StorageReader, path string, start, end int64) ([]model.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := r.copyToTemp(path)
	if err != nil {
		return nil, err
	}
	defer removeCopy(tmp)

	// The copy is private, so it is opened read-write: SQLite needs to build
	// a -shm index to replay the copied -wal file.
	db, err := sql.Open("sqlite3", tmp)
	if err != nil {
		return nil, fmt.Errorf("open copy: %w", err)
	}
	defer db.Close()

	if err := sr.Check(ctx, db); err != nil {
		return nil, fmt.Errorf("not a %s history database: %w", sr.Family(), err)
	}
	return sr.Read(ctx, db, start, end)
}

// copyToTemp copies path and any sqlite sidecars into tempDir and returns
// the copy's path.
func (r *Reader) copyToTemp(path string) (string, error) {
	if err := os.MkdirAll(r.tempDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	dst, err := os.CreateTemp(r.tempDir, tempPrefix+"*.sqlite")
	if err != nil {
		return "", fmt.Errorf("create temp copy: %w", err)
	}
	dstPath := dst.Name()

	if err := copyInto(dst, path); err != nil {
		dst.Close()
		removeCopy(dstPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		removeCopy(dstPath)
		return "", fmt.Errorf("close temp copy: %w", err)
	}

	for _, suffix := range sidecars {
		if _, err := os.Stat(path + suffix); err != nil {
			continue
		}
		f, err := os.Create(dstPath + suffix)
		if err != nil {
			removeCopy(dstPath)
			return "", fmt.Errorf("create sidecar copy: %w", err)
		}
		err = copyInto(f, path+suffix)
		f.Close()
		if err != nil {
			removeCopy(dstPath)
			return "", err
		}
	}

	return dstPath, nil
}

func copyInto(dst io.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("copy history database: %w", err)
	}
	return nil
}

func removeCopy(path string) {
	os.Remove(path) //nolint:errcheck
	for _, suffix := range []string{"-wal", "-journal", "-shm"} {
		os.Remove(path + suffix) //nolint:errcheck
	}
}

// filter drops entries outside [start, end] and denylisted hosts.
func (r *Reader) filter(entries []model.History, start, end int64) []model.History {
	out := make([]model.History, 0, len(entries))
	for _, h := range entries {
		if h.LastVisited < start || h.LastVisited > end {
			continue
		}
		if r.denied(h.URL) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (r *Reader) denied(rawURL string) bool {
	if len(r.denylist) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range r.denylist {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// DiagnosticFor converts a per-browser failure into a diagnostic.
func DiagnosticFor(name string, err error) model.Diagnostic {
	kind := model.KindOf(err)
	if kind == "" {
		kind = model.KindBrowserUnavailable
	}
	return model.Diagnostic{Browser: name, Kind: kind, Message: err.Error()}
}
