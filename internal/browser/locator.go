// Package browser finds browser history databases on disk and reads
// windowed history entries out of them.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/runnerr0/browsync/internal/config"
)

// Family identifies a history database schema shared by several browsers.
type Family string

const (
	FamilyChromium Family = "chromium"
	FamilyFirefox  Family = "firefox"
)

// ParseFamily validates a family name from settings.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyChromium, FamilyFirefox:
		return Family(s), nil
	default:
		return "", fmt.Errorf("unknown browser family %q (use chromium or firefox)", s)
	}
}

// Location is a glob pattern where a browser keeps its history databases.
// Relative patterns are resolved against the user's home directory.
type Location struct {
	Name    string
	Family  Family
	Pattern string
}

// Detected is a history database found on disk.
type Detected struct {
	Name   string `json:"name"`
	Family Family `json:"family"`
	Path   string `json:"path"`
}

// builtinLocations maps GOOS to the locations of well-known browsers.
var builtinLocations = map[string][]Location{
	"windows": {
		{"Google Chrome", FamilyChromium, "AppData/Local/Google/Chrome/User Data/*/History"},
		{"Microsoft Edge", FamilyChromium, "AppData/Local/Microsoft/Edge/User Data/*/History"},
		{"Arc", FamilyChromium, "AppData/Local/Packages/TheBrowserCompany.Arc_*/LocalCache/Local/Arc/User Data/*/History"},
		{"Brave", FamilyChromium, "AppData/Local/BraveSoftware/Brave-Browser/User Data/*/History"},
		{"Vivaldi", FamilyChromium, "AppData/Local/Vivaldi/User Data/*/History"},
		{"Firefox", FamilyFirefox, "AppData/Roaming/Mozilla/Firefox/Profiles/*/places.sqlite"},
	},
	"darwin": {
		{"Google Chrome", FamilyChromium, "Library/Application Support/Google/Chrome/*/History"},
		{"Microsoft Edge", FamilyChromium, "Library/Application Support/Microsoft Edge/*/History"},
		{"Arc", FamilyChromium, "Library/Application Support/Arc/User Data/*/History"},
		{"Brave", FamilyChromium, "Library/Application Support/BraveSoftware/Brave-Browser/*/History"},
		{"Vivaldi", FamilyChromium, "Library/Application Support/Vivaldi/*/History"},
		{"Firefox", FamilyFirefox, "Library/Application Support/Firefox/Profiles/*/places.sqlite"},
	},
	"linux": {
		{"Google Chrome", FamilyChromium, ".config/google-chrome/*/History"},
		{"Chromium", FamilyChromium, ".config/chromium/*/History"},
		{"Microsoft Edge", FamilyChromium, ".config/microsoft-edge/*/History"},
		{"Brave", FamilyChromium, ".config/BraveSoftware/Brave-Browser/*/History"},
		{"Vivaldi", FamilyChromium, ".config/vivaldi/*/History"},
		{"Firefox", FamilyFirefox, ".mozilla/firefox/*/places.sqlite"},
		{"Firefox", FamilyFirefox, "snap/firefox/common/.mozilla/firefox/*/places.sqlite"},
	},
}

// Locator resolves browser names to history database files.
type Locator struct {
	home      string
	locations []Location
}

// NewLocator builds a Locator for the given home directory and GOOS, with
// extra locations appended after the built-in ones.
func NewLocator(home, goos string, extra []Location) *Locator {
	locs := append([]Location{}, builtinLocations[goos]...)
	locs = append(locs, extra...)
	return &Locator{home: home, locations: locs}
}

// NewDefaultLocator builds a Locator for the current user and platform,
// adding any extra locations from settings.
func NewDefaultLocator(extra []config.BrowserLocation) (*Locator, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	locs := make([]Location, 0, len(extra))
	for _, e := range extra {
		fam, err := ParseFamily(e.Family)
		if err != nil {
			return nil, fmt.Errorf("browser location %q: %w", e.Name, err)
		}
		pattern, err := config.ExpandPath(e.Pattern)
		if err != nil {
			return nil, err
		}
		locs = append(locs, Location{Name: e.Name, Family: fam, Pattern: pattern})
	}
	return NewLocator(home, runtime.GOOS, locs), nil
}

// Family returns the schema family for a browser name.
func (l *Locator) Family(name string) (Family, bool) {
	for _, loc := range l.locations {
		if loc.Name == name {
			return loc.Family, true
		}
	}
	return "", false
}

// Names returns every browser name the locator knows, in table order.
func (l *Locator) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, loc := range l.locations {
		if !seen[loc.Name] {
			seen[loc.Name] = true
			names = append(names, loc.Name)
		}
	}
	return names
}

// Resolve returns the history database files present for name, sorted.
func (l *Locator) Resolve(name string) ([]string, error) {
	var out []string
	for _, loc := range l.locations {
		if loc.Name != name {
			continue
		}
		matches, err := l.glob(loc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", loc.Pattern, err)
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

// Discover lists every history database found for every known browser.
func (l *Locator) Discover() []Detected {
	var out []Detected
	for _, name := range l.Names() {
		paths, err := l.Resolve(name)
		if err != nil {
			continue
		}
		fam, _ := l.Family(name)
		for _, p := range paths {
			out = append(out, Detected{Name: name, Family: fam, Path: p})
		}
	}
	return out
}

// DetectedNames returns the distinct browser names with at least one
// database on disk.
func DetectedNames(found []Detected) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range found {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	return names
}

func (l *Locator) glob(pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(l.home, pattern)
	}

	matches, err := doublestar.FilepathGlob(full)
	if err != nil {
		return nil, err
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}
