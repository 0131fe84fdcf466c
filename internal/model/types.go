package model

// Browser is a tracked browser and its sync cursor. LastSync is epoch millis.
type Browser struct {
	Name     string `json:"name"`
	LastSync int64  `json:"last_sync"`
}

// Config is the persisted list of tracked browsers.
type Config struct {
	Browsers []Browser `json:"browsers"`
}

// Names returns the tracked browser names in config order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Browsers))
	for _, b := range c.Browsers {
		names = append(names, b.Name)
	}
	return names
}

// Find returns the entry with the given name.
func (c Config) Find(name string) (Browser, bool) {
	for _, b := range c.Browsers {
		if b.Name == name {
			return b, true
		}
	}
	return Browser{}, false
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c Config) Clone() Config {
	out := Config{Browsers: make([]Browser, len(c.Browsers))}
	copy(out.Browsers, c.Browsers)
	return out
}

// History is a single visited page. LastVisited is epoch millis.
type History struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	LastVisited int64  `json:"last_visited"`
}

// Diagnostic is a non-fatal, per-browser problem reported alongside results.
type Diagnostic struct {
	Browser string `json:"browser"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ReadResult is the outcome of a history read: merged entries plus any
// per-browser diagnostics.
type ReadResult struct {
	Entries     []History    `json:"entries"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}
