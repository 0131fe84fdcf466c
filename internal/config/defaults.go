package config

// DefaultSettings returns Settings populated with all default values.
func DefaultSettings() *Settings {
	return &Settings{
		Storage: StorageConfig{
			Path:              "~/.config/browsync",
			ConfigFile:        "config.json",
			JournalFile:       "journal.db",
			TempDir:           "temp",
			SQLiteJournalMode: "wal",
		},
		Sync: SyncConfig{
			Parallelism:          4,
			ScanTimeoutSeconds:   30,
			JournalRetentionDays: 30,
		},
		Browsers: BrowsersConfig{
			ExtraLocations: []BrowserLocation{},
		},
		Filter: FilterConfig{
			DenylistDomains:    []string{},
			UseDefaultDenylist: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}
