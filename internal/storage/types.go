package storage

import "time"

// ScanState is the lifecycle of one browser scan.
type ScanState string

const (
	ScanScanning  ScanState = "scanning"
	ScanSucceeded ScanState = "succeeded"
	ScanFailed    ScanState = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ScanState) Terminal() bool {
	return s == ScanSucceeded || s == ScanFailed
}

// Scan records one attempt to read a browser's history for a window.
type Scan struct {
	ID          string
	Browser     string
	State       ScanState
	WindowStart int64 // epoch millis
	WindowEnd   int64 // epoch millis
	Entries     int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ScanQuery defines filters for listing scans.
type ScanQuery struct {
	Browser string
	State   ScanState
	Since   time.Time
	Limit   int
	Offset  int
}

// Stats holds aggregate statistics about the scan journal.
type Stats struct {
	TotalScans        int64
	Succeeded         int64
	Failed            int64
	InProgress        int64
	OldestScan        time.Time
	NewestScan        time.Time
	DatabaseSizeBytes int64
	Browsers          []BrowserStats
}

// BrowserStats summarizes scans of a single browser.
type BrowserStats struct {
	Browser     string
	Scans       int64
	Failed      int64
	Entries     int64
	LastSuccess time.Time
}
