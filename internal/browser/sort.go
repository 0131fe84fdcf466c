package browser

import (
	"cmp"
	"slices"

	"github.com/runnerr0/browsync/internal/model"
)

// CompareHistory orders entries by last_visited, then url, then title.
func CompareHistory(a, b model.History) int {
	if c := cmp.Compare(a.LastVisited, b.LastVisited); c != 0 {
		return c
	}
	if c := cmp.Compare(a.URL, b.URL); c != 0 {
		return c
	}
	return cmp.Compare(a.Title, b.Title)
}

// SortHistory sorts entries in place by CompareHistory. The result does not
// depend on input order.
func SortHistory(entries []model.History) {
	slices.SortStableFunc(entries, CompareHistory)
}
