// Package observability tracks which derived-key candidates actually open
// files. The candidate list is ordered by a heuristic; these counters show
// whether that order matches the files a deployment really sees.
package observability

import (
	"sort"
	"sync"
	"time"
)

// DecryptStats counts candidate attempts and successes. All methods are
// O(1) or O(candidates) and thread-safe.
type DecryptStats struct {
	mu         sync.RWMutex
	candidates map[int]*CandidateStats
}

// CandidateStats holds the counters of one candidate position.
type CandidateStats struct {
	Index       int
	Attempts    int64
	Successes   int64
	LastSuccess time.Time
}

// NewDecryptStats creates an empty tracker.
func NewDecryptStats() *DecryptStats {
	return &DecryptStats{candidates: make(map[int]*CandidateStats)}
}

// RecordAttempt records one candidate try at the given list position.
func (d *DecryptStats) RecordAttempt(index int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats, exists := d.candidates[index]
	if !exists {
		stats = &CandidateStats{Index: index}
		d.candidates[index] = stats
	}
	stats.Attempts++
	if ok {
		stats.Successes++
		stats.LastSuccess = time.Now()
	}
}

// Top returns the top N candidate positions by success count, then by
// attempt count. Returns copies.
func (d *DecryptStats) Top(n int) []CandidateStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if n <= 0 || len(d.candidates) == 0 {
		return []CandidateStats{}
	}

	stats := make([]CandidateStats, 0, len(d.candidates))
	for _, s := range d.candidates {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Successes != stats[j].Successes {
			return stats[i].Successes > stats[j].Successes
		}
		return stats[i].Attempts > stats[j].Attempts
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// TotalAttempts sums attempts across all candidate positions.
func (d *DecryptStats) TotalAttempts() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var total int64
	for _, s := range d.candidates {
		total += s.Attempts
	}
	return total
}
