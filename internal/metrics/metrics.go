package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/source-weaver/internal/storage"
)

// Counter identifies one of the crawl counters
type Counter int

const (
	NodesDiscovered Counter = iota
	NodesExpanded
	EdgesRecorded
	PagesFetched
	PagesFailed
	numCounters
)

// Tracker accumulates crawl counters and fetch timings
type Tracker struct {
	mu         sync.Mutex
	startTime  time.Time
	seedURL    string
	maxLevel   int
	counts     [numCounters]int
	fetchTotal time.Duration
	fetchCount int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// SetRun records the crawl parameters reported in the metrics file
func (t *Tracker) SetRun(seedURL string, maxLevel int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seedURL = seedURL
	t.maxLevel = maxLevel
}

// Inc adds one to counter c
func (t *Tracker) Inc(c Counter) {
	if c < 0 || c >= numCounters {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[c]++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchTotal += duration
	t.fetchCount++
}

// GetSnapshot returns the current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() storage.Metrics {
	m := storage.Metrics{
		StartTime:        t.startTime,
		SeedURL:          t.seedURL,
		MaxLevel:         t.maxLevel,
		NodesDiscovered:  t.counts[NodesDiscovered],
		NodesExpanded:    t.counts[NodesExpanded],
		EdgesRecorded:    t.counts[EdgesRecorded],
		PagesFetched:     t.counts[PagesFetched],
		PagesFailed:      t.counts[PagesFailed],
		TotalFetchTimeMs: t.fetchTotal.Milliseconds(),
	}
	if t.fetchCount > 0 {
		m.AvgFetchTimeMs = m.TotalFetchTimeMs / int64(t.fetchCount)
	}
	return m
}

// WriteToFile exports the final metrics, stamped with end time and reason, as JSON
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	m := t.snapshotLocked()
	t.mu.Unlock()

	m.EndTime = time.Now()
	m.TerminationReason = reason

	jsonData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for a log line
func (t *Tracker) LogProgress() string {
	m := t.GetSnapshot()
	return fmt.Sprintf("Nodes: %d discovered, %d expanded | Edges: %d | Pages: %d fetched, %d failed (avg %dms)",
		m.NodesDiscovered, m.NodesExpanded, m.EdgesRecorded, m.PagesFetched, m.PagesFailed, m.AvgFetchTimeMs)
}
