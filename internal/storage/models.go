package storage

import "time"

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SeedURL           string    `json:"seed_url"`
	MaxLevel          int       `json:"max_level"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	NodesExpanded     int       `json:"nodes_expanded"`
	EdgesRecorded     int       `json:"edges_recorded"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
