package storage

import "time"

// Node represents a distinct page in the link graph
type Node struct {
	NodeID       int    `json:"index"`
	CanonicalKey string `json:"key"`
	DisplayURL   string `json:"url"`
	Depth        int    `json:"depth"`
}

// Edge represents a directed link between two nodes
type Edge struct {
	FromNodeID int `json:"from"`
	ToNodeID   int `json:"to"`
}

// Run describes one finished crawl stored in the database
type Run struct {
	RunID             int64
	SeedURL           string
	StartedAt         time.Time
	FinishedAt        time.Time
	TerminationReason string
	NodeCount         int
	EdgeCount         int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	EdgesRecorded     int       `json:"edges_recorded"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	PagesUnreadable   int       `json:"pages_unreadable"`
	TasksOverDepth    int       `json:"tasks_over_depth"`
	LinksRejected     int       `json:"links_rejected"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
