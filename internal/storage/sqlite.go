package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed_url TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		termination_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS nodes (
		run_id INTEGER NOT NULL,
		node_id INTEGER NOT NULL,
		canonical_key TEXT NOT NULL,
		display_url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		PRIMARY KEY (run_id, node_id),
		UNIQUE (run_id, canonical_key),
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE TABLE IF NOT EXISTS edges (
		run_id INTEGER NOT NULL,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, from_node_id, to_node_id),
		FOREIGN KEY (run_id, from_node_id) REFERENCES nodes(run_id, node_id),
		FOREIGN KEY (run_id, to_node_id) REFERENCES nodes(run_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(run_id, from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(run_id, to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveGraph writes a finished crawl and its graph in a single transaction
// Returns the run_id assigned to the crawl
func (s *Storage) SaveGraph(run Run, nodes []Node, edges []Edge) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (seed_url, started_at, finished_at, termination_reason)
		VALUES (?, ?, ?, ?)
	`, run.SeedURL, run.StartedAt, run.FinishedAt, run.TerminationReason)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve run_id: %w", err)
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (run_id, node_id, canonical_key, display_url, depth)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, node := range nodes {
		if _, err := nodeStmt.Exec(runID, node.NodeID, node.CanonicalKey, node.DisplayURL, node.Depth); err != nil {
			return 0, fmt.Errorf("failed to insert node %s: %w", node.CanonicalKey, err)
		}
	}

	edgeStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO edges (run_id, from_node_id, to_node_id)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, edge := range edges {
		if _, err := edgeStmt.Exec(runID, edge.FromNodeID, edge.ToNodeID); err != nil {
			return 0, fmt.Errorf("failed to insert edge %d->%d: %w", edge.FromNodeID, edge.ToNodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit graph: %w", err)
	}

	return runID, nil
}

// GetRun retrieves a run by ID, returns nil if not found
func (s *Storage) GetRun(runID int64) (*Run, error) {
	var run Run
	err := s.db.QueryRow(`
		SELECT r.run_id, r.seed_url, r.started_at, r.finished_at, COALESCE(r.termination_reason, ''),
			(SELECT COUNT(*) FROM nodes n WHERE n.run_id = r.run_id),
			(SELECT COUNT(*) FROM edges e WHERE e.run_id = r.run_id)
		FROM runs r
		WHERE r.run_id = ?
	`, runID).Scan(&run.RunID, &run.SeedURL, &run.StartedAt, &run.FinishedAt, &run.TerminationReason,
		&run.NodeCount, &run.EdgeCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// LatestRunID returns the most recent run_id, or 0 if the database holds no runs
func (s *Storage) LatestRunID() (int64, error) {
	var runID sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(run_id) FROM runs").Scan(&runID); err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return runID.Int64, nil
}

// LoadGraph returns the nodes and edges stored for a run, ordered by node_id
func (s *Storage) LoadGraph(runID int64) ([]Node, []Edge, error) {
	rows, err := s.db.Query(`
		SELECT node_id, canonical_key, display_url, depth
		FROM nodes
		WHERE run_id = ?
		ORDER BY node_id ASC
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var node Node
		if err := rows.Scan(&node.NodeID, &node.CanonicalKey, &node.DisplayURL, &node.Depth); err != nil {
			return nil, nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeRows, err := s.db.Query(`
		SELECT from_node_id, to_node_id
		FROM edges
		WHERE run_id = ?
		ORDER BY from_node_id ASC, to_node_id ASC
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []Edge
	for edgeRows.Next() {
		var edge Edge
		if err := edgeRows.Scan(&edge.FromNodeID, &edge.ToNodeID); err != nil {
			return nil, nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return nodes, edges, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// NewRun builds a Run record for a crawl that just finished
func NewRun(seedURL string, startedAt time.Time, reason string) Run {
	return Run{
		SeedURL:           seedURL,
		StartedAt:         startedAt,
		FinishedAt:        time.Now(),
		TerminationReason: reason,
	}
}
