package storage

import (
	"database/sql"
	"fmt"

	"github.com/alvmarrod/source-weaver/internal/graph"
	_ "github.com/mattn/go-sqlite3"
)

// Storage persists provenance graphs in SQLite
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		url TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		scan_depth INTEGER NOT NULL,
		parsed BOOLEAN NOT NULL DEFAULT 0,
		domain TEXT NOT NULL DEFAULT '',
		pos_depth INTEGER NOT NULL,
		pos_ordinal INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_url TEXT NOT NULL,
		target_url TEXT NOT NULL,
		FOREIGN KEY (source_url) REFERENCES nodes(url),
		FOREIGN KEY (target_url) REFERENCES nodes(url),
		UNIQUE(source_url, target_url)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_depth ON nodes(scan_depth);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_url);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveGraph replaces the stored graph with g in a single transaction
func (s *Storage) SaveGraph(g *graph.Graph) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (url, seq, scan_depth, parsed, domain, pos_depth, pos_ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for seq, node := range g.Nodes() {
		_, err := nodeStmt.Exec(node.URL, seq, node.ScanDepth, node.Parsed, node.Domain,
			node.Position.Depth, node.Position.Ordinal)
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.URL, err)
		}
	}

	edgeStmt, err := tx.Prepare(`
		INSERT INTO edges (source_url, target_url)
		VALUES (?, ?)
		ON CONFLICT(source_url, target_url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, edge := range g.Edges() {
		if _, err := edgeStmt.Exec(edge.Source, edge.Target); err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", edge.Source, edge.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	return nil
}

// Export implements the exporter contract by saving the graph
func (s *Storage) Export(g *graph.Graph) error {
	return s.SaveGraph(g)
}

// LoadGraph rebuilds the stored graph, preserving node and edge insertion order
func (s *Storage) LoadGraph() (*graph.Graph, error) {
	g := graph.New()

	rows, err := s.db.Query(`
		SELECT url, scan_depth, parsed, domain, pos_depth, pos_ordinal
		FROM nodes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node graph.Node
		if err := rows.Scan(&node.URL, &node.ScanDepth, &node.Parsed, &node.Domain,
			&node.Position.Depth, &node.Position.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		g.InsertNode(node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeRows, err := s.db.Query("SELECT source_url, target_url FROM edges ORDER BY edge_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var source, target string
		if err := edgeRows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if _, err := g.AddEdge(source, target); err != nil {
			return nil, fmt.Errorf("failed to restore edge: %w", err)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return g, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
