// Package snapshot exports the graph to a standalone SQLite file and imports
// graph documents written in YAML or JSON.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"graphd/internal/model"
)

const logEvery = 1000

// Reader is the read side of the service an export pulls from.
type Reader interface {
	GetNodes(ctx context.Context) ([]model.Node, error)
	GetEdges(ctx context.Context) ([]model.Edge, error)
	GetStatuses(ctx context.Context) ([]model.NodeStatus, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetTypes(ctx context.Context) ([]model.Type, error)
}

// Snapshot is a point-in-time copy of the graph and its catalogs.
type Snapshot struct {
	Categories []model.Category
	Types      []model.Type
	Nodes      []model.Node
	Edges      []model.Edge
	Statuses   []model.NodeStatus
}

// Collect reads everything an export needs from src.
func Collect(ctx context.Context, src Reader) (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Categories, err = src.GetCategories(ctx); err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	if s.Types, err = src.GetTypes(ctx); err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	if s.Nodes, err = src.GetNodes(ctx); err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	if s.Edges, err = src.GetEdges(ctx); err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	if s.Statuses, err = src.GetStatuses(ctx); err != nil {
		return nil, fmt.Errorf("read statuses: %w", err)
	}
	return &s, nil
}

const exportSchema = `
CREATE TABLE categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    shape TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL
);
CREATE TABLE types (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE nodes (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    category TEXT NOT NULL,
    type TEXT NOT NULL,
    user_created INTEGER NOT NULL,
    data TEXT,
    created_at TEXT,
    updated_at TEXT
);
CREATE TABLE edges (
    id TEXT NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    label TEXT NOT NULL,
    data TEXT,
    created_at TEXT,
    updated_at TEXT,
    PRIMARY KEY (source, target)
);
CREATE TABLE status (
    node_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at TEXT
);
`

const exportIndexes = `
CREATE INDEX idx_edges_source ON edges(source);
CREATE INDEX idx_edges_target ON edges(target);
CREATE INDEX idx_nodes_category ON nodes(category);
`

// Export writes snap to a fresh SQLite file at path, replacing any existing file.
func Export(ctx context.Context, path string, snap *Snapshot, prog *Progress) (err error) {
	prog.Log("Writing SQLite snapshot to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()
	conn.SetInterrupt(ctx.Done())

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, exportSchema, nil); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	err = writeAll(conn, snap, prog)
	endFn(&err)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	prog.Log("Creating indexes...")
	if err := sqlitex.ExecuteScript(conn, exportIndexes, nil); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	prog.Log("Snapshot complete: %d nodes, %d edges, %d statuses", len(snap.Nodes), len(snap.Edges), len(snap.Statuses))
	return nil
}

func writeAll(conn *sqlite.Conn, snap *Snapshot, prog *Progress) error {
	if err := insertCategories(conn, snap.Categories); err != nil {
		return err
	}
	if err := insertTypes(conn, snap.Types); err != nil {
		return err
	}
	if err := insertNodes(conn, snap.Nodes, prog); err != nil {
		return err
	}
	if err := insertEdges(conn, snap.Edges, prog); err != nil {
		return err
	}
	return insertStatuses(conn, snap.Statuses)
}

func insertCategories(conn *sqlite.Conn, cats []model.Category) error {
	stmt, _, err := conn.PrepareTransient(`INSERT INTO categories (id, name, shape, width, height) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, c := range cats {
		stmt.BindText(1, c.ID)
		stmt.BindText(2, c.Name)
		stmt.BindText(3, c.Shape)
		stmt.BindInt64(4, int64(c.Width))
		stmt.BindInt64(5, int64(c.Height))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertTypes(conn *sqlite.Conn, types []model.Type) error {
	stmt, _, err := conn.PrepareTransient(`INSERT INTO types (id, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare type insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, t := range types {
		stmt.BindText(1, t.ID)
		stmt.BindText(2, t.Name)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert type %s: %w", t.ID, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertNodes(conn *sqlite.Conn, nodes []model.Node, prog *Progress) error {
	stmt, _, err := conn.PrepareTransient(`INSERT INTO nodes (id, label, category, type, user_created, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, n := range nodes {
		data, err := docJSON(n.Data)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		stmt.BindText(1, n.ID)
		stmt.BindText(2, n.Label)
		stmt.BindText(3, n.Category)
		stmt.BindText(4, n.Type)
		stmt.BindBool(5, n.UserCreated)
		bindTextOrNull(stmt, 6, data)
		bindTextOrNull(stmt, 7, stamp(n.CreatedAt))
		bindTextOrNull(stmt, 8, stamp(n.UpdatedAt))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
		_ = stmt.Reset()

		if (i+1)%logEvery == 0 {
			prog.Verbose("  inserted %d/%d nodes", i+1, len(nodes))
		}
	}

	prog.Log("Inserted %d nodes", len(nodes))
	return nil
}

func insertEdges(conn *sqlite.Conn, edges []model.Edge, prog *Progress) error {
	stmt, _, err := conn.PrepareTransient(`INSERT INTO edges (id, source, target, label, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, e := range edges {
		data, err := docJSON(e.Data)
		if err != nil {
			return fmt.Errorf("edge %s: %w", e.ID(), err)
		}
		stmt.BindText(1, e.ID())
		stmt.BindText(2, e.Source)
		stmt.BindText(3, e.Target)
		stmt.BindText(4, e.Label)
		bindTextOrNull(stmt, 5, data)
		bindTextOrNull(stmt, 6, stamp(e.CreatedAt))
		bindTextOrNull(stmt, 7, stamp(e.UpdatedAt))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert edge %s→%s: %w", e.Source, e.Target, err)
		}
		_ = stmt.Reset()

		if (i+1)%logEvery == 0 {
			prog.Verbose("  inserted %d/%d edges", i+1, len(edges))
		}
	}

	prog.Log("Inserted %d edges", len(edges))
	return nil
}

func insertStatuses(conn *sqlite.Conn, statuses []model.NodeStatus) error {
	stmt, _, err := conn.PrepareTransient(`INSERT INTO status (node_id, status, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare status insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, s := range statuses {
		stmt.BindText(1, s.NodeID)
		stmt.BindText(2, string(s.Status))
		bindTextOrNull(stmt, 3, stamp(s.CreatedAt))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert status %s: %w", s.NodeID, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func docJSON(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode data: %w", err)
	}
	return string(b), nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}
